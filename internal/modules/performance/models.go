package performance

// Snapshot is one day's total equity (cash + holdings at market) for a user
type Snapshot struct {
	UserID      string  `json:"user_id"`
	Date        string  `json:"date"` // YYYY-MM-DD
	TotalEquity float64 `json:"total_equity"`
}

// HoldingIndicator carries per-holding technicals for the performance view
type HoldingIndicator struct {
	Symbol   string   `json:"symbol"`
	Exchange string   `json:"exchange"`
	RSI      *float64 `json:"rsi,omitempty"`
}

// Metrics is the portfolio performance report
type Metrics struct {
	Days                 int                `json:"days"` // snapshot count backing the series
	TotalEquity          float64            `json:"total_equity"`
	AnnualizedVolatility float64            `json:"annualized_volatility"`
	SharpeRatio          *float64           `json:"sharpe_ratio,omitempty"`
	MaxDrawdown          *float64           `json:"max_drawdown,omitempty"`
	Indicators           []HoldingIndicator `json:"indicators"`
}
