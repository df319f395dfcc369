package wallet

import (
	"time"

	"github.com/aristath/paper-trader/internal/domain"
)

// Wallet is a user's virtual cash account. One per user, created lazily on
// first read, mutated only by the execution engine.
type Wallet struct {
	UserID        string          `json:"user_id"`
	VirtualCash   float64         `json:"virtual_cash"`
	Currency      domain.Currency `json:"currency"`
	MISMarginUsed float64         `json:"mis_margin_used"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// HoldingValue is one holding valued at current market price
type HoldingValue struct {
	Symbol        string             `json:"symbol"`
	Exchange      string             `json:"exchange"`
	ProductType   domain.ProductType `json:"product_type"`
	Quantity      int64              `json:"quantity"`
	AveragePrice  float64            `json:"average_price"`
	CurrentPrice  float64            `json:"current_price"`
	Invested      float64            `json:"invested"`
	CurrentValue  float64            `json:"current_value"`
	UnrealizedPnL float64            `json:"unrealized_pnl"`
	DayPnL        float64            `json:"day_pnl"`
	PriceStale    bool               `json:"price_stale"`
}

// Summary is the aggregated wallet view
type Summary struct {
	VirtualCash     float64         `json:"virtual_cash"`
	Currency        domain.Currency `json:"currency"`
	MISMarginUsed   float64         `json:"mis_margin_used"`
	AvailableCNC    float64         `json:"available_cnc"`
	AvailableMIS    float64         `json:"available_mis"` // notional buying power
	TotalInvested   float64         `json:"total_invested"`
	CurrentValue    float64         `json:"current_value"`
	TotalPnL        float64         `json:"total_pnl"`
	TotalPnLPercent float64         `json:"total_pnl_percent"`
	DayPnL          float64         `json:"day_pnl"`
	HoldingCount    int             `json:"holding_count"`
	Stale           bool            `json:"stale"` // true when any holding used a stale price
}

// Details is the summary plus the per-holding breakdown
type Details struct {
	Summary  Summary        `json:"summary"`
	Holdings []HoldingValue `json:"holdings"`
}

// Balance is the minimal read for the top bar
type Balance struct {
	VirtualCash   float64         `json:"virtual_cash"`
	Currency      domain.Currency `json:"currency"`
	MISMarginUsed float64         `json:"mis_margin_used"`
}
