package domain

import "time"

// TransactionStatus is the lifecycle state of a ledger transaction. Only
// EXECUTED rows exist today; the column exists so failed/pending states can
// be audited later without a schema change.
type TransactionStatus string

const (
	TransactionExecuted TransactionStatus = "EXECUTED"
)

// Holding is an open position, keyed by (user, symbol, exchange, product
// type). quantity stays strictly positive while the row exists; a sell that
// empties it deletes the row.
type Holding struct {
	ID           int64       `json:"id"`
	UserID       string      `json:"user_id"`
	Symbol       string      `json:"symbol"`
	Exchange     string      `json:"exchange"`
	ProductType  ProductType `json:"product_type"`
	Quantity     int64       `json:"quantity"`
	AveragePrice float64     `json:"average_price"`
	LastPrice    float64     `json:"last_price"` // last successfully quoted price, for stale valuation
	UpdatedAt    time.Time   `json:"updated_at"`
}

// CostBasis returns quantity × average price
func (h *Holding) CostBasis() float64 {
	return float64(h.Quantity) * h.AveragePrice
}

// Transaction is the immutable audit record of one executed order
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Type        Side              `json:"type"`
	Symbol      string            `json:"stock_symbol"`
	Exchange    string            `json:"exchange"`
	ProductType ProductType       `json:"product_type"`
	Quantity    int64             `json:"quantity"`
	Price       float64           `json:"price"`
	TotalAmount float64           `json:"total_amount"`
	Status      TransactionStatus `json:"status"`
	ExecutedAt  time.Time         `json:"executed_at"`
}
