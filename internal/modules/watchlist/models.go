package watchlist

import "time"

// Item is one watchlist entry, unique per (user, symbol, exchange)
type Item struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"stock_symbol"`
	Exchange  string    `json:"exchange"`
	CreatedAt time.Time `json:"created_at"`
}

// EnrichedItem is a watchlist entry with a live quote attached. Quote fields
// are zero when the provider could not price the symbol; the list read never
// fails because of that.
type EnrichedItem struct {
	Item
	LastPrice float64  `json:"last_price,omitempty"`
	PrevClose float64  `json:"prev_close,omitempty"`
	DayChange float64  `json:"day_change_percent,omitempty"`
	RSI       *float64 `json:"rsi,omitempty"`
}
