package marketdata

// SymbolKey identifies an instrument on an exchange
type SymbolKey struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

// Quote is a point-in-time price for an instrument
type Quote struct {
	Symbol    string  `json:"symbol"`
	Exchange  string  `json:"exchange"`
	LastPrice float64 `json:"last_price"`
	PrevClose float64 `json:"prev_close"`
}

// Candle is one daily bar of price history
type Candle struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// tokenResponse is the provider's token-issuing payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
