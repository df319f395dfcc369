package domain

import "errors"

// Sentinel errors for the ledger and its collaborators. Handlers map these to
// HTTP statuses with errors.Is; services wrap them with fmt.Errorf("…: %w").
var (
	// ErrInsufficientFunds means the wallet cannot cover the required funds
	// for a buy order under the applicable margin policy.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientHoldings means a sell order asked for more shares than
	// the holding contains (including the zero-holdings case).
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrPriceUnavailable means the market data provider could not price the
	// symbol. Fatal for order execution, tolerated for valuation reads.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrDuplicateWatchlistEntry means the (symbol, exchange) pair is already
	// on the user's watchlist.
	ErrDuplicateWatchlistEntry = errors.New("duplicate watchlist entry")

	// ErrTokenUnavailable means no provider access token could be obtained,
	// neither from the cache nor by issuing a fresh one.
	ErrTokenUnavailable = errors.New("access token unavailable")

	// ErrLedgerConflict means a concurrent-mutation race was detected and
	// internal retries were exhausted. Transient; the caller may retry with
	// a fresh order.
	ErrLedgerConflict = errors.New("ledger conflict")

	// ErrMarketClosed means a new MIS order was submitted after the intraday
	// cutoff.
	ErrMarketClosed = errors.New("intraday orders closed for the day")
)
