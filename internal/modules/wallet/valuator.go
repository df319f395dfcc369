package wallet

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/clients/marketdata"
	"github.com/aristath/paper-trader/internal/domain"
)

// HoldingSource supplies the open holdings for a user. Implemented by the
// trading module's holding repository.
type HoldingSource interface {
	GetAll(userID string) ([]domain.Holding, error)
	UpdateLastPrice(userID, symbol, exchange string, price float64) error
}

// QuoteSource supplies batch quotes. Implemented by the market data client.
type QuoteSource interface {
	Quotes(ctx context.Context, keys []marketdata.SymbolKey) (map[marketdata.SymbolKey]marketdata.Quote, error)
}

// Valuator computes the current value and P&L of a user's holdings. Strictly
// read-only against the ledger, except for refreshing each holding's
// last-known price after a successful quote.
type Valuator struct {
	wallets  *Repository
	holdings HoldingSource
	quotes   QuoteSource
	policy   *MarginPolicy
	log      zerolog.Logger
}

// NewValuator creates a new portfolio valuator
func NewValuator(wallets *Repository, holdings HoldingSource, quotes QuoteSource, policy *MarginPolicy, log zerolog.Logger) *Valuator {
	return &Valuator{
		wallets:  wallets,
		holdings: holdings,
		quotes:   quotes,
		policy:   policy,
		log:      log.With().Str("service", "valuator").Logger(),
	}
}

// Balance returns the cash view of the wallet
func (v *Valuator) Balance(ctx context.Context, userID string) (*Balance, error) {
	w, err := v.wallets.Get(userID)
	if err != nil {
		return nil, err
	}

	return &Balance{
		VirtualCash:   domain.Round2(w.VirtualCash),
		Currency:      w.Currency,
		MISMarginUsed: domain.Round2(w.MISMarginUsed),
	}, nil
}

// Summary returns the aggregated wallet view
func (v *Valuator) Summary(ctx context.Context, userID string) (*Summary, error) {
	details, err := v.Details(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &details.Summary, nil
}

// Details values every holding at its current price and aggregates totals.
// Holdings the provider cannot price right now are valued at their last
// known price and flagged stale; the read never fails because of a partial
// provider outage.
func (v *Valuator) Details(ctx context.Context, userID string) (*Details, error) {
	w, err := v.wallets.Get(userID)
	if err != nil {
		return nil, err
	}

	holdings, err := v.holdings.GetAll(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	quotes := v.fetchQuotes(ctx, holdings)

	values := make([]HoldingValue, 0, len(holdings))
	var totalInvested, currentValue, dayPnL float64
	anyStale := false

	for _, h := range holdings {
		hv := v.value(h, quotes)
		if hv.PriceStale {
			anyStale = true
		} else if hv.CurrentPrice != h.LastPrice {
			// Remember the fresh price for future stale valuations
			if err := v.holdings.UpdateLastPrice(userID, h.Symbol, h.Exchange, hv.CurrentPrice); err != nil {
				v.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to store last price")
			}
		}

		totalInvested += hv.Invested
		currentValue += hv.CurrentValue
		dayPnL += hv.DayPnL
		values = append(values, hv)
	}

	totalPnL := currentValue - totalInvested
	totalPnLPercent := 0.0
	if totalInvested > 0 {
		totalPnLPercent = totalPnL / totalInvested * 100
	}

	summary := Summary{
		VirtualCash:     domain.Round2(w.VirtualCash),
		Currency:        w.Currency,
		MISMarginUsed:   domain.Round2(w.MISMarginUsed),
		AvailableCNC:    domain.Round2(w.VirtualCash),
		AvailableMIS:    domain.Round2(w.VirtualCash * v.policy.Leverage()),
		TotalInvested:   domain.Round2(totalInvested),
		CurrentValue:    domain.Round2(currentValue),
		TotalPnL:        domain.Round2(totalPnL),
		TotalPnLPercent: domain.Round2(totalPnLPercent),
		DayPnL:          domain.Round2(dayPnL),
		HoldingCount:    len(holdings),
		Stale:           anyStale,
	}

	return &Details{Summary: summary, Holdings: values}, nil
}

// fetchQuotes batch-fetches quotes for all holdings. On provider failure the
// result is empty and every holding falls back to its last known price.
func (v *Valuator) fetchQuotes(ctx context.Context, holdings []domain.Holding) map[marketdata.SymbolKey]marketdata.Quote {
	if len(holdings) == 0 {
		return nil
	}

	seen := make(map[marketdata.SymbolKey]bool)
	keys := make([]marketdata.SymbolKey, 0, len(holdings))
	for _, h := range holdings {
		key := marketdata.SymbolKey{Symbol: h.Symbol, Exchange: h.Exchange}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	quotes, err := v.quotes.Quotes(ctx, keys)
	if err != nil {
		v.log.Warn().Err(err).Int("holdings", len(holdings)).Msg("Batch quote failed, valuing at last known prices")
		return nil
	}

	return quotes
}

// value computes one holding's valuation, falling back to the stored last
// price when no fresh quote is available
func (v *Valuator) value(h domain.Holding, quotes map[marketdata.SymbolKey]marketdata.Quote) HoldingValue {
	hv := HoldingValue{
		Symbol:       h.Symbol,
		Exchange:     h.Exchange,
		ProductType:  h.ProductType,
		Quantity:     h.Quantity,
		AveragePrice: h.AveragePrice,
		Invested:     h.CostBasis(),
	}

	quote, ok := quotes[marketdata.SymbolKey{Symbol: h.Symbol, Exchange: h.Exchange}]
	switch {
	case ok:
		hv.CurrentPrice = quote.LastPrice
		if quote.PrevClose > 0 {
			hv.DayPnL = float64(h.Quantity) * (quote.LastPrice - quote.PrevClose)
		}
	case h.LastPrice > 0:
		hv.CurrentPrice = h.LastPrice
		hv.PriceStale = true
	default:
		// Never quoted successfully; cost basis is the only price we have
		hv.CurrentPrice = h.AveragePrice
		hv.PriceStale = true
	}

	hv.CurrentValue = float64(h.Quantity) * hv.CurrentPrice
	hv.UnrealizedPnL = hv.CurrentValue - hv.Invested

	return hv
}
