package wallet

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paper-trader/internal/clients/marketdata"
	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/pkg/logger"
)

// memHoldings is an in-memory HoldingSource
type memHoldings struct {
	holdings   []domain.Holding
	lastPrices map[string]float64
}

func (m *memHoldings) GetAll(userID string) ([]domain.Holding, error) {
	var out []domain.Holding
	for _, h := range m.holdings {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memHoldings) UpdateLastPrice(userID, symbol, exchange string, price float64) error {
	if m.lastPrices == nil {
		m.lastPrices = map[string]float64{}
	}
	m.lastPrices[symbol] = price
	return nil
}

// stubQuotes is a QuoteSource serving a fixed quote map, or failing
type stubQuotes struct {
	quotes map[marketdata.SymbolKey]marketdata.Quote
	err    error
	calls  int
}

func (s *stubQuotes) Quotes(ctx context.Context, keys []marketdata.SymbolKey) (map[marketdata.SymbolKey]marketdata.Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[marketdata.SymbolKey]marketdata.Quote)
	for _, k := range keys {
		if q, ok := s.quotes[k]; ok {
			out[k] = q
		}
	}
	return out, nil
}

type valuatorFixture struct {
	valuator *Valuator
	holdings *memHoldings
	quotes   *stubQuotes
}

func newValuatorFixture(t *testing.T) *valuatorFixture {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Pretty: false})

	db, err := database.New(filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	wallets := NewRepository(db.Conn(), 100000, domain.CurrencyINR, log)
	holdings := &memHoldings{}
	quotes := &stubQuotes{quotes: map[marketdata.SymbolKey]marketdata.Quote{}}
	policy := NewMarginPolicy(4, 15, 20)

	return &valuatorFixture{
		valuator: NewValuator(wallets, holdings, quotes, policy, log),
		holdings: holdings,
		quotes:   quotes,
	}
}

func key(symbol string) marketdata.SymbolKey {
	return marketdata.SymbolKey{Symbol: symbol, Exchange: "NSE"}
}

func holding(userID, symbol string, qty int64, avg, last float64) domain.Holding {
	return domain.Holding{
		UserID:       userID,
		Symbol:       symbol,
		Exchange:     "NSE",
		ProductType:  domain.ProductCNC,
		Quantity:     qty,
		AveragePrice: avg,
		LastPrice:    last,
	}
}

func TestValuator_EmptyPortfolio(t *testing.T) {
	f := newValuatorFixture(t)

	summary, err := f.valuator.Summary(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 100000.0, summary.VirtualCash)
	assert.Equal(t, 0.0, summary.TotalInvested)
	assert.Equal(t, 0.0, summary.TotalPnLPercent, "zero invested must report 0%, not divide by zero")
	assert.Equal(t, 0, summary.HoldingCount)
	assert.False(t, summary.Stale)
}

func TestValuator_AggregatesHoldings(t *testing.T) {
	f := newValuatorFixture(t)
	f.holdings.holdings = []domain.Holding{
		holding("u1", "TATA", 10, 500, 500),
		holding("u1", "INFY", 20, 100, 100),
	}
	f.quotes.quotes[key("TATA")] = marketdata.Quote{Symbol: "TATA", Exchange: "NSE", LastPrice: 600, PrevClose: 580}
	f.quotes.quotes[key("INFY")] = marketdata.Quote{Symbol: "INFY", Exchange: "NSE", LastPrice: 90, PrevClose: 95}

	details, err := f.valuator.Details(context.Background(), "u1")
	require.NoError(t, err)

	// invested 5000+2000, value 6000+1800
	assert.Equal(t, 7000.0, details.Summary.TotalInvested)
	assert.Equal(t, 7800.0, details.Summary.CurrentValue)
	assert.Equal(t, 800.0, details.Summary.TotalPnL)
	assert.InDelta(t, 11.43, details.Summary.TotalPnLPercent, 0.01)
	assert.False(t, details.Summary.Stale)

	// day P&L: 10×(600−580) + 20×(90−95)
	assert.Equal(t, 100.0, details.Summary.DayPnL)

	require.Len(t, details.Holdings, 2)
	tata := details.Holdings[0]
	assert.Equal(t, "TATA", tata.Symbol)
	assert.Equal(t, 1000.0, tata.UnrealizedPnL)
	assert.False(t, tata.PriceStale)
}

func TestValuator_StaleFallback(t *testing.T) {
	f := newValuatorFixture(t)
	f.holdings.holdings = []domain.Holding{
		holding("u1", "TATA", 10, 500, 540),
		holding("u1", "INFY", 20, 100, 100),
	}
	// Only INFY quotable right now
	f.quotes.quotes[key("INFY")] = marketdata.Quote{Symbol: "INFY", Exchange: "NSE", LastPrice: 110}

	details, err := f.valuator.Details(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, details.Summary.Stale, "summary must flag the stale valuation")

	tata := details.Holdings[0]
	assert.True(t, tata.PriceStale)
	assert.Equal(t, 540.0, tata.CurrentPrice, "stale holding valued at last known price")

	infy := details.Holdings[1]
	assert.False(t, infy.PriceStale)
	assert.Equal(t, 110.0, infy.CurrentPrice)
}

func TestValuator_ProviderOutageDoesNotFailRead(t *testing.T) {
	f := newValuatorFixture(t)
	f.holdings.holdings = []domain.Holding{
		holding("u1", "TATA", 10, 500, 540),
	}
	f.quotes.err = fmt.Errorf("provider down")

	details, err := f.valuator.Details(context.Background(), "u1")
	require.NoError(t, err, "valuation reads fail soft on provider outage")

	assert.True(t, details.Summary.Stale)
	assert.Equal(t, 5400.0, details.Summary.CurrentValue)
}

func TestValuator_NeverQuotedFallsBackToCost(t *testing.T) {
	f := newValuatorFixture(t)
	f.holdings.holdings = []domain.Holding{
		holding("u1", "TATA", 10, 500, 0),
	}
	f.quotes.err = fmt.Errorf("provider down")

	details, err := f.valuator.Details(context.Background(), "u1")
	require.NoError(t, err)

	tata := details.Holdings[0]
	assert.True(t, tata.PriceStale)
	assert.Equal(t, 500.0, tata.CurrentPrice)
	assert.Equal(t, 0.0, tata.UnrealizedPnL)
}

func TestValuator_ReadsAreIdempotent(t *testing.T) {
	f := newValuatorFixture(t)
	f.holdings.holdings = []domain.Holding{
		holding("u1", "TATA", 10, 500, 500),
	}
	f.quotes.quotes[key("TATA")] = marketdata.Quote{Symbol: "TATA", Exchange: "NSE", LastPrice: 600}

	first, err := f.valuator.Summary(context.Background(), "u1")
	require.NoError(t, err)
	second, err := f.valuator.Summary(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValuator_AvailableBalances(t *testing.T) {
	f := newValuatorFixture(t)

	summary, err := f.valuator.Summary(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 100000.0, summary.AvailableCNC)
	assert.Equal(t, 400000.0, summary.AvailableMIS, "4x leverage quadruples intraday buying power")
}

func TestValuator_StoresFreshLastPrice(t *testing.T) {
	f := newValuatorFixture(t)
	f.holdings.holdings = []domain.Holding{
		holding("u1", "TATA", 10, 500, 500),
	}
	f.quotes.quotes[key("TATA")] = marketdata.Quote{Symbol: "TATA", Exchange: "NSE", LastPrice: 620}

	_, err := f.valuator.Details(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 620.0, f.holdings.lastPrices["TATA"])
}
