package performance

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
	"github.com/aristath/paper-trader/internal/modules/wallet"
	"github.com/aristath/paper-trader/pkg/logger"
)

// stubHoldings serves a fixed holding list; implements both this package's
// HoldingSource and the wallet valuator's
type stubHoldings struct {
	holdings []domain.Holding
}

func (s *stubHoldings) GetAll(userID string) ([]domain.Holding, error) {
	var out []domain.Holding
	for _, h := range s.holdings {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *stubHoldings) UpdateLastPrice(userID, symbol, exchange string, price float64) error {
	return nil
}

type stubMarketData struct {
	quotes     map[marketdata.SymbolKey]marketdata.Quote
	candles    []marketdata.Candle
	candlesErr error
}

func (s *stubMarketData) Quotes(ctx context.Context, keys []marketdata.SymbolKey) (map[marketdata.SymbolKey]marketdata.Quote, error) {
	out := make(map[marketdata.SymbolKey]marketdata.Quote)
	for _, k := range keys {
		if q, ok := s.quotes[k]; ok {
			out[k] = q
		}
	}
	return out, nil
}

func (s *stubMarketData) Candles(ctx context.Context, symbol, exchange string, days int) ([]marketdata.Candle, error) {
	if s.candlesErr != nil {
		return nil, s.candlesErr
	}
	return s.candles, nil
}

type serviceFixture struct {
	db        *database.DB
	service   *Service
	snapshots *SnapshotRepository
	holdings  *stubHoldings
	market    *stubMarketData
	wallets   *wallet.Repository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Pretty: false})

	db, err := database.New(filepath.Join(t.TempDir(), "performance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	snapshots := NewSnapshotRepository(db.Conn(), log)
	holdings := &stubHoldings{}
	market := &stubMarketData{quotes: map[marketdata.SymbolKey]marketdata.Quote{}}

	wallets := wallet.NewRepository(db.Conn(), 100000, domain.CurrencyINR, log)
	policy := wallet.NewMarginPolicy(4, 15, 20)
	valuator := wallet.NewValuator(wallets, holdings, market, policy, log)

	return &serviceFixture{
		db:        db,
		service:   NewService(snapshots, holdings, market, valuator, log),
		snapshots: snapshots,
		holdings:  holdings,
		market:    market,
		wallets:   wallets,
	}
}

func TestMetrics_EmptyHistory(t *testing.T) {
	f := newServiceFixture(t)

	m, err := f.service.Metrics(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 0, m.Days)
	assert.Equal(t, 0.0, m.TotalEquity)
	assert.Equal(t, 0.0, m.AnnualizedVolatility)
	assert.Nil(t, m.SharpeRatio)
	assert.Empty(t, m.Indicators)
}

func TestMetrics_SingleSnapshotSkipsSeriesStats(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, f.snapshots.Save(Snapshot{UserID: "u1", Date: "2025-06-02", TotalEquity: 105000}))

	m, err := f.service.Metrics(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, m.Days)
	assert.Equal(t, 105000.0, m.TotalEquity)
	assert.Equal(t, 0.0, m.AnnualizedVolatility, "volatility needs at least two points")
	assert.Nil(t, m.MaxDrawdown)
}

func TestMetrics_SeriesStats(t *testing.T) {
	f := newServiceFixture(t)
	series := []float64{100000, 110000, 99000, 104000}
	dates := []string{"2025-06-02", "2025-06-03", "2025-06-04", "2025-06-05"}
	for i, v := range series {
		require.NoError(t, f.snapshots.Save(Snapshot{UserID: "u1", Date: dates[i], TotalEquity: v}))
	}

	m, err := f.service.Metrics(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 4, m.Days)
	assert.Equal(t, 104000.0, m.TotalEquity)
	assert.Greater(t, m.AnnualizedVolatility, 0.0)
	assert.NotNil(t, m.SharpeRatio)
	// peak 110000, trough 99000
	require.NotNil(t, m.MaxDrawdown)
	assert.InDelta(t, 0.1, *m.MaxDrawdown, 0.0001)
}

func TestMetrics_IndicatorPerHolding(t *testing.T) {
	f := newServiceFixture(t)
	f.holdings.holdings = []domain.Holding{
		{UserID: "u1", Symbol: "TATA", Exchange: "NSE", ProductType: domain.ProductCNC, Quantity: 10, AveragePrice: 500},
	}
	for i := 0; i < 60; i++ {
		f.market.candles = append(f.market.candles, marketdata.Candle{Close: 500 + float64(i%7)})
	}

	m, err := f.service.Metrics(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, m.Indicators, 1)
	assert.Equal(t, "TATA", m.Indicators[0].Symbol)
	require.NotNil(t, m.Indicators[0].RSI)
	assert.Greater(t, *m.Indicators[0].RSI, 0.0)
	assert.Less(t, *m.Indicators[0].RSI, 100.0)
}

func TestMetrics_CandleFailureIsSoft(t *testing.T) {
	f := newServiceFixture(t)
	f.holdings.holdings = []domain.Holding{
		{UserID: "u1", Symbol: "TATA", Exchange: "NSE", ProductType: domain.ProductCNC, Quantity: 10, AveragePrice: 500},
	}
	f.market.candlesErr = fmt.Errorf("provider down")

	m, err := f.service.Metrics(context.Background(), "u1")
	require.NoError(t, err, "indicator failures must not fail the metrics read")

	require.Len(t, m.Indicators, 1)
	assert.Nil(t, m.Indicators[0].RSI)
}

func TestSnapshotRepository_SameDayOverwrite(t *testing.T) {
	f := newServiceFixture(t)

	require.NoError(t, f.snapshots.Save(Snapshot{UserID: "u1", Date: "2025-06-02", TotalEquity: 100000}))
	require.NoError(t, f.snapshots.Save(Snapshot{UserID: "u1", Date: "2025-06-02", TotalEquity: 101500}))

	series, err := f.snapshots.Series("u1", 365)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 101500.0, series[0])
}

func TestSnapshotAll_RecordsTotalEquity(t *testing.T) {
	f := newServiceFixture(t)

	// Materialize the wallet so the snapshot job sees the user
	_, err := f.wallets.Get("u1")
	require.NoError(t, err)

	f.holdings.holdings = []domain.Holding{
		{UserID: "u1", Symbol: "TATA", Exchange: "NSE", ProductType: domain.ProductCNC, Quantity: 10, AveragePrice: 500},
	}
	f.market.quotes[marketdata.SymbolKey{Symbol: "TATA", Exchange: "NSE"}] = marketdata.Quote{
		Symbol: "TATA", Exchange: "NSE", LastPrice: 600,
	}

	require.NoError(t, f.service.SnapshotAll(context.Background()))

	series, err := f.snapshots.Series("u1", 365)
	require.NoError(t, err)
	require.Len(t, series, 1)
	// cash 100000 plus holdings valued at 10 x 600
	assert.Equal(t, 106000.0, series[0])
}

// setWallet overwrites a lazily created wallet's cash and margin columns
func (f *serviceFixture) setWallet(t *testing.T, userID string, cash, misMargin float64) {
	t.Helper()

	w, err := f.wallets.Get(userID)
	require.NoError(t, err)
	w.VirtualCash = cash
	w.MISMarginUsed = misMargin
	require.NoError(t, f.wallets.UpdateTx(f.db.Conn(), w))
}

func TestSnapshotAll_MISCountsMarginNotNotional(t *testing.T) {
	f := newServiceFixture(t)

	// State after an MIS buy of 10 @ 500 at 4x leverage
	f.setWallet(t, "u1", 98750, 1250)
	f.holdings.holdings = []domain.Holding{
		{UserID: "u1", Symbol: "TATA", Exchange: "NSE", ProductType: domain.ProductMIS, Quantity: 10, AveragePrice: 500},
	}
	f.market.quotes[marketdata.SymbolKey{Symbol: "TATA", Exchange: "NSE"}] = marketdata.Quote{
		Symbol: "TATA", Exchange: "NSE", LastPrice: 500,
	}

	require.NoError(t, f.service.SnapshotAll(context.Background()))

	series, err := f.snapshots.Series("u1", 365)
	require.NoError(t, err)
	require.Len(t, series, 1)
	// Flat price means equity is exactly what closing out would leave:
	// 98750 cash plus the 1250 posted margin, never the 5000 notional
	assert.Equal(t, 100000.0, series[0])
}

func TestSnapshotAll_MISUnrealizedPnLMovesEquity(t *testing.T) {
	f := newServiceFixture(t)

	f.setWallet(t, "u1", 98750, 1250)
	f.holdings.holdings = []domain.Holding{
		{UserID: "u1", Symbol: "TATA", Exchange: "NSE", ProductType: domain.ProductMIS, Quantity: 10, AveragePrice: 500},
	}
	f.market.quotes[marketdata.SymbolKey{Symbol: "TATA", Exchange: "NSE"}] = marketdata.Quote{
		Symbol: "TATA", Exchange: "NSE", LastPrice: 520,
	}

	require.NoError(t, f.service.SnapshotAll(context.Background()))

	series, err := f.snapshots.Series("u1", 365)
	require.NoError(t, err)
	require.Len(t, series, 1)
	// 98750 + 1250 margin + 10 x 20 unrealized
	assert.Equal(t, 100200.0, series[0])
}

func TestSnapshotAll_MixedProductTypes(t *testing.T) {
	f := newServiceFixture(t)

	// CNC 10 @ 500 paid in full, then MIS 10 @ 500 on margin
	f.setWallet(t, "u1", 93750, 1250)
	f.holdings.holdings = []domain.Holding{
		{UserID: "u1", Symbol: "TATA", Exchange: "NSE", ProductType: domain.ProductCNC, Quantity: 10, AveragePrice: 500},
		{UserID: "u1", Symbol: "TATA", Exchange: "NSE", ProductType: domain.ProductMIS, Quantity: 10, AveragePrice: 500},
	}
	f.market.quotes[marketdata.SymbolKey{Symbol: "TATA", Exchange: "NSE"}] = marketdata.Quote{
		Symbol: "TATA", Exchange: "NSE", LastPrice: 510,
	}

	require.NoError(t, f.service.SnapshotAll(context.Background()))

	series, err := f.snapshots.Series("u1", 365)
	require.NoError(t, err)
	require.Len(t, series, 1)
	// 93750 cash + 1250 margin + CNC at market 5100 + MIS unrealized 100
	assert.Equal(t, 100200.0, series[0])
}
