package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/clients/marketdata"
	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/internal/modules/wallet"
	"github.com/aristath/paper-trader/pkg/formulas"
)

// riskFreeRate for Sharpe; flat assumption, not configurable
const riskFreeRate = 0.04

// HoldingSource supplies a user's open holdings
type HoldingSource interface {
	GetAll(userID string) ([]domain.Holding, error)
}

// CandleSource supplies daily price history per instrument
type CandleSource interface {
	Candles(ctx context.Context, symbol, exchange string, days int) ([]marketdata.Candle, error)
}

// Service computes portfolio performance from the daily equity snapshot
// series plus live per-holding indicators
type Service struct {
	snapshots *SnapshotRepository
	holdings  HoldingSource
	candles   CandleSource
	valuator  *wallet.Valuator
	log       zerolog.Logger
}

// NewService creates a new performance service
func NewService(
	snapshots *SnapshotRepository,
	holdings HoldingSource,
	candles CandleSource,
	valuator *wallet.Valuator,
	log zerolog.Logger,
) *Service {
	return &Service{
		snapshots: snapshots,
		holdings:  holdings,
		candles:   candles,
		valuator:  valuator,
		log:       log.With().Str("service", "performance").Logger(),
	}
}

// Metrics computes volatility, Sharpe and max drawdown over the snapshot
// series, plus RSI per holding. Indicator failures are soft; series metrics
// need at least two snapshots.
func (s *Service) Metrics(ctx context.Context, userID string) (*Metrics, error) {
	series, err := s.snapshots.Series(userID, 365)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		Days:       len(series),
		Indicators: []HoldingIndicator{},
	}

	if len(series) > 0 {
		m.TotalEquity = domain.Round2(series[len(series)-1])
	}

	if len(series) >= 2 {
		returns := formulas.CalculateReturns(series)
		m.AnnualizedVolatility = formulas.AnnualizedVolatility(returns)
		m.SharpeRatio = formulas.CalculateSharpeRatio(returns, riskFreeRate, 252)
		m.MaxDrawdown = formulas.CalculateMaxDrawdown(series)
	}

	holdings, err := s.holdings.GetAll(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	for _, h := range holdings {
		indicator := HoldingIndicator{Symbol: h.Symbol, Exchange: h.Exchange}

		candles, err := s.candles.Candles(ctx, h.Symbol, h.Exchange, 60)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to get candles for RSI")
		} else {
			closes := make([]float64, 0, len(candles))
			for _, c := range candles {
				closes = append(closes, c.Close)
			}
			indicator.RSI = formulas.CalculateRSI(closes, 14)
		}

		m.Indicators = append(m.Indicators, indicator)
	}

	return m, nil
}

// SnapshotAll records today's total equity for every user with a wallet.
// Run by the scheduler after market close.
//
// Equity is what liquidating everything would leave in cash: delivery
// holdings count at market value, intraday holdings count as the posted
// margin plus unrealized P&L (the margin already sits in misMarginUsed, so
// adding the full notional would double count the leverage).
func (s *Service) SnapshotAll(ctx context.Context) error {
	users, err := s.snapshots.Users()
	if err != nil {
		return err
	}

	date := time.Now().Format("2006-01-02")
	var failed int

	for _, userID := range users {
		details, err := s.valuator.Details(ctx, userID)
		if err != nil {
			failed++
			s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to value user for snapshot")
			continue
		}

		equity := details.Summary.VirtualCash + details.Summary.MISMarginUsed
		for _, hv := range details.Holdings {
			if hv.ProductType == domain.ProductMIS {
				equity += hv.UnrealizedPnL
			} else {
				equity += hv.CurrentValue
			}
		}

		snap := Snapshot{
			UserID:      userID,
			Date:        date,
			TotalEquity: domain.Round2(equity),
		}
		if err := s.snapshots.Save(snap); err != nil {
			failed++
			s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to save snapshot")
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to snapshot %d of %d users", failed, len(users))
	}

	s.log.Info().Int("users", len(users)).Str("date", date).Msg("Equity snapshots recorded")
	return nil
}
