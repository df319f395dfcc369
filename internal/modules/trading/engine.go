package trading

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/clients/marketdata"
	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/internal/modules/wallet"
)

// PriceSource supplies the last traded price for an instrument. Implemented
// by the market data client.
type PriceSource interface {
	Quote(ctx context.Context, symbol, exchange string) (*marketdata.Quote, error)
}

// Engine validates and applies orders against the ledger.
//
// Per-user mutations are linearized: the price is fetched first (so an
// oracle timeout aborts before anything is touched), then the user's lock is
// taken and the whole ledger update runs in a single SQL transaction, so
// either all of it commits or none of it does.
//
// Execution is not idempotent: the engine has no dedup key, so a retried
// call executes twice. Callers must not blind-retry after a timeout that may
// have followed the commit.
type Engine struct {
	db           *sql.DB
	wallets      *wallet.Repository
	holdings     *HoldingRepository
	transactions *TransactionRepository
	policy       *wallet.MarginPolicy
	prices       PriceSource
	locks        *userLocks
	now          func() time.Time
	log          zerolog.Logger
}

// conflictRetries bounds internal retries on commit contention before the
// failure surfaces as domain.ErrLedgerConflict.
const conflictRetries = 3

// NewEngine creates a new order execution engine
func NewEngine(
	db *sql.DB,
	wallets *wallet.Repository,
	holdings *HoldingRepository,
	transactions *TransactionRepository,
	policy *wallet.MarginPolicy,
	prices PriceSource,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		db:           db,
		wallets:      wallets,
		holdings:     holdings,
		transactions: transactions,
		policy:       policy,
		prices:       prices,
		locks:        newUserLocks(),
		now:          time.Now,
		log:          log.With().Str("service", "engine").Logger(),
	}
}

// Execute applies one order to the user's ledger and returns the appended
// transaction record
func (e *Engine) Execute(ctx context.Context, userID string, order *Order) (*domain.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	// Price first: an unpriceable or timed-out quote must abort before any
	// ledger state is touched.
	quote, err := e.prices.Quote(ctx, order.Symbol, order.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to price order: %w", err)
	}
	price := quote.LastPrice

	// New intraday positions are rejected after the daily cutoff; sells
	// remain allowed as closing-only.
	if order.Side.IsBuy() && order.ProductType.IsIntraday() && e.policy.IsPastCutoff(e.now()) {
		return nil, domain.ErrMarketClosed
	}

	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	var txn *domain.Transaction
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		txn, lastErr = e.apply(userID, order, price)
		if lastErr == nil {
			break
		}
		if !isRetryable(lastErr) {
			return nil, lastErr
		}
		e.log.Warn().Err(lastErr).Int("attempt", attempt+1).Str("user_id", userID).
			Msg("Ledger commit contention, retrying")
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerConflict, lastErr)
	}

	e.log.Info().
		Str("user_id", userID).
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Str("product_type", string(order.ProductType)).
		Int64("quantity", order.Quantity).
		Float64("price", price).
		Msg("Order executed")

	return txn, nil
}

// apply runs one attempt of the full ledger mutation in a single SQL
// transaction
func (e *Engine) apply(userID string, order *Order, price float64) (*domain.Transaction, error) {
	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	w, err := e.wallets.GetTx(tx, userID)
	if err != nil {
		return nil, err
	}

	if order.Side.IsBuy() {
		err = e.applyBuy(tx, w, order, price)
	} else {
		err = e.applySell(tx, w, order, price)
	}
	if err != nil {
		return nil, err
	}

	if err := e.wallets.UpdateTx(tx, w); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        order.Side,
		Symbol:      order.Symbol,
		Exchange:    order.Exchange,
		ProductType: order.ProductType,
		Quantity:    order.Quantity,
		Price:       price,
		TotalAmount: float64(order.Quantity) * price,
		Status:      domain.TransactionExecuted,
		ExecutedAt:  e.now(),
	}
	if err := e.transactions.CreateTx(tx, txn); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger transaction: %w", err)
	}

	return txn, nil
}

// applyBuy debits the wallet per the margin policy and creates or averages
// up the holding
func (e *Engine) applyBuy(tx *sql.Tx, w *wallet.Wallet, order *Order, price float64) error {
	notional := float64(order.Quantity) * price

	required, err := e.policy.CheckFunds(w, notional, order.ProductType)
	if err != nil {
		return err
	}

	w.VirtualCash -= required
	if order.ProductType.IsIntraday() {
		w.MISMarginUsed += required
	}

	h, err := e.holdings.GetTx(tx, w.UserID, order.Symbol, order.Exchange, order.ProductType)
	if err != nil {
		return err
	}

	if h == nil {
		h = &domain.Holding{
			UserID:       w.UserID,
			Symbol:       order.Symbol,
			Exchange:     order.Exchange,
			ProductType:  order.ProductType,
			Quantity:     order.Quantity,
			AveragePrice: price,
		}
	} else {
		// Quantity-weighted average cost basis
		oldCost := float64(h.Quantity) * h.AveragePrice
		h.AveragePrice = (oldCost + notional) / float64(h.Quantity+order.Quantity)
		h.Quantity += order.Quantity
	}
	h.LastPrice = price

	return e.holdings.UpsertTx(tx, h)
}

// applySell validates the holding, books realized P&L and credits the
// wallet. The average price of the remaining lot is unchanged.
func (e *Engine) applySell(tx *sql.Tx, w *wallet.Wallet, order *Order, price float64) error {
	h, err := e.holdings.GetTx(tx, w.UserID, order.Symbol, order.Exchange, order.ProductType)
	if err != nil {
		return err
	}

	if h == nil || order.Quantity > h.Quantity {
		held := int64(0)
		if h != nil {
			held = h.Quantity
		}
		return fmt.Errorf("%w: selling %d, holding %d of %s",
			domain.ErrInsufficientHoldings, order.Quantity, held, order.Symbol)
	}

	realized := float64(order.Quantity) * (price - h.AveragePrice)

	var credit float64
	if order.ProductType.IsIntraday() {
		// Release the proportional margin and book the P&L against it
		release := e.policy.MarginRelease(order.Quantity, h.AveragePrice)
		credit = release + realized
		w.MISMarginUsed -= release
		if w.MISMarginUsed < 0 {
			w.MISMarginUsed = 0
		}
	} else {
		credit = float64(order.Quantity) * price
	}

	w.VirtualCash += credit
	if w.VirtualCash < 0 {
		// An intraday loss larger than remaining cash bottoms out at zero;
		// the wallet has no debt concept.
		e.log.Warn().Str("user_id", w.UserID).Float64("deficit", -w.VirtualCash).
			Msg("Sell loss exceeded cash, flooring wallet at zero")
		w.VirtualCash = 0
	}

	return e.holdings.ReduceTx(tx, h, order.Quantity, price)
}

// SquareOffMIS force-closes every open intraday position at market price.
// Run by the scheduler at the daily cutoff. Holdings that cannot be priced
// are skipped and retried on the next run.
func (e *Engine) SquareOffMIS(ctx context.Context) error {
	holdings, err := e.holdings.GetAllMIS()
	if err != nil {
		return fmt.Errorf("failed to list MIS holdings: %w", err)
	}

	var failed int
	for _, h := range holdings {
		order := &Order{
			Symbol:      h.Symbol,
			Exchange:    h.Exchange,
			Quantity:    h.Quantity,
			Side:        domain.SideSell,
			ProductType: domain.ProductMIS,
		}

		if _, err := e.Execute(ctx, h.UserID, order); err != nil {
			failed++
			e.log.Error().Err(err).
				Str("user_id", h.UserID).
				Str("symbol", h.Symbol).
				Msg("Failed to square off MIS position")
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to square off %d of %d MIS positions", failed, len(holdings))
	}

	e.log.Info().Int("positions", len(holdings)).Msg("MIS square-off complete")
	return nil
}

// isRetryable reports whether an error is commit contention worth retrying
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
