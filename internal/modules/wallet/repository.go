package wallet

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/domain"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx, so wallet reads and
// writes can participate in the engine's ledger transaction.
type Queryer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Repository handles wallet database operations
type Repository struct {
	db           *sql.DB
	startingCash float64
	currency     domain.Currency
	log          zerolog.Logger
}

// NewRepository creates a new wallet repository. startingCash is the virtual
// cash granted when a wallet is lazily created on first read.
func NewRepository(db *sql.DB, startingCash float64, currency domain.Currency, log zerolog.Logger) *Repository {
	return &Repository{
		db:           db,
		startingCash: startingCash,
		currency:     currency,
		log:          log.With().Str("repo", "wallet").Logger(),
	}
}

// Get returns the user's wallet, creating it with the starting cash grant on
// first read
func (r *Repository) Get(userID string) (*Wallet, error) {
	return r.GetTx(r.db, userID)
}

// GetTx is Get within a caller-supplied transaction scope
func (r *Repository) GetTx(q Queryer, userID string) (*Wallet, error) {
	w, err := r.scan(q, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	// Lazy creation on first read
	now := time.Now().Format(time.RFC3339)
	_, err = q.Exec(`
		INSERT INTO wallets (user_id, virtual_cash, currency, mis_margin_used, updated_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, r.startingCash, string(r.currency), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	r.log.Info().Str("user_id", userID).Float64("starting_cash", r.startingCash).Msg("Wallet created")

	w, err = r.scan(q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet after create: %w", err)
	}

	return w, nil
}

// UpdateTx writes the wallet's cash and margin columns within a transaction.
// The engine is the only caller; cash must already be validated non-negative.
func (r *Repository) UpdateTx(q Queryer, w *Wallet) error {
	now := time.Now()
	res, err := q.Exec(`
		UPDATE wallets
		SET virtual_cash = ?, mis_margin_used = ?, updated_at = ?
		WHERE user_id = ?
	`, w.VirtualCash, w.MISMarginUsed, now.Format(time.RFC3339), w.UserID)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check wallet update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("wallet not found for user %s", w.UserID)
	}

	w.UpdatedAt = now
	return nil
}

func (r *Repository) scan(q Queryer, userID string) (*Wallet, error) {
	var w Wallet
	var currency, updatedAt string

	err := q.QueryRow(`
		SELECT user_id, virtual_cash, currency, mis_margin_used, updated_at
		FROM wallets WHERE user_id = ?
	`, userID).Scan(&w.UserID, &w.VirtualCash, &currency, &w.MISMarginUsed, &updatedAt)
	if err != nil {
		return nil, err
	}

	w.Currency = domain.Currency(currency)
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		w.UpdatedAt = t
	}

	return &w, nil
}
