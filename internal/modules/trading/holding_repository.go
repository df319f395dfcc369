package trading

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/domain"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx
type Queryer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// HoldingRepository handles holding database operations
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// GetAll returns all open holdings for a user
func (r *HoldingRepository) GetAll(userID string) ([]domain.Holding, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, symbol, exchange, product_type, quantity, average_price, last_price, updated_at
		FROM holdings
		WHERE user_id = ?
		ORDER BY symbol, exchange, product_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// GetTx returns one holding within a transaction scope, or nil when the user
// holds nothing under that key
func (r *HoldingRepository) GetTx(q Queryer, userID, symbol, exchange string, productType domain.ProductType) (*domain.Holding, error) {
	row := q.QueryRow(`
		SELECT id, user_id, symbol, exchange, product_type, quantity, average_price, last_price, updated_at
		FROM holdings
		WHERE user_id = ? AND symbol = ? AND exchange = ? AND product_type = ?
	`, userID, symbol, exchange, string(productType))

	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &h, nil
}

// UpsertTx creates the holding on first buy or rewrites quantity and average
// price on subsequent buys
func (r *HoldingRepository) UpsertTx(q Queryer, h *domain.Holding) error {
	now := time.Now().Format(time.RFC3339)

	_, err := q.Exec(`
		INSERT INTO holdings (user_id, symbol, exchange, product_type, quantity, average_price, last_price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, symbol, exchange, product_type) DO UPDATE SET
			quantity = excluded.quantity,
			average_price = excluded.average_price,
			last_price = excluded.last_price,
			updated_at = excluded.updated_at
	`, h.UserID, h.Symbol, h.Exchange, string(h.ProductType), h.Quantity, h.AveragePrice, h.LastPrice, now)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}

	return nil
}

// ReduceTx decrements quantity after a sell, deleting the row when it
// reaches zero. Average price is untouched: the cost basis of the remaining
// lot is unaffected by a sell.
func (r *HoldingRepository) ReduceTx(q Queryer, h *domain.Holding, soldQty int64, lastPrice float64) error {
	remaining := h.Quantity - soldQty

	if remaining <= 0 {
		_, err := q.Exec("DELETE FROM holdings WHERE id = ?", h.ID)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		return nil
	}

	now := time.Now().Format(time.RFC3339)
	_, err := q.Exec(`
		UPDATE holdings SET quantity = ?, last_price = ?, updated_at = ? WHERE id = ?
	`, remaining, lastPrice, now, h.ID)
	if err != nil {
		return fmt.Errorf("failed to reduce holding: %w", err)
	}

	return nil
}

// GetAllMIS returns every open intraday holding across all users, for the
// cutoff square-off job
func (r *HoldingRepository) GetAllMIS() ([]domain.Holding, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, symbol, exchange, product_type, quantity, average_price, last_price, updated_at
		FROM holdings
		WHERE product_type = ?
		ORDER BY user_id
	`, string(domain.ProductMIS))
	if err != nil {
		return nil, fmt.Errorf("failed to query MIS holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating MIS holdings: %w", err)
	}

	return holdings, nil
}

// UpdateLastPrice stores the most recent successfully quoted price on all of
// the user's holdings of a symbol. Used by the valuator for stale fallback.
//
// Runs without the per-user order lock: last_price is a quote cache that
// never feeds order execution, and the single UPDATE cannot interleave with
// a ledger transaction halfway. Worst case a concurrent sell deletes the row
// first and the update touches nothing.
func (r *HoldingRepository) UpdateLastPrice(userID, symbol, exchange string, price float64) error {
	_, err := r.db.Exec(`
		UPDATE holdings SET last_price = ?
		WHERE user_id = ? AND symbol = ? AND exchange = ?
	`, price, userID, symbol, exchange)
	if err != nil {
		return fmt.Errorf("failed to update last price: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(row rowScanner) (domain.Holding, error) {
	var h domain.Holding
	var productType, updatedAt string

	err := row.Scan(&h.ID, &h.UserID, &h.Symbol, &h.Exchange, &productType,
		&h.Quantity, &h.AveragePrice, &h.LastPrice, &updatedAt)
	if err != nil {
		return domain.Holding{}, err
	}

	h.ProductType = domain.ProductType(productType)
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		h.UpdatedAt = t
	}

	return h, nil
}
