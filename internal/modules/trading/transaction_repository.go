package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/domain"
)

// TransactionRepository handles the append-only transaction ledger.
// Rows are created exactly once per executed order and never mutated.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// CreateTx appends a transaction record within the engine's ledger
// transaction scope
func (r *TransactionRepository) CreateTx(q Queryer, t *domain.Transaction) error {
	_, err := q.Exec(`
		INSERT INTO transactions
		(id, user_id, type, symbol, exchange, product_type, quantity, price, total_amount, status, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.UserID,
		string(t.Type),
		t.Symbol,
		t.Exchange,
		string(t.ProductType),
		t.Quantity,
		t.Price,
		t.TotalAmount,
		string(t.Status),
		t.ExecutedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// History retrieves the user's transactions, most recent first
func (r *TransactionRepository) History(userID string, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(`
		SELECT id, user_id, type, symbol, exchange, product_type, quantity, price, total_amount, status, executed_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY executed_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// Count returns the user's total transaction count, for pagination
func (r *TransactionRepository) Count(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transactions WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var t domain.Transaction
	var side, productType, status, executedAt string

	err := row.Scan(&t.ID, &t.UserID, &side, &t.Symbol, &t.Exchange, &productType,
		&t.Quantity, &t.Price, &t.TotalAmount, &status, &executedAt)
	if err != nil {
		return domain.Transaction{}, err
	}

	t.Type = domain.Side(side)
	t.ProductType = domain.ProductType(productType)
	t.Status = domain.TransactionStatus(status)
	if ts, err := time.Parse(time.RFC3339, executedAt); err == nil {
		t.ExecutedAt = ts
	}

	return t, nil
}
