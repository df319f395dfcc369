package watchlist

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/domain"
)

// Repository handles watchlist database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "watchlist").Logger(),
	}
}

// Add inserts a watchlist entry. Adding an already-watched (symbol,
// exchange) fails with domain.ErrDuplicateWatchlistEntry; the row is never
// silently duplicated.
func (r *Repository) Add(userID, symbol, exchange string) (*Item, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	exchange = strings.ToUpper(strings.TrimSpace(exchange))

	now := time.Now()
	res, err := r.db.Exec(`
		INSERT INTO watchlist_items (user_id, symbol, exchange, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, symbol, exchange, now.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s on %s", domain.ErrDuplicateWatchlistEntry, symbol, exchange)
		}
		return nil, fmt.Errorf("failed to add watchlist item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist item id: %w", err)
	}

	return &Item{
		ID:        id,
		UserID:    userID,
		Symbol:    symbol,
		Exchange:  exchange,
		CreatedAt: now,
	}, nil
}

// Remove deletes a watchlist entry. Removing an absent entry is a no-op
// reported to the caller.
func (r *Repository) Remove(userID, symbol, exchange string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	exchange = strings.ToUpper(strings.TrimSpace(exchange))

	res, err := r.db.Exec(`
		DELETE FROM watchlist_items WHERE user_id = ? AND symbol = ? AND exchange = ?
	`, userID, symbol, exchange)
	if err != nil {
		return false, fmt.Errorf("failed to remove watchlist item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist removal: %w", err)
	}

	return affected > 0, nil
}

// List returns the user's watchlist, oldest first
func (r *Repository) List(userID string) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, symbol, exchange, created_at
		FROM watchlist_items
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var createdAt string
		if err := rows.Scan(&item.ID, &item.UserID, &item.Symbol, &item.Exchange, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			item.CreatedAt = t
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}

	return items, nil
}

// Count returns the number of entries on the user's watchlist
func (r *Repository) Count(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM watchlist_items WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count watchlist items: %w", err)
	}
	return count, nil
}

// isUniqueViolation detects a UNIQUE constraint failure from the sqlite
// driver
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
