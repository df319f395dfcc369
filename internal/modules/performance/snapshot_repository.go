package performance

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// SnapshotRepository handles daily equity snapshot persistence
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Save records a day's equity, overwriting a same-day snapshot so the job
// can run more than once per day
func (r *SnapshotRepository) Save(s Snapshot) error {
	_, err := r.db.Exec(`
		INSERT INTO equity_snapshots (user_id, date, total_equity)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET total_equity = excluded.total_equity
	`, s.UserID, s.Date, s.TotalEquity)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// Series returns the user's equity values, oldest first, capped at days
func (r *SnapshotRepository) Series(userID string, days int) ([]float64, error) {
	if days <= 0 {
		days = 365
	}

	rows, err := r.db.Query(`
		SELECT total_equity FROM (
			SELECT date, total_equity FROM equity_snapshots
			WHERE user_id = ?
			ORDER BY date DESC
			LIMIT ?
		) ORDER BY date ASC
	`, userID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return values, nil
}

// Users returns every user that has a wallet, for the snapshot job
func (r *SnapshotRepository) Users() ([]string, error) {
	rows, err := r.db.Query("SELECT user_id FROM wallets")
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
