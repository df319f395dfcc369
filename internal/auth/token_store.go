package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CachedToken is the persisted credential with its computed expiry
type CachedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenStore persists the singleton access token row
type TokenStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTokenStore creates a new token store
func NewTokenStore(db *sql.DB, log zerolog.Logger) *TokenStore {
	return &TokenStore{
		db:  db,
		log: log.With().Str("repo", "token").Logger(),
	}
}

// Load returns the cached token, or nil when none has been persisted yet
func (s *TokenStore) Load() (*CachedToken, error) {
	var token, expiresAt string
	err := s.db.QueryRow("SELECT token, expires_at FROM access_token WHERE id = 1").
		Scan(&token, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load access token: %w", err)
	}

	exp, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token expiry: %w", err)
	}

	return &CachedToken{Token: token, ExpiresAt: exp}, nil
}

// Save overwrites the singleton token row
func (s *TokenStore) Save(tok CachedToken) error {
	_, err := s.db.Exec(`
		INSERT INTO access_token (id, token, expires_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at
	`, tok.Token, tok.ExpiresAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}

	return nil
}
