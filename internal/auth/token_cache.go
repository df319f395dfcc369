// Package auth owns the shared access token for the market data provider.
//
// The provider invalidates every token at a fixed hour each day, so the cache
// computes its own expiry (next boundary minus a one-minute safety margin)
// instead of trusting the provider's expires_in.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/domain"
)

// Issuer performs the external token-issuing call
type Issuer interface {
	IssueToken(ctx context.Context) (string, error)
}

// Store persists the singleton cached token. Implemented by TokenStore;
// a failing store only degrades the cache, it never fails a Get.
type Store interface {
	Load() (*CachedToken, error)
	Save(tok CachedToken) error
}

// TokenCache serves the shared provider credential, refreshing it at most
// once per expiry window within this process. Refresh is serialized by a
// mutex, so concurrent cache misses in one process issue a single token;
// across processes the last writer's token wins in the store, which is
// acceptable for a credential (unlike a financial mutation).
type TokenCache struct {
	store       Store
	issuer      Issuer
	refreshHour int
	now         func() time.Time

	mu     sync.Mutex
	cached *CachedToken

	log zerolog.Logger
}

// NewTokenCache creates a new token cache. refreshHour is the provider's
// daily expiry boundary (hour of day, local time).
func NewTokenCache(store Store, issuer Issuer, refreshHour int, log zerolog.Logger) *TokenCache {
	return &TokenCache{
		store:       store,
		issuer:      issuer,
		refreshHour: refreshHour,
		now:         time.Now,
		log:         log.With().Str("component", "token_cache").Logger(),
	}
}

// Get returns a valid access token, refreshing it when the current one has
// expired. Returns domain.ErrTokenUnavailable only when issuing itself fails.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	// In-memory hit
	if c.cached != nil && now.Before(c.cached.ExpiresAt) {
		return c.cached.Token, nil
	}

	// Persisted hit (another process may have refreshed already)
	stored, err := c.store.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("Token store unreadable, running uncached")
		return c.issueUncached(ctx)
	}
	if stored != nil && now.Before(stored.ExpiresAt) {
		c.cached = stored
		return stored.Token, nil
	}

	// Miss or expired: issue exactly one fresh token for this call
	token, err := c.issuer.IssueToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}

	fresh := CachedToken{Token: token, ExpiresAt: c.nextExpiry(now)}
	if err := c.store.Save(fresh); err != nil {
		// Correctness over efficiency: serve the token anyway, every call
		// during the outage re-issues.
		c.log.Warn().Err(err).Msg("Token store unwritable, token not cached")
		return token, nil
	}

	c.cached = &fresh
	c.log.Info().Time("expires_at", fresh.ExpiresAt).Msg("Access token refreshed")

	return token, nil
}

// issueUncached issues a token without touching the store or the in-memory
// copy. Used while the store is unavailable.
func (c *TokenCache) issueUncached(ctx context.Context) (string, error) {
	token, err := c.issuer.IssueToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}
	return token, nil
}

// nextExpiry computes the next daily boundary minus a one-minute margin, so
// tokens are refreshed strictly before the provider's hard cutoff even with
// clock skew.
func (c *TokenCache) nextExpiry(now time.Time) time.Time {
	boundary := time.Date(now.Year(), now.Month(), now.Day(), c.refreshHour, 0, 0, 0, now.Location())
	if !now.Before(boundary) {
		boundary = boundary.AddDate(0, 0, 1)
	}
	return boundary.Add(-time.Minute)
}
