package watchlist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/pkg/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "watchlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	log := logger.New(logger.Config{Level: "error", Pretty: false})
	return NewRepository(db.Conn(), log)
}

func TestRepository_AddAndList(t *testing.T) {
	repo := newTestRepository(t)

	item, err := repo.Add("u1", "tata", "nse")
	require.NoError(t, err)
	assert.Equal(t, "TATA", item.Symbol, "symbols are normalized to upper case")
	assert.Equal(t, "NSE", item.Exchange)

	_, err = repo.Add("u1", "INFY", "NSE")
	require.NoError(t, err)

	items, err := repo.List("u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "TATA", items[0].Symbol)
	assert.Equal(t, "INFY", items[1].Symbol)
}

func TestRepository_DuplicateRejected(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Add("u1", "TATA", "NSE")
	require.NoError(t, err)

	_, err = repo.Add("u1", "TATA", "NSE")
	require.ErrorIs(t, err, domain.ErrDuplicateWatchlistEntry)

	// Normalization means case variants are the same entry
	_, err = repo.Add("u1", "tata", "nse")
	require.ErrorIs(t, err, domain.ErrDuplicateWatchlistEntry)

	count, err := repo.Count("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepository_SameSymbolDifferentExchange(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Add("u1", "TATA", "NSE")
	require.NoError(t, err)
	_, err = repo.Add("u1", "TATA", "BSE")
	require.NoError(t, err)

	count, err := repo.Count("u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRepository_IsolatedPerUser(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Add("u1", "TATA", "NSE")
	require.NoError(t, err)
	_, err = repo.Add("u2", "TATA", "NSE")
	require.NoError(t, err, "two users may watch the same instrument")

	items, err := repo.List("u2")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "u2", items[0].UserID)
}

func TestRepository_Remove(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Add("u1", "TATA", "NSE")
	require.NoError(t, err)

	removed, err := repo.Remove("u1", "TATA", "NSE")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove("u1", "TATA", "NSE")
	require.NoError(t, err)
	assert.False(t, removed, "removing an absent entry reports not found")

	count, err := repo.Count("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
