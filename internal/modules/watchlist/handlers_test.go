package watchlist

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/pkg/logger"
)

func newTestHandlers(t *testing.T) (*Handlers, *Repository) {
	t.Helper()

	repo := newTestRepository(t)
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	return NewHandlers(repo, nil, log), repo
}

func doRemove(h *Handlers, userID, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Delete("/api/watchlist/remove/{stockSymbol}", h.HandleRemove)

	req := httptest.NewRequest(http.MethodDelete, target, nil)
	req = req.WithContext(domain.WithUserID(req.Context(), userID))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleRemove_RequiresExchange(t *testing.T) {
	h, repo := newTestHandlers(t)
	_, err := repo.Add("u1", "TATA", "NSE")
	require.NoError(t, err)

	rec := doRemove(h, "u1", "/api/watchlist/remove/TATA")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The entry must survive an underspecified delete
	count, err := repo.Count("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandleRemove_DeletesOnlyTheNamedExchange(t *testing.T) {
	h, repo := newTestHandlers(t)
	_, err := repo.Add("u1", "TATA", "NSE")
	require.NoError(t, err)
	_, err = repo.Add("u1", "TATA", "BSE")
	require.NoError(t, err)

	rec := doRemove(h, "u1", "/api/watchlist/remove/TATA?exchange=NSE")
	assert.Equal(t, http.StatusOK, rec.Code)

	items, err := repo.List("u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "BSE", items[0].Exchange)
}

func TestHandleRemove_AbsentEntryIsNotFound(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := doRemove(h, "u1", "/api/watchlist/remove/TATA?exchange=NSE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
