package watchlist

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/api"
	"github.com/aristath/paper-trader/internal/clients/marketdata"
	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/pkg/formulas"
)

// QuoteSource supplies batch quotes and price history for enrichment
type QuoteSource interface {
	Quotes(ctx context.Context, keys []marketdata.SymbolKey) (map[marketdata.SymbolKey]marketdata.Quote, error)
	Candles(ctx context.Context, symbol, exchange string, days int) ([]marketdata.Candle, error)
}

// Handlers contains HTTP handlers for the watchlist API
type Handlers struct {
	repo   *Repository
	quotes QuoteSource
	log    zerolog.Logger
}

// NewHandlers creates a new watchlist handlers instance. quotes may be nil;
// the list read then returns bare items.
func NewHandlers(repo *Repository, quotes QuoteSource, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:   repo,
		quotes: quotes,
		log:    log.With().Str("handler", "watchlist").Logger(),
	}
}

type addRequest struct {
	StockSymbol string `json:"stockSymbol"`
	Exchange    string `json:"exchange"`
}

// HandleAdd adds a symbol to the watchlist
// POST /api/watchlist/add
func (h *Handlers) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.StockSymbol) == "" || strings.TrimSpace(req.Exchange) == "" {
		api.Fail(w, http.StatusBadRequest, "stockSymbol and exchange are required")
		return
	}

	item, err := h.repo.Add(userID, req.StockSymbol, req.Exchange)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("symbol", req.StockSymbol).
			Msg("Failed to add watchlist item")
		api.Error(w, err)
		return
	}

	api.Created(w, item)
}

// HandleRemove removes a symbol from the watchlist
// DELETE /api/watchlist/remove/{stockSymbol}?exchange=
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())
	symbol := chi.URLParam(r, "stockSymbol")
	exchange := r.URL.Query().Get("exchange")

	if exchange == "" {
		api.Fail(w, http.StatusBadRequest, "exchange query parameter is required")
		return
	}

	removed, err := h.repo.Remove(userID, symbol, exchange)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("symbol", symbol).
			Msg("Failed to remove watchlist item")
		api.Error(w, err)
		return
	}

	if !removed {
		api.Fail(w, http.StatusNotFound, "watchlist item not found")
		return
	}

	api.OK(w, map[string]bool{"removed": true})
}

// HandleList returns the watchlist enriched with live quotes and RSI where
// the provider can supply them
// GET /api/watchlist
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	items, err := h.repo.List(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list watchlist")
		api.Error(w, err)
		return
	}

	api.OK(w, h.enrich(r.Context(), items))
}

// HandleCount returns the watchlist size
// GET /api/watchlist/count
func (h *Handlers) HandleCount(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	count, err := h.repo.Count(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to count watchlist")
		api.Error(w, err)
		return
	}

	api.OK(w, map[string]int{"count": count})
}

// enrich attaches quotes and a 14-period RSI to each item. Enrichment is
// best-effort: provider failures leave the bare item in place.
func (h *Handlers) enrich(ctx context.Context, items []Item) []EnrichedItem {
	enriched := make([]EnrichedItem, 0, len(items))
	for _, item := range items {
		enriched = append(enriched, EnrichedItem{Item: item})
	}

	if h.quotes == nil || len(items) == 0 {
		return enriched
	}

	keys := make([]marketdata.SymbolKey, 0, len(items))
	for _, item := range items {
		keys = append(keys, marketdata.SymbolKey{Symbol: item.Symbol, Exchange: item.Exchange})
	}

	quotes, err := h.quotes.Quotes(ctx, keys)
	if err != nil {
		h.log.Warn().Err(err).Msg("Watchlist quote enrichment failed")
		return enriched
	}

	for i := range enriched {
		quote, ok := quotes[marketdata.SymbolKey{Symbol: enriched[i].Symbol, Exchange: enriched[i].Exchange}]
		if !ok {
			continue
		}

		enriched[i].LastPrice = quote.LastPrice
		enriched[i].PrevClose = quote.PrevClose
		if quote.PrevClose > 0 {
			enriched[i].DayChange = (quote.LastPrice - quote.PrevClose) / quote.PrevClose * 100
		}

		if candles, err := h.quotes.Candles(ctx, enriched[i].Symbol, enriched[i].Exchange, 60); err == nil {
			closes := make([]float64, 0, len(candles))
			for _, c := range candles {
				closes = append(closes, c.Close)
			}
			enriched[i].RSI = formulas.CalculateRSI(closes, 14)
		}
	}

	return enriched
}
