package trading

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/api"
	"github.com/aristath/paper-trader/internal/domain"
)

// Handlers contains HTTP handlers for the trading API
type Handlers struct {
	engine       *Engine
	holdings     *HoldingRepository
	transactions *TransactionRepository
	log          zerolog.Logger
}

// NewHandlers creates a new trading handlers instance
func NewHandlers(
	engine *Engine,
	holdings *HoldingRepository,
	transactions *TransactionRepository,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		engine:       engine,
		holdings:     holdings,
		transactions: transactions,
		log:          log.With().Str("handler", "trading").Logger(),
	}
}

// HandleBuy executes a buy order
// POST /api/trading/buy
//
// Submission carries no idempotency key: a client that retries after a
// timeout may execute the order twice.
func (h *Handlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.executeOrder(w, r, domain.SideBuy)
}

// HandleSell executes a sell order
// POST /api/trading/sell
func (h *Handlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.executeOrder(w, r, domain.SideSell)
}

func (h *Handlers) executeOrder(w http.ResponseWriter, r *http.Request, side domain.Side) {
	userID := domain.UserIDFromContext(r.Context())

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := req.toOrder(side)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	txn, err := h.engine.Execute(r.Context(), userID, order)
	if err != nil {
		h.log.Error().Err(err).
			Str("user_id", userID).
			Str("symbol", order.Symbol).
			Str("side", string(side)).
			Msg("Order execution failed")
		api.Error(w, err)
		return
	}

	api.Created(w, txn)
}

// HandlePortfolio returns the user's open holdings
// GET /api/trading/portfolio
func (h *Handlers) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	holdings, err := h.holdings.GetAll(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get portfolio")
		api.Error(w, err)
		return
	}

	if holdings == nil {
		holdings = []domain.Holding{}
	}

	api.OK(w, holdings)
}

// HandleTransactions returns paginated transaction history
// GET /api/trading/transactions?limit=&offset=
func (h *Handlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	transactions, err := h.transactions.History(userID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get transactions")
		api.Error(w, err)
		return
	}

	total, err := h.transactions.Count(userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to count transactions")
		api.Error(w, err)
		return
	}

	if transactions == nil {
		transactions = []domain.Transaction{}
	}

	api.OK(w, map[string]interface{}{
		"transactions": transactions,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}
