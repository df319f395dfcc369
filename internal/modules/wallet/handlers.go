package wallet

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/api"
	"github.com/aristath/paper-trader/internal/domain"
)

// Handlers contains HTTP handlers for the wallet API
type Handlers struct {
	valuator *Valuator
	log      zerolog.Logger
}

// NewHandlers creates a new wallet handlers instance
func NewHandlers(valuator *Valuator, log zerolog.Logger) *Handlers {
	return &Handlers{
		valuator: valuator,
		log:      log.With().Str("handler", "wallet").Logger(),
	}
}

// HandleSummary returns the aggregated wallet view
// GET /api/wallet/summary
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	summary, err := h.valuator.Summary(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get wallet summary")
		api.Error(w, err)
		return
	}

	api.OK(w, summary)
}

// HandleDetails returns the wallet summary plus per-holding valuations
// GET /api/wallet/details
func (h *Handlers) HandleDetails(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	details, err := h.valuator.Details(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get wallet details")
		api.Error(w, err)
		return
	}

	api.OK(w, details)
}

// HandleBalance returns only the cash view
// GET /api/wallet/balance
func (h *Handlers) HandleBalance(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	balance, err := h.valuator.Balance(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get wallet balance")
		api.Error(w, err)
		return
	}

	api.OK(w, balance)
}
