package performance

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/api"
	"github.com/aristath/paper-trader/internal/domain"
)

// Handlers contains HTTP handlers for the performance API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new performance handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "performance").Logger(),
	}
}

// HandleMetrics returns the portfolio performance report
// GET /api/wallet/performance
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	userID := domain.UserIDFromContext(r.Context())

	metrics, err := h.service.Metrics(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute performance metrics")
		api.Error(w, err)
		return
	}

	api.OK(w, metrics)
}
