package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/modules/performance"
	"github.com/aristath/paper-trader/internal/modules/trading"
	"github.com/aristath/paper-trader/internal/modules/wallet"
	"github.com/aristath/paper-trader/internal/modules/watchlist"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DevMode bool

	Wallet      *wallet.Handlers
	Trading     *trading.Handlers
	Watchlist   *watchlist.Handlers
	Performance *performance.Handlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes; everything under /api requires a resolved user identity
	s.router.Route("/api", func(r chi.Router) {
		r.Use(RequireUser)

		r.Route("/trading", func(r chi.Router) {
			r.Post("/buy", cfg.Trading.HandleBuy)
			r.Post("/sell", cfg.Trading.HandleSell)
			r.Get("/portfolio", cfg.Trading.HandlePortfolio)
			r.Get("/transactions", cfg.Trading.HandleTransactions)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/summary", cfg.Wallet.HandleSummary)
			r.Get("/details", cfg.Wallet.HandleDetails)
			r.Get("/balance", cfg.Wallet.HandleBalance)
			r.Get("/performance", cfg.Performance.HandleMetrics)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", cfg.Watchlist.HandleList)
			r.Post("/add", cfg.Watchlist.HandleAdd)
			r.Delete("/remove/{stockSymbol}", cfg.Watchlist.HandleRemove)
			r.Get("/count", cfg.Watchlist.HandleCount)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
