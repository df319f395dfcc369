package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/paper-trader/internal/auth"
	"github.com/aristath/paper-trader/internal/clients/marketdata"
	"github.com/aristath/paper-trader/internal/config"
	"github.com/aristath/paper-trader/internal/database"
	"github.com/aristath/paper-trader/internal/domain"
	"github.com/aristath/paper-trader/internal/modules/performance"
	"github.com/aristath/paper-trader/internal/modules/trading"
	"github.com/aristath/paper-trader/internal/modules/wallet"
	"github.com/aristath/paper-trader/internal/modules/watchlist"
	"github.com/aristath/paper-trader/internal/scheduler"
	"github.com/aristath/paper-trader/internal/server"
	"github.com/aristath/paper-trader/pkg/logger"
)

func main() {
	// Load configuration first so the log level is right from the start
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting paper trader")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Market data client with the cached provider credential
	md := marketdata.NewClient(cfg.MarketDataURL, cfg.APIKey, cfg.APISecret, log)
	tokenStore := auth.NewTokenStore(db.Conn(), log)
	tokenCache := auth.NewTokenCache(tokenStore, md, cfg.RefreshHour, log)
	md.SetTokenSource(tokenCache)

	// Repositories
	walletRepo := wallet.NewRepository(db.Conn(), cfg.StartingCash, domain.Currency(cfg.Currency), log)
	holdingRepo := trading.NewHoldingRepository(db.Conn(), log)
	transactionRepo := trading.NewTransactionRepository(db.Conn(), log)
	watchlistRepo := watchlist.NewRepository(db.Conn(), log)
	snapshotRepo := performance.NewSnapshotRepository(db.Conn(), log)

	// Services
	cutoffHour, cutoffMinute := cfg.CutoffClock()
	policy := wallet.NewMarginPolicy(cfg.MISLeverage, cutoffHour, cutoffMinute)
	valuator := wallet.NewValuator(walletRepo, holdingRepo, md, policy, log)
	engine := trading.NewEngine(db.Conn(), walletRepo, holdingRepo, transactionRepo, policy, md, log)
	perfService := performance.NewService(snapshotRepo, holdingRepo, md, valuator, log)

	// Scheduler and background jobs
	sched := scheduler.New(log)
	if err := registerJobs(sched, cfg, engine, perfService, tokenCache); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		DevMode:     cfg.DevMode,
		Wallet:      wallet.NewHandlers(valuator, log),
		Trading:     trading.NewHandlers(engine, holdingRepo, transactionRepo, log),
		Watchlist:   watchlist.NewHandlers(watchlistRepo, md, log),
		Performance: performance.NewHandlers(perfService, log),
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	engine *trading.Engine,
	perf *performance.Service,
	tokens *auth.TokenCache,
) error {
	cutoffHour, cutoffMinute := cfg.CutoffClock()

	// Force-close intraday positions at the daily cutoff
	squareOff := fmt.Sprintf("%d %d * * MON-FRI", cutoffMinute, cutoffHour)
	if err := sched.AddJob(squareOff, scheduler.NewFuncJob("mis_square_off", engine.SquareOffMIS)); err != nil {
		return err
	}

	// Record each user's total equity after close
	if err := sched.AddJob("0 18 * * MON-FRI", scheduler.NewFuncJob("equity_snapshot", perf.SnapshotAll)); err != nil {
		return err
	}

	// Warm the provider token right after the daily expiry boundary
	warm := fmt.Sprintf("1 %d * * *", cfg.RefreshHour)
	return sched.AddJob(warm, scheduler.NewFuncJob("token_warm", func(ctx context.Context) error {
		_, err := tokens.Get(ctx)
		return err
	}))
}
