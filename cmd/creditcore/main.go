package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/virtustage/creditcore/internal/config"
	"github.com/virtustage/creditcore/internal/db"
	"github.com/virtustage/creditcore/internal/generation"
	"github.com/virtustage/creditcore/internal/handlers"
	"github.com/virtustage/creditcore/internal/repository"
	"github.com/virtustage/creditcore/internal/service"
	"github.com/virtustage/creditcore/internal/storage"
	"github.com/virtustage/creditcore/internal/sweeper"
	"github.com/virtustage/creditcore/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting creditcore api",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	database, err := db.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	blobs, err := storage.NewGCSStore(ctx, &cfg.Storage, cfg.Generation.FetchTimeout)
	if err != nil {
		logger.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}
	defer blobs.Close()

	balanceCache := repository.NewBalanceCache(redisClient, cfg.Redis.CacheTTL)
	transactions := repository.NewTransactionRepository(database)
	tasks := repository.NewTaskRepository(database)
	events := repository.NewWebhookEventRepository(database)
	packs := repository.NewPackRepository(database)
	idempotencyRepo := repository.NewIdempotencyRepository(database)

	reservations := service.NewReservationService(database, balanceCache, logger)
	ledger := service.NewLedgerService(database, balanceCache, logger)

	genClient := generation.NewHTTPClient(&cfg.Generation)
	orchestrator := generation.NewOrchestrator(
		tasks,
		reservations,
		genClient,
		blobs,
		cfg.Generation.CostPerImage,
		logger,
	)
	poller := generation.NewPoller(orchestrator, cfg.Poller.MaxAttempts, logger)

	ingestor := webhook.NewIngestor(
		database,
		events,
		packs,
		balanceCache,
		cfg.Webhook.SigningSecret,
		logger,
	)

	sweep := sweeper.New(
		transactions,
		tasks,
		reservations,
		cfg.Sweeper.Interval,
		cfg.Sweeper.ReservationMaxAge,
		logger,
	)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go sweep.Run(sweepCtx)

	h := handlers.NewHandler(orchestrator, poller, ledger, ingestor, database, logger)
	router := handlers.NewRouter(h, idempotencyRepo)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	stopSweeper()
	poller.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
