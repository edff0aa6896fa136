package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/replyloop/actions-worker/internal/api"
	"github.com/replyloop/actions-worker/internal/services/consumer"
	"github.com/replyloop/actions-worker/internal/services/dedup"
	"github.com/replyloop/actions-worker/internal/services/dispatch"
	"github.com/replyloop/actions-worker/internal/services/executor"
	"github.com/replyloop/actions-worker/internal/services/lookup"
	"github.com/replyloop/actions-worker/internal/services/ratelimit"
	"github.com/replyloop/actions-worker/internal/services/speedthread"
	"github.com/replyloop/actions-worker/internal/services/sweeper"
	"github.com/replyloop/actions-worker/internal/shared/config"
	"github.com/replyloop/actions-worker/internal/shared/domain/clock"
	"github.com/replyloop/actions-worker/internal/shared/infra/postgres"
	"github.com/replyloop/actions-worker/internal/shared/infra/rabbit"
	"github.com/replyloop/actions-worker/internal/shared/metrics"
)

// workQueueBinding routes both fresh actions and throttle requeues back
// into the work queue.
const workQueueBinding = "actions.#"

func main() {
	// .env is optional; real deployments configure via the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting actions worker",
		"queue", cfg.Queue,
		"workers", cfg.WorkerCount,
		"ops_port", cfg.PortOps,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	pg, err := postgres.NewClient(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	broker, err := rabbit.NewClient(cfg.AMQPURL, cfg.Exchange, logger)
	if err != nil {
		slog.Error("failed to connect to AMQP broker", "error", err)
		os.Exit(1)
	}

	deliveries, err := broker.Consume(cfg.Queue, workQueueBinding, cfg.ConsumerPrefix, cfg.PrefetchCount)
	if err != nil {
		slog.Error("failed to start consuming", "error", err)
		broker.Close()
		os.Exit(1)
	}

	counters := metrics.NewCounters()

	// Repositories and domain services
	rateLimitRepo := postgres.NewRateLimitRepo(pg.Pool(), logger)
	limiter := ratelimit.NewService(rateLimitRepo, clock.RealClock{}, logger)

	windowRepo := postgres.NewSpeedThreadRepo(pg.Pool(), logger)
	timer := speedthread.NewService(windowRepo, logger)

	dedupSvc := dedup.NewService(
		postgres.NewRegistryRepo(pg.Pool(), logger),
		postgres.NewTweetCacheRepo(pg.Pool(), logger),
		postgres.NewResponseCacheRepo(pg.Pool(), logger),
		logger,
	)

	validator := lookup.NewValidator(cfg.LookupTimeout, logger)

	// Execution and dispatch
	gateway := executor.NewGateway(cfg.GatewayURL, cfg.GatewayTimeout, limiter, logger)
	router := executor.NewRouter(gateway, timer, dedupSvc, validator, logger)
	dispatcher := dispatch.NewDispatcher(broker, counters, logger)

	processor := consumer.NewProcessor(
		router,
		executor.NewRateGate(limiter),
		dispatcher,
		[]consumer.SuccessHook{dedup.NewAuditHook(dedupSvc, logger)},
		counters,
		consumer.ProcessorConfig{WorkerCount: cfg.WorkerCount},
		logger,
	)

	processorDone := make(chan error, 1)
	go func() {
		processorDone <- processor.Start(ctx, deliveries)
	}()

	windowSweeper := sweeper.New(windowRepo, clock.RealClock{}, cfg.SweepInterval, logger)
	if err := windowSweeper.Start(ctx); err != nil {
		slog.Error("failed to start sweeper", "error", err)
		broker.Close()
		os.Exit(1)
	}

	opsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.PortOps),
		Handler: api.NewServer(pg, counters, logger),
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled")
	}

	// Graceful shutdown (reverse order)
	slog.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("ops server shutdown error", "error", err)
	}
	windowSweeper.Stop()

	// Closing the broker closes the deliveries channel, letting the
	// workers drain in-flight actions before Start returns.
	broker.Close()
	select {
	case <-processorDone:
	case <-shutdownCtx.Done():
		slog.Warn("timed out waiting for consumer drain")
	}

	slog.Info("actions worker stopped")
}

// newLogger creates a structured logger based on configuration.
func newLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
