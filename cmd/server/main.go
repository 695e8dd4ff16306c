package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/infrastructure/audit"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/idgen"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/infrastructure/retry"
	"github.com/iho/bankledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

// run wires the application and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	stores, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	checks := stores.checks

	// Redis is optional: without it there is no idempotency and no audit
	// dead letter.
	var (
		redisClient      *goredis.Client
		idempotencyStore usecase.IdempotencyStore
		deadLetter       usecase.AuditDeadLetter
	)
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClientWithConfig(ctx, redis.ClientConfig{URL: cfg.RedisURL, PingAttempts: 5})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")

		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		deadLetter = redisRepo.NewAuditDeadLetter(redisClient)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	recorder := audit.NewRecorder(audit.Config{
		Repository: stores.audit,
		DeadLetter: deadLetter,
		Metrics:    m,
		Logger:     logger.Component(log, "audit"),
		QueueSize:  cfg.AuditQueueSize,
		Workers:    cfg.AuditWorkers,
		MaxRetries: cfg.AuditMaxRetries,
	})
	recorder.Start()

	idGen := idgen.NewULIDGenerator()
	retrier := retry.New(retry.Config{
		MaxRetries: cfg.LedgerMaxConflictRetries,
		OnRetry:    m.ConflictRetry,
	}, logger.Component(log, "retry"))

	ledger := usecase.NewLedgerService(usecase.LedgerServiceConfig{
		Accounts:    stores.accounts,
		Coordinator: usecase.NewTransferCoordinator(stores.txManager, stores.accounts, idGen),
		Audit:       recorder,
		Retrier:     retrier,
		IDGen:       idGen,
		Metrics:     m,
		Logger:      logger.Component(log, "ledger"),
		Timeout:     cfg.LedgerOperationTimeout,
	})

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(usecase.NewAccountUseCase(stores.accounts, idGen)),
		LedgerHandler:    handler.NewLedgerHandler(ledger, usecase.NewLedgerUseCase(stores.ledger)),
		EntryHandler:     handler.NewEntryHandler(usecase.NewEntryUseCase(stores.entries, stores.accounts)),
		AuditHandler:     handler.NewAuditHandler(usecase.NewAuditUseCase(stores.audit)),
		HealthHandler:    handler.NewHealthHandler(checks),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:           logger.Component(log, "http"),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if deadLetter != nil {
		replayer := audit.NewReplayer(audit.ReplayerConfig{
			Repository: stores.audit,
			DeadLetter: deadLetter,
			Metrics:    m,
			Logger:     logger.Component(log, "audit_replayer"),
			Interval:   cfg.AuditReplayInterval,
		})

		g.Go(func() error {
			if err := replayer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		// Stop accepting requests first so no audit entry arrives after the
		// recorder has drained.
		serverErr := server.Shutdown(shutdownCtx)
		auditErr := recorder.Stop(shutdownCtx)

		return errors.Join(serverErr, auditErr)
	})

	return g.Wait()
}
