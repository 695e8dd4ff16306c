package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/usecase"
)

// backend bundles the storage implementations selected by STORE_BACKEND.
type backend struct {
	accounts  usecase.AccountStore
	txManager usecase.TransactionManager
	entries   usecase.EntryRepository
	ledger    usecase.LedgerRepository
	audit     usecase.AuditRepository
	checks    map[string]handler.Pinger
	close     func()
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return openMemoryBackend(cfg, log)
	case config.StorePostgres:
		return openPostgresBackend(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openPostgresBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	if err := postgres.NewMigrator(cfg.MigrationsPath, cfg.DatabaseURL, logger.Component(log, "migrator")).Up(); err != nil {
		return nil, err
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	return &backend{
		accounts:  postgresRepo.NewAccountRepository(pool),
		txManager: postgresRepo.NewTxManager(pool),
		entries:   postgresRepo.NewEntryRepository(pool),
		ledger:    postgresRepo.NewLedgerRepository(pool),
		audit:     postgresRepo.NewAuditRepository(pool),
		checks:    map[string]handler.Pinger{"postgres": pool},
		close:     pool.Close,
	}, nil
}

// openMemoryBackend opens the in-memory store, durable through the WAL when
// WAL_PATH is set. The audit trail is kept in memory only.
func openMemoryBackend(cfg *config.Config, log zerolog.Logger) (*backend, error) {
	store := memory.NewStore()

	if cfg.WALPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.WALPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create WAL directory: %w", err)
		}

		var err error
		store, err = memory.Open(cfg.WALPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open WAL: %w", err)
		}
		log.Info().Str("wal", cfg.WALPath).Msg("memory store restored from WAL")
	} else {
		log.Warn().Msg("WAL_PATH is empty, balances will not survive a restart")
	}

	return &backend{
		accounts:  store,
		txManager: store,
		entries:   store,
		ledger:    store,
		audit:     memory.NewAuditRepository(),
		checks:    map[string]handler.Pinger{},
		close: func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close memory store")
			}
		},
	}, nil
}
