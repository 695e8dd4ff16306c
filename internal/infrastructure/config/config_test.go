package config_test

import (
	"testing"
	"time"

	"github.com/iho/bankledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.StoreBackend != config.StorePostgres {
		t.Fatalf("expected default store backend postgres, got %s", cfg.StoreBackend)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.LedgerOperationTimeout != 5*time.Second {
		t.Fatalf("expected default operation timeout 5s, got %s", cfg.LedgerOperationTimeout)
	}

	if cfg.LedgerMaxConflictRetries != 5 {
		t.Fatalf("expected default conflict retries 5, got %d", cfg.LedgerMaxConflictRetries)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("WAL_PATH", "/tmp/ledger.wal")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("AUDIT_WORKERS", "4")
	t.Setenv("AUDIT_REPLAY_INTERVAL", "1m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.StoreBackend != config.StoreMemory || cfg.WALPath != "/tmp/ledger.wal" {
		t.Fatalf("expected memory store with custom WAL, got %s %s", cfg.StoreBackend, cfg.WALPath)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.AuditWorkers != 4 || cfg.AuditReplayInterval != time.Minute {
		t.Fatalf("expected audit overrides, got workers=%d interval=%s", cfg.AuditWorkers, cfg.AuditReplayInterval)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown store backend", "STORE_BACKEND", "sqlite"},
		{"zero operation timeout", "LEDGER_OPERATION_TIMEOUT", "0s"},
		{"no audit workers", "AUDIT_WORKERS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
