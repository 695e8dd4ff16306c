package postgres

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestMigratorInvalidSource(t *testing.T) {
	m := NewMigrator("file:///does/not/exist", "postgres://localhost:1/db?sslmode=disable", zerolog.Nop())

	if err := m.Up(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}

	if err := m.Down(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}
