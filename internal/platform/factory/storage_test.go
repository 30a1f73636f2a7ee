package factory

import (
	"path/filepath"
	"testing"

	"github.com/worktrace/worktrace/internal/config"
)

func TestNewStore_SQLite(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "factory.db")
	st, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore returned error for sqlite: %v", err)
	}
	if st == nil {
		t.Fatalf("expected store instance, got nil")
	}
}

func TestNewStore_UnknownDriver(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "mongodb"
	if _, err := NewStore(cfg); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
