package factory

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/worktrace/worktrace/internal/config"
	"github.com/worktrace/worktrace/internal/store"
	"github.com/worktrace/worktrace/internal/store/postgres"
	"github.com/worktrace/worktrace/internal/store/sqlite"
)

// NewStore selects the storage backend based on cfg.DBDriver. For postgres
// the connection is retried with exponential backoff, so the service can
// start before the database finishes coming up.
func NewStore(cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		var st store.Store
		op := func() error {
			var err error
			st, err = postgres.New(cfg.PostgresDSN)
			return err
		}
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 30 * time.Second
		if err := backoff.Retry(op, bo); err != nil {
			return nil, fmt.Errorf("postgres unavailable: %w", err)
		}
		return st, nil
	case "sqlite":
		return sqlite.New(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
