package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/worktrace/worktrace/internal/store"
	"github.com/worktrace/worktrace/internal/store/storetest"
)

// makePGStore connects to WORKTRACE_POSTGRES_DSN when set; otherwise it starts
// a throwaway postgres container.
func makePGStore(t *testing.T) store.Store {
	t.Helper()

	dsn := os.Getenv("WORKTRACE_POSTGRES_DSN")
	if dsn == "" {
		if testing.Short() {
			t.Skip("short mode: skipping container-backed postgres test")
		}
		dsn = startPostgres(t)
	}

	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Bootstrap(context.Background(), db); err != nil {
		t.Fatalf("postgres bootstrap: %v", err)
	}
	return NewWithDB(db)
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "worktrace",
			"POSTGRES_PASSWORD": "worktrace",
			"POSTGRES_DB":       "worktrace",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://worktrace:worktrace@%s:%s/worktrace?sslmode=disable", host, port.Port())
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}
