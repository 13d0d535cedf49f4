package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB wraps a disposable PostgreSQL instance with pgvector enabled.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a pgvector-enabled PostgreSQL container and returns a
// connected pool plus a cleanup function. Skips the test unless
// GROVE_TEST_POSTGRES=1, so the default test run needs no Docker daemon.
//
// Schema setup is the caller's job; pass migration SQL via migrations.
func SetupTestDB(t *testing.T, migrations ...string) (*TestDB, func()) {
	t.Helper()

	if os.Getenv("GROVE_TEST_POSTGRES") != "1" {
		t.Skip("GROVE_TEST_POSTGRES not set - skipping test requiring PostgreSQL")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("grove_test"),
		postgres.WithUsername("grove_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("create pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("ping: %v", err)
	}

	for _, sql := range migrations {
		if _, err := pool.Exec(ctx, sql); err != nil {
			pool.Close()
			_ = pgContainer.Terminate(ctx)
			t.Fatalf("apply migration: %v", err)
		}
	}

	db := &TestDB{Container: pgContainer, Pool: pool, ConnStr: connStr}
	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(context.Background())
	}
	return db, cleanup
}
