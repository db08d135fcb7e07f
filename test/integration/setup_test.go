// Package integration runs the repositories against a real PostgreSQL
// instance in Docker. Tests are skipped implicitly when Docker is missing:
// TestMain fails fast with a clear message instead.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medscribe/medscribe/internal/platform/db"
)

// itDB is the shared database for the whole package, set up once in TestMain.
var itDB *testDB

type testDB struct {
	Pool          *pgxpool.Pool
	ConnStr       string
	MigrationsDir string
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	tdb, cleanup, err := setupDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration setup: %v\n", err)
		os.Exit(1)
	}
	itDB = tdb

	code := m.Run()
	cleanup()
	os.Exit(code)
}

// setupDatabase starts the container, connects, and brings the schema up to
// date with the repo's migrations.
func setupDatabase(ctx context.Context) (*testDB, func(), error) {
	connStr, stopContainer, err := startPostgresContainer(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}
	fail := func(err error) (*testDB, func(), error) {
		stopContainer()
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return fail(fmt.Errorf("create pool: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fail(fmt.Errorf("ping database: %w", err))
	}

	migrationsDir := repoMigrationsDir()
	if _, err := db.NewMigrator(pool, migrationsDir).Up(ctx); err != nil {
		pool.Close()
		return fail(fmt.Errorf("run migrations: %w", err))
	}

	tdb := &testDB{Pool: pool, ConnStr: connStr, MigrationsDir: migrationsDir}
	return tdb, func() {
		pool.Close()
		stopContainer()
	}, nil
}

// repoMigrationsDir resolves <repo root>/migrations relative to this file.
func repoMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// truncateAll wipes every table between tests so each starts clean.
func truncateAll(t *testing.T, ctx context.Context) {
	t.Helper()
	_, err := itDB.Pool.Exec(ctx, `TRUNCATE action_item, clinical_note, api_key CASCADE`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
