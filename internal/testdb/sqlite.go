package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/phrazzld/studytask-api/internal/config"
	"github.com/phrazzld/studytask-api/internal/platform/database"
	"github.com/phrazzld/studytask-api/internal/platform/sqlstore"
)

// SQLite opens a fresh, fully migrated SQLite database for t.
// The database is closed when the test finishes.
func SQLite(t testing.TB) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:       string(sqlstore.DialectSQLite),
		URL:          filepath.Join(t.TempDir(), "tasks.db"),
		MaxOpenConns: 4,
	}
	return open(t, cfg)
}

func open(t testing.TB, cfg config.DatabaseConfig) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, dialect, err := database.Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("failed to open %s test database: %v", cfg.Driver, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	migrator, err := database.NewMigrator(db, dialect, nil)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
