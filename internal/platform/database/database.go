package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" driver
	"github.com/phrazzld/studytask-api/internal/config"
	"github.com/phrazzld/studytask-api/internal/platform/sqlstore"
	"github.com/phrazzld/studytask-api/internal/redact"
)

const pingTimeout = 5 * time.Second

// sqliteParams enables foreign keys, waits on locks, starts every
// transaction with a write lock and makes LIKE case-sensitive.
var sqliteParams = []struct{ key, value string }{
	{"_fk", "1"},
	{"_busy_timeout", "5000"},
	{"_txlock", "immediate"},
	{"_cslike", "1"},
}

// Open connects to the database described by cfg and verifies the
// connection with a ping. The caller owns the returned *sql.DB.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, sqlstore.Dialect, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "database"))

	dialect, err := sqlstore.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	driverName, dsn := "pgx", cfg.URL
	if dialect == sqlstore.DialectSQLite {
		driverName, dsn = "sqlite3", SQLiteDSN(cfg.URL)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database connection: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if dialect == sqlstore.DialectSQLite && isMemoryDSN(cfg.URL) {
		// Every connection to :memory: is a separate database.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	if dialect == sqlstore.DialectPostgres {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after ping failure",
				slog.String("error", redact.Error(closeErr)))
		}
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established",
		slog.String("driver", string(dialect)),
		slog.Int("max_open_conns", maxOpen))
	return db, dialect, nil
}

// SQLiteDSN turns a path, file: URI or ":memory:" into a go-sqlite3 DSN
// carrying the connection parameters the stores rely on. Parameters already
// present in url are kept.
func SQLiteDSN(url string) string {
	dsn := url
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	for _, p := range sqliteParams {
		if strings.Contains(dsn, p.key+"=") {
			continue
		}
		sep := "&"
		if !strings.Contains(dsn, "?") {
			sep = "?"
		}
		dsn += sep + p.key + "=" + p.value
	}
	return dsn
}

func isMemoryDSN(url string) bool {
	return strings.Contains(url, ":memory:") || strings.Contains(url, "mode=memory")
}
