package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/phrazzld/studytask-api/internal/config"
	"github.com/phrazzld/studytask-api/internal/platform/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "plain path",
			url:  "tasks.db",
			want: "file:tasks.db?_fk=1&_busy_timeout=5000&_txlock=immediate&_cslike=1",
		},
		{
			name: "file uri",
			url:  "file:study_tasks.db",
			want: "file:study_tasks.db?_fk=1&_busy_timeout=5000&_txlock=immediate&_cslike=1",
		},
		{
			name: "existing parameters are kept",
			url:  "file:tasks.db?_busy_timeout=100",
			want: "file:tasks.db?_busy_timeout=100&_fk=1&_txlock=immediate&_cslike=1",
		},
		{
			name: "memory",
			url:  ":memory:",
			want: "file::memory:?_fk=1&_busy_timeout=5000&_txlock=immediate&_cslike=1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SQLiteDSN(tc.url))
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql", URL: "x"}, nil)
	assert.Error(t, err)
}

func TestOpenMigrateSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{
		Driver:       "sqlite",
		URL:          filepath.Join(t.TempDir(), "tasks.db"),
		MaxOpenConns: 2,
	}

	db, dialect, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, sqlstore.DialectSQLite, dialect)

	migrator, err := NewMigrator(db, dialect, nil)
	require.NoError(t, err)

	statuses, err := migrator.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.False(t, s.Applied, "migration %d should be pending", s.Version)
	}

	require.NoError(t, migrator.Up(ctx))
	require.NoError(t, migrator.Up(ctx), "re-running up is a no-op")

	statuses, err = migrator.Status(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %d should be applied", s.Version)
	}

	var tables int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('tasks', 'verification_attempts')`,
	).Scan(&tables))
	assert.Equal(t, 2, tables)

	require.NoError(t, migrator.Down(ctx))
	statuses, err = migrator.Status(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[1].Applied)
}

func TestOpenSQLiteEnforcesForeignKeys(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite", URL: ":memory:", MaxOpenConns: 5}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	migrator, err := NewMigrator(db, dialect, nil)
	require.NoError(t, err)
	require.NoError(t, migrator.Up(ctx))

	_, err = db.ExecContext(ctx, `
		INSERT INTO verification_attempts (id, task_id, proof_url, verdict, created_at)
		VALUES ('a', 'missing', 'https://proof', 1, '2030-01-01T00:00:00.000000Z')
	`)
	require.Error(t, err)
	assert.True(t, sqlstore.IsForeignKeyViolation(err))
}
