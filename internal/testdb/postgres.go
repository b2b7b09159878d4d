//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/studytask-api/internal/config"
	"github.com/phrazzld/studytask-api/internal/platform/sqlstore"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const postgresImage = "postgres:16-alpine"

// Postgres starts a PostgreSQL container, migrates it and returns a
// connection. The container is terminated when the test finishes.
func Postgres(t testing.TB) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "studytask",
				"POSTGRES_PASSWORD": "studytask",
				"POSTGRES_DB":       "studytask",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Driver:       string(sqlstore.DialectPostgres),
		URL:          fmt.Sprintf("postgres://studytask:studytask@%s:%s/studytask?sslmode=disable", host, port.Port()),
		MaxOpenConns: 4,
	}
	return open(t, cfg)
}
