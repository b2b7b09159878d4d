package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/studytask-api/internal/config"
	"github.com/phrazzld/studytask-api/internal/platform/database"
	"github.com/phrazzld/studytask-api/internal/platform/sqlstore"
	"github.com/phrazzld/studytask-api/internal/redact"
	"github.com/phrazzld/studytask-api/internal/service"
)

// application holds the dependencies shared by the HTTP server.
type application struct {
	config      *config.Config
	logger      *slog.Logger
	db          *sql.DB
	taskService service.TaskService
}

// newApplication opens the database, applies migrations when configured to
// and wires stores into the task service.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, dialect, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	app := &application{config: cfg, logger: logger, db: db}

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db, dialect, logger)
		if err != nil {
			app.cleanup()
			return nil, err
		}
		if err := migrator.Up(ctx); err != nil {
			app.cleanup()
			return nil, err
		}
	}

	taskStore := sqlstore.NewTaskStore(db, dialect, logger)
	attemptStore := sqlstore.NewVerificationAttemptStore(db, dialect, logger)

	app.taskService, err = service.NewTaskService(db, taskStore, attemptStore, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	return app, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection",
			slog.String("error", redact.Error(err)))
		return
	}
	app.logger.Info("database connection closed")
}
