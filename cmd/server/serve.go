package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/studytask-api/internal/platform/logger"
	"github.com/spf13/cobra"
)

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			log.Info("server configuration loaded",
				slog.Int("port", cfg.Server.Port),
				slog.String("log_level", cfg.Server.LogLevel),
				slog.String("database_driver", cfg.Database.Driver),
				slog.Bool("auto_migrate", cfg.Database.AutoMigrate))

			app, err := newApplication(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("failed to initialize application", slog.String("error", err.Error()))
				return err
			}

			return app.startHTTPServer(cmd.Context(), app.setupRouter())
		},
	}
}
