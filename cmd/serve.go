package cmd

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/internal/config"
	"github.com/sethyboi74/odemasterpro/internal/observability"
	"github.com/sethyboi74/odemasterpro/internal/server"
	"github.com/sethyboi74/odemasterpro/internal/store"
	"github.com/sethyboi74/odemasterpro/internal/workshop"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the workshop HTTP API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind only flags the user actually set; an unset flag's empty
			// default would otherwise shadow the configured values.
			if cmd.Flags().Changed("addr") {
				if err := viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("database-url") {
				return viper.BindPFlag("database.url", cmd.Flags().Lookup("database-url"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Postgres when configured, in-memory otherwise. The memory store
			// keeps the server usable for local one-off sessions.
			var repo store.Repository
			if cfg.Database.URL != "" {
				pool, err := pgxpool.New(ctx, cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer pool.Close()

				dbStore, err := store.New(ctx, pool, logger)
				if err != nil {
					return fmt.Errorf("failed to initialize store: %w", err)
				}
				if err := dbStore.EnsureSchema(ctx); err != nil {
					return fmt.Errorf("failed to ensure schema: %w", err)
				}
				repo = dbStore
				logger.Info("Using Postgres store")
			} else {
				repo = store.NewMemoryStore()
				logger.Info("No database configured; using in-memory store",
					zap.String("hint", "set ODEMASTER_DATABASE_URL to persist projects"))
			}

			handlers := server.NewHandlers(logger, repo, workshop.NewAnalyzer(logger), workshop.NewPatcher(logger))
			srv := server.New(logger, cfg.Server, handlers)
			return srv.Start(ctx)
		},
	}

	serveCmd.Flags().String("addr", "", "Listen address (overrides config/env).")
	serveCmd.Flags().String("database-url", "", "Postgres connection URL (overrides config/env).")

	return serveCmd
}
