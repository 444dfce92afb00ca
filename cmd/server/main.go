// Package main is the taskchat server CLI.
//
//	taskchat serve [--migrate]
//	taskchat migrate up|down|version
//	taskchat sweep
//
// Configuration comes from the environment and an optional .env file.
package main

import (
	"context"
	"fmt"
	"os"

	"taskchat/internal/config"
	"taskchat/internal/database"
	"taskchat/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "taskchat",
		Short:        "Realtime chat and task notifications server",
		SilenceUsage: true,
	}

	root.AddCommand(buildServeCmd())
	root.AddCommand(buildMigrateCmd())
	root.AddCommand(buildSweepCmd())
	return root
}

// loadConfig loads configuration and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// openStore connects to PostgreSQL, or returns the in-memory store when
// DATABASE_URL is "memory".
func openStore(ctx context.Context, cfg *config.Config) (database.Database, error) {
	if cfg.Database.InMemory() {
		logger.Warn("Using in-memory store; data is lost on restart")
		return database.NewMemoryDB(), nil
	}
	db, err := database.NewPostgresDB(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
