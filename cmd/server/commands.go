package main

import (
	"fmt"

	"taskchat/internal/database"
	"taskchat/internal/retention"
	"taskchat/internal/services"
	"taskchat/pkg/logger"

	"github.com/spf13/cobra"
)

func buildMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := migrationURL()
			if err != nil {
				return err
			}
			if err := database.MigrateUp(url); err != nil {
				return err
			}
			logger.Info("Migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := migrationURL()
			if err != nil {
				return err
			}
			if err := database.MigrateDown(url, steps); err != nil {
				return err
			}
			logger.Info("Rolled back %d migration(s)", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := migrationURL()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(url)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", version, dirty)
			return nil
		},
	})

	return cmd
}

func migrationURL() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Database.InMemory() {
		return "", fmt.Errorf("migrations need a PostgreSQL DATABASE_URL")
	}
	return cfg.Database.URL, nil
}

func buildSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete notifications older than RETENTION_MAX_AGE once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			sweeper := retention.NewSweeper(services.NewNotificationService(db, nil), cfg.Retention)
			n, err := sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d notifications\n", n)
			return nil
		},
	}
}
