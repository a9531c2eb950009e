package daemon

import (
	"fmt"

	"github.com/cloo-solutions/sanad/internal/config"
	"github.com/cloo-solutions/sanad/internal/database"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			return database.RunMigrations(cfg.DatabaseURL, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "migrations", database.DefaultMigrationsDir, "Directory containing migration files")

	return cmd
}
