package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovehq/grove/db"
	"github.com/grovehq/grove/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if err := db.Migrate(cfg.PostgresURL(), newLogger()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
