package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/database"
	"github.com/jmarceau/screener/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or reset the database schema",
	Long: `Apply the database schema. Safe to re-run: statements are
idempotent.

Example:
  go run ./cmd/screener migrate
  go run ./cmd/screener migrate --reset`,
	RunE: runMigrate,
}

var migrateReset bool

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateReset, "reset", false, "drop all tables before migrating (destroys data)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if migrateReset {
		log.Warn("Resetting database: all data will be dropped")
		if err := db.Reset(ctx); err != nil {
			return fmt.Errorf("reset schema: %w", err)
		}
		fmt.Println("Schema reset complete")
		return nil
	}

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	fmt.Println("Schema migration complete")
	return nil
}
