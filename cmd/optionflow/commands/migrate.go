package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/optionflow/internal/store"
	"github.com/wonny/optionflow/pkg/config"
	"github.com/wonny/optionflow/pkg/database"
	"github.com/wonny/optionflow/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Applies the idempotent schema DDL: the option_chain_daily and
underlying_prices tables with their indexes. Safe to run repeatedly.

Example:
  go run ./cmd/optionflow migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
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

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	log.Info("Schema is up to date")
	fmt.Println("Schema is up to date")
	return nil
}
