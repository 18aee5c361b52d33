package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"authsvc/internal/db"
)

// NewMigrateCmd crea el subcomando que aplica las migraciones embebidas.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations for the users and single-use token tables.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	pool, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}
