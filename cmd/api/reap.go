package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewReapCmd crea el subcomando que borra una vez los tokens vencidos.
func NewReapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Delete expired single-use tokens once",
		Long: `Delete expired email verification and password reset tokens.
Expired tokens are already rejected on use; this only reclaims storage.`,
		RunE: runReap,
	}
}

func runReap(cmd *cobra.Command, _ []string) error {
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

	d, err := buildDeps(ctx, cfg, logger, pool)
	if err != nil {
		return err
	}
	defer d.close()

	n, err := d.reaper.RunOnce(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d expired tokens\n", n)
	return nil
}
