package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"authsvc/internal/db"
	apihttp "authsvc/internal/http"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd crea el subcomando que levanta la API HTTP.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, autoMigrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if autoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	d, err := buildDeps(ctx, cfg, logger, pool)
	if err != nil {
		return err
	}
	defer d.close()

	d.reaper.Start(ctx)
	defer d.reaper.Stop()

	router := apihttp.NewRouter(
		logger,
		d.metrics,
		d.auth,
		apihttp.NewAuthHandler(logger, d.auth, cfg.CookieSecure),
		apihttp.NewUserHandler(logger, d.auth, cfg.CookieSecure),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("token_backend", cfg.TokenBackend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
