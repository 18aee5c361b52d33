package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"authsvc/internal/config"
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// WaitReady reintenta el ping con backoff exponencial hasta que la base responde.
func WaitReady(ctx context.Context, p pinger, logger *zap.Logger) error {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			if logger != nil {
				logger.Warn("db ping failed", zap.Int("attempt", attempt), zap.Error(err))
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
