package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"authsvc/internal/metrics"
	"authsvc/internal/repository"
)

// TokenReaper borra periodicamente los tokens vencidos que nadie volvio a presentar.
// La expiracion perezosa en Redeem sigue siendo la que garantiza correccion.
type TokenReaper struct {
	logger   *zap.Logger
	repo     repository.TokenRepository
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTokenReaper(logger *zap.Logger, repo repository.TokenRepository, interval time.Duration, m *metrics.Metrics) *TokenReaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenReaper{
		logger:   logger,
		repo:     repo,
		interval: interval,
		metrics:  m,
		now:      time.Now,
	}
}

// RunOnce ejecuta una pasada y devuelve cuantos tokens borro.
func (r *TokenReaper) RunOnce(ctx context.Context) (int64, error) {
	n, err := r.repo.DeleteExpired(ctx, r.now().UTC())
	if err != nil {
		return 0, err
	}
	r.metrics.RecordTokensReaped(n)
	if n > 0 {
		r.logger.Info("expired tokens reaped", zap.Int64("count", n))
	}
	return n, nil
}

// Start lanza el loop; con intervalo <= 0 no hace nada.
func (r *TokenReaper) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.run(ctx)
}

// Stop detiene el loop y espera a que termine.
func (r *TokenReaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *TokenReaper) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("token reap failed", zap.Error(err))
			}
		}
	}
}
