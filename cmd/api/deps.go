package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"authsvc/internal/config"
	"authsvc/internal/db"
	"authsvc/internal/email"
	"authsvc/internal/metrics"
	"authsvc/internal/repository"
	"authsvc/internal/service"
)

// deps agrupa las dependencias que comparten los subcomandos.
type deps struct {
	metrics *metrics.Metrics
	redis   *redis.Client
	tokens  repository.TokenRepository
	auth    *service.AuthService
	reaper  *service.TokenReaper
}

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("warning: loading %s: %v", envFile, err)
		}
	}
	return config.LoadConfig()
}

// openDatabase abre el pool y espera a que Postgres responda.
func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := db.WaitReady(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db not ready: %w", err)
	}
	return pool, nil
}

// openRedis devuelve nil si no hay REDIS_ADDR. Un ping fallido solo es fatal
// cuando los tokens viven en Redis.
func openRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		if cfg.TokenBackend == config.TokenBackendRedis {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
		return nil, nil
	}
	return client, nil
}

func buildDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger, pool *pgxpool.Pool) (*deps, error) {
	d := &deps{}
	if cfg.MetricsEnabled {
		d.metrics = metrics.New()
	}

	client, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	d.redis = client

	if cfg.TokenBackend == config.TokenBackendRedis {
		d.tokens = repository.NewRedisTokenRepository(client)
	} else {
		d.tokens = repository.NewPgTokenRepository(pool)
	}

	limiter := service.NewMemoryRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	if client != nil {
		limiter = service.NewRedisRateLimiter(client, cfg.RateLimitWindow, cfg.RateLimitMax, logger)
	}

	mailer := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
			AppURL:   cfg.AppURL,
			Timeout:  cfg.SMTPTimeout,
		})
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			mailer = sender
		}
	}

	jwtSvc, err := service.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		d.close()
		return nil, err
	}

	d.auth = service.NewAuthService(
		logger,
		repository.NewPgUserRepository(pool),
		service.NewTokenStore(d.tokens),
		service.NewBcryptHasher(cfg.BcryptCost),
		jwtSvc,
		mailer,
		limiter,
		d.metrics,
	)
	d.reaper = service.NewTokenReaper(logger, d.tokens, cfg.TokenReapInterval, d.metrics)
	return d, nil
}

func (d *deps) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
}
