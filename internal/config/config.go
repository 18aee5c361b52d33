package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	TokenBackendPostgres = "postgres"
	TokenBackendRedis    = "redis"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort          string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL       string        `env:"DATABASE_URL,required"`
	JWTSecret         string        `env:"JWT_SECRET,required"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"authsvc"`
	AppURL            string        `env:"APP_URL" envDefault:"http://localhost:3000"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"true"`
	TokenBackend      string        `env:"TOKEN_BACKEND" envDefault:"postgres"`
	TokenReapInterval time.Duration `env:"TOKEN_REAP_INTERVAL" envDefault:"0s"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"10m"`
	RateLimitMax      int           `env:"RATE_LIMIT_MAX" envDefault:"3"`
	MetricsEnabled    bool          `env:"METRICS_ENABLED" envDefault:"true"`
	SMTPHost          string        `env:"SMTP_HOST"`
	SMTPPort          int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser          string        `env:"SMTP_USER"`
	SMTPPass          string        `env:"SMTP_PASS"`
	SMTPFrom          string        `env:"SMTP_FROM"`
	SMTPFromName      string        `env:"SMTP_FROM_NAME" envDefault:"Auth System"`
	SMTPUseTLS        bool          `env:"SMTP_USE_TLS" envDefault:"false"`
	SMTPTimeout       time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza combinaciones que los tags de env no pueden expresar.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be blank")
	}
	switch c.TokenBackend {
	case TokenBackendPostgres:
	case TokenBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("TOKEN_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return errors.New("TOKEN_BACKEND must be postgres or redis")
	}
	if c.TokenReapInterval < 0 {
		return errors.New("TOKEN_REAP_INTERVAL must not be negative")
	}
	return nil
}
