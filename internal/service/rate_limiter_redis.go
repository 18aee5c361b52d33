package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fixedWindowScript cuenta hits por clave; la expiracion se fija solo en el primero,
// asi la ventana no se extiende con cada intento.
const fixedWindowScript = `
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`

const redisLimiterTimeout = 500 * time.Millisecond

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// windowCounter es un contador de ventana fija guardado en Redis.
type windowCounter struct {
	client redisEvaler
	window time.Duration
}

func (w windowCounter) hit(ctx context.Context, key string) (int64, error) {
	return w.client.Eval(ctx, fixedWindowScript, []string{key}, w.window.Milliseconds()).Int64()
}

type redisRateLimiter struct {
	counter windowCounter
	max     int64
	prefix  string
	logger  *zap.Logger
}

// NewRedisRateLimiter comparte el contador entre instancias. Si Redis falla, deja pasar.
func NewRedisRateLimiter(client *redis.Client, window time.Duration, max int, logger *zap.Logger) RateLimiter {
	if client == nil {
		return nil
	}
	return newRedisRateLimiter(client, window, max, logger)
}

func newRedisRateLimiter(client redisEvaler, window time.Duration, max int, logger *zap.Logger) *redisRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisRateLimiter{
		counter: windowCounter{client: client, window: window},
		max:     int64(max),
		prefix:  "auth:rl:",
		logger:  logger,
	}
}

func (l *redisRateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.counter.client == nil {
		return true
	}
	key = normalizeLimiterKey(key)
	if key == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()
	n, err := l.counter.hit(ctx, l.prefix+key)
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		return true
	}
	return n <= l.max
}
