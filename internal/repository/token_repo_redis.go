package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"authsvc/internal/domain"
)

// El puntero por usuario garantiza a lo sumo un token vivo por (usuario, proposito).
const redisTokenInsertScript = `
local old = redis.call("GET", KEYS[2])
if old then
  redis.call("DEL", ARGV[3] .. old)
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("SET", KEYS[2], ARGV[4], "PX", ARGV[2])
return 1
`

const redisTokenDeleteUserScript = `
local old = redis.call("GET", KEYS[1])
if old then
  redis.call("DEL", ARGV[1] .. old)
end
redis.call("DEL", KEYS[1])
return 1
`

const redisOpTimeout = 500 * time.Millisecond

type redisTokenClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisTokenPayload struct {
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
	CreatedAt int64  `json:"created_at"`
}

// RedisTokenRepository guarda tokens con TTL nativo de Redis.
type RedisTokenRepository struct {
	client redisTokenClient
	prefix string
	now    func() time.Time
}

func NewRedisTokenRepository(client *redis.Client) *RedisTokenRepository {
	if client == nil {
		return nil
	}
	return &RedisTokenRepository{
		client: client,
		prefix: "auth:token:",
		now:    time.Now,
	}
}

func (r *RedisTokenRepository) tokenPrefix(purpose domain.TokenPurpose) string {
	return r.prefix + string(purpose) + ":hash:"
}

func (r *RedisTokenRepository) userKey(userID string, purpose domain.TokenPurpose) string {
	return r.prefix + string(purpose) + ":user:" + userID
}

func (r *RedisTokenRepository) DeleteAllForUser(ctx context.Context, userID string, purpose domain.TokenPurpose) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return r.client.Eval(ctx, redisTokenDeleteUserScript,
		[]string{r.userKey(userID, purpose)},
		r.tokenPrefix(purpose),
	).Err()
}

func (r *RedisTokenRepository) Insert(ctx context.Context, tok domain.SingleUseToken) error {
	if strings.TrimSpace(tok.TokenHash) == "" {
		return errors.New("token hash is required")
	}
	payload, err := json.Marshal(redisTokenPayload{
		UserID:    tok.UserID,
		ExpiresAt: tok.ExpiresAt.UnixMilli(),
		CreatedAt: tok.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	ttl := tok.ExpiresAt.Sub(r.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return r.client.Eval(ctx, redisTokenInsertScript,
		[]string{r.tokenPrefix(tok.Purpose) + tok.TokenHash, r.userKey(tok.UserID, tok.Purpose)},
		string(payload),
		ttl.Milliseconds(),
		r.tokenPrefix(tok.Purpose),
		tok.TokenHash,
	).Err()
}

func (r *RedisTokenRepository) FindByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (domain.SingleUseToken, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return domain.SingleUseToken{}, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	raw, err := r.client.Get(ctx, r.tokenPrefix(purpose)+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return domain.SingleUseToken{}, ErrNotFound
	}
	if err != nil {
		return domain.SingleUseToken{}, err
	}
	var payload redisTokenPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.SingleUseToken{}, err
	}
	return domain.SingleUseToken{
		TokenHash: tokenHash,
		UserID:    payload.UserID,
		Purpose:   purpose,
		ExpiresAt: time.UnixMilli(payload.ExpiresAt).UTC(),
		CreatedAt: time.UnixMilli(payload.CreatedAt).UTC(),
	}, nil
}

func (r *RedisTokenRepository) DeleteByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (bool, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	n, err := r.client.Del(ctx, r.tokenPrefix(purpose)+tokenHash).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpired no hace nada: Redis expira las claves por su cuenta.
func (r *RedisTokenRepository) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
