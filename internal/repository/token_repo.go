package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"authsvc/internal/domain"
)

// TokenRepository persiste tokens de un solo uso indexados por el hash del valor crudo.
// Cada proposito es un espacio de nombres independiente.
type TokenRepository interface {
	DeleteAllForUser(ctx context.Context, userID string, purpose domain.TokenPurpose) error
	Insert(ctx context.Context, token domain.SingleUseToken) error
	FindByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (domain.SingleUseToken, error)
	// DeleteByHash borra si existe; false indica que ya no estaba.
	DeleteByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PgTokenRepository implementa TokenRepository sobre la tabla single_use_tokens.
type PgTokenRepository struct {
	pool DBTX
}

func NewPgTokenRepository(pool DBTX) *PgTokenRepository {
	return &PgTokenRepository{pool: pool}
}

func (r *PgTokenRepository) DeleteAllForUser(ctx context.Context, userID string, purpose domain.TokenPurpose) error {
	const query = `DELETE FROM single_use_tokens WHERE user_id = $1 AND purpose = $2`
	_, err := r.pool.Exec(ctx, query, userID, string(purpose))
	return err
}

// Insert guarda el token; el indice unico (user_id, purpose) hace que el ultimo escritor gane.
func (r *PgTokenRepository) Insert(ctx context.Context, token domain.SingleUseToken) error {
	const query = `
		INSERT INTO single_use_tokens (token_hash, user_id, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, purpose) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`
	_, err := r.pool.Exec(ctx, query,
		token.TokenHash,
		token.UserID,
		string(token.Purpose),
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

func (r *PgTokenRepository) FindByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (domain.SingleUseToken, error) {
	const query = `
		SELECT token_hash, user_id, purpose, expires_at, created_at
		FROM single_use_tokens
		WHERE token_hash = $1 AND purpose = $2
	`
	var (
		tok        domain.SingleUseToken
		purposeStr string
	)
	err := r.pool.QueryRow(ctx, query, tokenHash, string(purpose)).Scan(
		&tok.TokenHash,
		&tok.UserID,
		&purposeStr,
		&tok.ExpiresAt,
		&tok.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SingleUseToken{}, ErrNotFound
	}
	if err != nil {
		return domain.SingleUseToken{}, err
	}
	tok.Purpose = domain.TokenPurpose(purposeStr)
	return tok, nil
}

func (r *PgTokenRepository) DeleteByHash(ctx context.Context, tokenHash string, purpose domain.TokenPurpose) (bool, error) {
	const query = `DELETE FROM single_use_tokens WHERE token_hash = $1 AND purpose = $2`
	tag, err := r.pool.Exec(ctx, query, tokenHash, string(purpose))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM single_use_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
