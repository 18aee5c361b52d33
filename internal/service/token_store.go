package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"authsvc/internal/domain"
	"authsvc/internal/repository"
)

// tokenBytes da 256 bits de entropia; el valor viaja en hex (64 caracteres).
const tokenBytes = 32

// TokenStore emite y canjea tokens de un solo uso por (usuario, proposito).
// Persiste solo SHA-256 del valor crudo.
type TokenStore struct {
	repo   repository.TokenRepository
	now    func() time.Time
	random io.Reader
}

func NewTokenStore(repo repository.TokenRepository) *TokenStore {
	return &TokenStore{
		repo:   repo,
		now:    time.Now,
		random: rand.Reader,
	}
}

// Issue invalida cualquier token previo del mismo proposito y devuelve el valor crudo.
func (s *TokenStore) Issue(ctx context.Context, userID string, purpose domain.TokenPurpose) (string, error) {
	if err := purpose.Validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}

	raw := make([]byte, tokenBytes)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return "", err
	}
	value := hex.EncodeToString(raw)

	if err := s.repo.DeleteAllForUser(ctx, userID, purpose); err != nil {
		return "", err
	}
	now := s.now().UTC()
	err := s.repo.Insert(ctx, domain.SingleUseToken{
		TokenHash: hashToken(value),
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: now.Add(purpose.TTL()),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Redeem devuelve el usuario dueño del token sin consumirlo. Ausente o vencido
// es ErrTokenInvalid; un token vencido se borra al detectarlo.
func (s *TokenStore) Redeem(ctx context.Context, value string, purpose domain.TokenPurpose) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || purpose.Validate() != nil {
		return "", ErrTokenInvalid
	}
	key := hashToken(value)
	tok, err := s.repo.FindByHash(ctx, key, purpose)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	if tok.IsExpiredAt(s.now()) {
		if _, err := s.repo.DeleteByHash(ctx, key, purpose); err != nil {
			return "", err
		}
		return "", ErrTokenInvalid
	}
	return tok.UserID, nil
}

// Consume borra el token si aun existe. false significa que otro request lo consumio antes.
func (s *TokenStore) Consume(ctx context.Context, value string, purpose domain.TokenPurpose) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	return s.repo.DeleteByHash(ctx, hashToken(value), purpose)
}

// Revoke borra el token vivo del usuario para el proposito dado.
func (s *TokenStore) Revoke(ctx context.Context, userID string, purpose domain.TokenPurpose) error {
	return s.repo.DeleteAllForUser(ctx, userID, purpose)
}

func hashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
