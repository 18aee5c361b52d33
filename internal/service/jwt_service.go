package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authsvc/internal/domain"
)

// JWTService emite y valida tokens de sesion firmados (HS256).
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid       = errors.New("jwt invalid")
	ErrJWTExpired       = errors.New("jwt expired")
	ErrJWTSecretMissing = errors.New("jwt secret is required")
)

const defaultSessionIssuer = "authsvc"

// NewJWTService falla si no hay secreto: es un error de arranque, no de request.
func NewJWTService(secret, issuer string) (*JWTService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrJWTSecretMissing
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = defaultSessionIssuer
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    domain.SessionTTL,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Issue firma los claims con expiracion now + SessionTTL.
func (s *JWTService) Issue(claims domain.SessionClaims) (string, error) {
	if strings.TrimSpace(claims.UserID) == "" {
		return "", ErrJWTInvalid
	}
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// Verify devuelve ErrJWTInvalid o ErrJWTExpired; nunca entrega claims sin verificar.
func (s *JWTService) Verify(tokenString string) (domain.SessionClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return domain.SessionClaims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return domain.SessionClaims{}, err
	}
	if !s.isValidClaims(claims) {
		return domain.SessionClaims{}, ErrJWTInvalid
	}
	return domain.SessionClaims{UserID: claims.UserID, Email: claims.Email}, nil
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
