package domain

import (
	"fmt"
	"time"
)

// TokenPurpose separa los espacios de nombres de tokens de un solo uso.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email-verification"
	PurposePasswordReset     TokenPurpose = "password-reset"
)

// TTL devuelve la vigencia de los tokens de cada proposito.
func (p TokenPurpose) TTL() time.Duration {
	switch p {
	case PurposeEmailVerification:
		return 24 * time.Hour
	case PurposePasswordReset:
		return time.Hour
	default:
		return 0
	}
}

// Validate rechaza propositos desconocidos.
func (p TokenPurpose) Validate() error {
	switch p {
	case PurposeEmailVerification, PurposePasswordReset:
		return nil
	default:
		return fmt.Errorf("unknown token purpose %q", string(p))
	}
}

// SingleUseToken es la fila persistida; el valor crudo nunca se guarda, solo su hash.
type SingleUseToken struct {
	TokenHash string
	UserID    string
	Purpose   TokenPurpose
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpiredAt indica si el token ya vencio en el instante dado.
func (t SingleUseToken) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
