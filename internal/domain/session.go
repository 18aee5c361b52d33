package domain

import "time"

// SessionTTL es la vida de un token de sesion y del cookie que lo transporta.
const SessionTTL = 7 * 24 * time.Hour

// SessionClaims identifica al usuario dentro del token de sesion firmado.
type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
}
