package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConflict           = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
)

// ValidationError reune todas las reglas violadas por una entrada.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

func newValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

// InternalError envuelve fallas inesperadas (storage, firma). El detalle solo va a logs.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}
