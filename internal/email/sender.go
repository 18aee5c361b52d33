package email

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// Sender entrega los correos de verificacion y de recuperacion de contrasena.
// Recibe el token crudo; el enlace y el cuerpo se construyen aqui.
type Sender interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

func (s *disabledSender) SendVerificationEmail(_ context.Context, _, _ string) error {
	return s.err()
}

func (s *disabledSender) SendPasswordResetEmail(_ context.Context, _, _ string) error {
	return s.err()
}

// Links arma las URLs que se incluyen en los correos.
type Links struct {
	AppURL string
}

func (l Links) VerificationURL(token string) string {
	return l.build("/verify-email", token)
}

func (l Links) PasswordResetURL(token string) string {
	return l.build("/reset-password", token)
}

func (l Links) build(path, token string) string {
	base := strings.TrimRight(strings.TrimSpace(l.AppURL), "/")
	return base + path + "?token=" + url.QueryEscape(token)
}
