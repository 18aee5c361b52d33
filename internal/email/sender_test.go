package email

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLinks(t *testing.T) {
	l := Links{AppURL: "https://app.example.com/ "}
	if got := l.VerificationURL("abc123"); got != "https://app.example.com/verify-email?token=abc123" {
		t.Fatalf("unexpected verification url: %q", got)
	}
	if got := l.PasswordResetURL("a b"); got != "https://app.example.com/reset-password?token=a+b" {
		t.Fatalf("unexpected reset url: %q", got)
	}
}

func TestDisabledSender(t *testing.T) {
	s := NewDisabledSender("")
	if err := s.SendVerificationEmail(context.Background(), "u@example.com", "t"); err == nil {
		t.Fatalf("expected error from disabled sender")
	}
	s = NewDisabledSender("smtp not configured")
	err := s.SendPasswordResetEmail(context.Background(), "u@example.com", "t")
	if err == nil || err.Error() != "smtp not configured" {
		t.Fatalf("expected configured reason, got %v", err)
	}
}

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{From: "a@b.c", AppURL: "http://x"}); err == nil {
		t.Fatalf("expected missing host error")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp", AppURL: "http://x"}); err == nil {
		t.Fatalf("expected missing from error")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp", From: "a@b.c"}); err == nil {
		t.Fatalf("expected missing app url error")
	}
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp", From: "a@b.c", AppURL: "http://x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.port != 587 {
		t.Fatalf("expected default port 587, got %d", s.port)
	}
}

func TestSMTPSender_RejectsEmptyRecipientAndCanceledContext(t *testing.T) {
	s, _ := NewSMTPSender(SMTPConfig{Host: "smtp", From: "a@b.c", AppURL: "http://x"})
	if err := s.SendVerificationEmail(context.Background(), " ", "t"); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendPasswordResetEmail(ctx, "u@example.com", "t"); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestMessages(t *testing.T) {
	subject, body := verificationMessage("http://x/verify-email?token=t")
	if subject != "Verify your email address" || !strings.Contains(body, "http://x/verify-email?token=t") || !strings.Contains(body, "24 hours") {
		t.Fatalf("unexpected verification message: %q / %q", subject, body)
	}
	subject, body = passwordResetMessage("http://x/reset-password?token=t")
	if subject != "Reset your password" || !strings.Contains(body, "1 hour") {
		t.Fatalf("unexpected reset message: %q / %q", subject, body)
	}

	msg := buildMessage("no-reply@example.com", "Auth System", "u@example.com", "Hi", "body")
	if !strings.HasPrefix(msg, "From: Auth System <no-reply@example.com>\r\n") {
		t.Fatalf("unexpected from header: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody") {
		t.Fatalf("unexpected body framing: %q", msg)
	}
}

// silentSMTPServer acepta conexiones y nunca envia el saludo.
func silentSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestSMTPSender_TimesOutOnSilentServer(t *testing.T) {
	host, port := silentSMTPServer(t)
	s, err := NewSMTPSender(SMTPConfig{
		Host:    host,
		Port:    port,
		From:    "no-reply@example.com",
		AppURL:  "https://app.example.com",
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	start := time.Now()
	err = s.SendVerificationEmail(context.Background(), "u@example.com", "tok")
	if err == nil {
		t.Fatalf("expected error from silent server")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("send blocked for %v", elapsed)
	}
}

func TestSMTPSender_StopsWhenContextEnds(t *testing.T) {
	host, port := silentSMTPServer(t)
	s, err := NewSMTPSender(SMTPConfig{
		Host:    host,
		Port:    port,
		From:    "no-reply@example.com",
		AppURL:  "https://app.example.com",
		Timeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := s.SendPasswordResetEmail(ctx, "u@example.com", "tok"); err == nil {
		t.Fatalf("expected error when context expires")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("send ignored the context deadline, took %v", elapsed)
	}
}
