package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
	timeout  time.Duration
	links    Links
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseTLS   bool
	AppURL   string

	// Timeout acota conexion y dialogo SMTP completo; 0 usa el default.
	Timeout time.Duration
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if strings.TrimSpace(cfg.AppURL) == "" {
		return nil, fmt.Errorf("app url is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
		useTLS:   cfg.UseTLS,
		timeout:  timeout,
		links:    Links{AppURL: cfg.AppURL},
	}, nil
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	subject, body := verificationMessage(s.links.VerificationURL(token))
	return s.send(ctx, toEmail, subject, body)
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	subject, body := passwordResetMessage(s.links.PasswordResetURL(token))
	return s.send(ctx, toEmail, subject, body)
}

func verificationMessage(link string) (string, string) {
	body := fmt.Sprintf(
		"Thanks for signing up! Please verify your email address by opening the link below:\n\n%s\n\n"+
			"This link expires in 24 hours.\nIf you didn't create an account, you can safely ignore this email.\n",
		link,
	)
	return "Verify your email address", body
}

func passwordResetMessage(link string) (string, string) {
	body := fmt.Sprintf(
		"We received a request to reset your password. Open the link below to choose a new one:\n\n%s\n\n"+
			"This link expires in 1 hour.\nIf you didn't request a password reset, you can safely ignore this email.\n",
		link,
	)
	return "Reset your password", body
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, body string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(s.from, s.fromName, toEmail, subject, body)
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Un servidor mudo no debe colgar el request: la conexion muere con el
	// deadline y tambien si se cancela el contexto.
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer client.Close()

	if !s.useTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return err
			}
		}
	}
	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(toEmail); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *SMTPSender) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.timeout}
	if s.useTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.host}}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
