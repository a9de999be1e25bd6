// Package mail delivers magic-link sign-in emails.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/templeparties/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Mailer sends a magic sign-in link to a student
type Mailer interface {
	SendMagicLink(ctx context.Context, to, link string) error
}

// New builds a Mailer from configuration
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "log":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// SMTPMailer sends mail through a plain SMTP relay
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer creates an SMTP-backed mailer
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}
}

// SendMagicLink sends the sign-in email
func (m *SMTPMailer) SendMagicLink(ctx context.Context, to, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMagicLinkMessage(m.from, to, link)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send magic link email: %w", err)
	}
	return nil
}

func buildMagicLinkMessage(from, to, link string) []byte {
	var b strings.Builder
	b.WriteString("From: Temple Parties <" + from + ">\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Your sign-in link\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Tap the link below to sign in. It works once and expires soon.\r\n")
	b.WriteString("\r\n")
	b.WriteString(link + "\r\n")
	b.WriteString("\r\n")
	b.WriteString("If you didn't request this, you can ignore it.\r\n")
	return []byte(b.String())
}

// Ensure SMTPMailer implements Mailer
var _ Mailer = (*SMTPMailer)(nil)

// LogMailer writes magic links to the application log instead of
// sending mail. Development only; rejected by config validation in
// production.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-backed mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendMagicLink logs the sign-in link
func (m *LogMailer) SendMagicLink(_ context.Context, to, link string) error {
	m.logger.Info("Magic link issued",
		zap.String("to", to),
		zap.String("link", link),
	)
	return nil
}

// Ensure LogMailer implements Mailer
var _ Mailer = (*LogMailer)(nil)
