// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/tourhubapp/tourhub-server/internal/config"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string // text/plain
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP delivers mail through an SMTP relay using gomail.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP creates an SMTP mailer from config.
func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers the message. Delivery aborts early if the context is
// already done; gomail itself has no context support.
func (m *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	email := gomail.NewMessage()
	email.SetHeader("From", m.from)
	email.SetHeader("To", msg.To)
	email.SetHeader("Subject", msg.Subject)
	email.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(email); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// Log is a development Mailer that logs messages instead of sending them.
// Used when no SMTP host is configured.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging mailer.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Send logs the message body at info level.
func (m *Log) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "email (not sent: no SMTP host configured)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

// FromConfig picks the SMTP mailer when a host is configured,
// otherwise the logging mailer.
func FromConfig(cfg config.SMTPConfig, logger *slog.Logger) Mailer {
	if cfg.Host == "" {
		return NewLog(logger)
	}
	return NewSMTP(cfg)
}
