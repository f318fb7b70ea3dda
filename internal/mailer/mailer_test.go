package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/config"
)

func TestFromConfig(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	m := FromConfig(config.SMTPConfig{}, logger)
	_, ok := m.(*Log)
	assert.True(t, ok, "no host should select the logging mailer")

	m = FromConfig(config.SMTPConfig{Host: "smtp.example.com", Port: 587}, logger)
	_, ok = m.(*SMTP)
	assert.True(t, ok, "a host should select the SMTP mailer")
}

func TestLog_Send(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m := NewLog(logger)
	err := m.Send(context.Background(), Message{
		To:      "traveler@example.com",
		Subject: "Verify your email",
		Body:    "Click the link",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "traveler@example.com")
	assert.Contains(t, out, "Verify your email")
}

func TestSend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logMailer := NewLog(slog.New(slog.DiscardHandler))
	err := logMailer.Send(ctx, Message{To: "a@b.c"})
	assert.ErrorIs(t, err, context.Canceled)

	smtpMailer := NewSMTP(config.SMTPConfig{Host: "smtp.example.com", Port: 587})
	err = smtpMailer.Send(ctx, Message{To: "a@b.c"})
	assert.ErrorIs(t, err, context.Canceled)
}
