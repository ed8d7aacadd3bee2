package smtp

import (
	"bytes"
	"log/slog"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/currency-exchange-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailer_FallsBackToLog(t *testing.T) {
	_, ok := NewMailer(&config.Config{}).(*logMailer)
	assert.True(t, ok)
	_, ok = NewMailer(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: "587"}).(*mailer)
	assert.True(t, ok)
}

func TestLogMailer_HidesBodyAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	m := &logMailer{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))}

	assert.NoError(t, m.SendEmail("a@b.co", "Your code", "123456"))
	assert.Contains(t, buf.String(), "a@b.co")
	assert.NotContains(t, buf.String(), "123456")
}

func testMailer() *mailer {
	m := NewMailer(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: "587", SMTPFrom: "Exchange <noreply@exchange.test>"}).(*mailer)
	m.nowF = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestBuildMessage_Headers(t *testing.T) {
	m := testMailer()
	assert.Equal(t, "smtp.example.com:587", m.addr)

	msg, err := m.buildMessage(&mail.Address{Address: "ann@example.com"}, "Your código", "Code: 123456\nValid 5 minutes")
	require.NoError(t, err)
	s := string(msg)
	assert.Contains(t, s, "From: \"Exchange\" <noreply@exchange.test>\r\n")
	assert.Contains(t, s, "To: <ann@example.com>\r\n")
	assert.Contains(t, s, "Subject: =?utf-8?q?Your_c=C3=B3digo?=\r\n")
	assert.Contains(t, s, "Date: Fri, 01 Mar 2024 12:00:00 +0000\r\n")
	assert.Contains(t, s, "@exchange.test>\r\n")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\nCode: 123456\r\nValid 5 minutes"))
}

func TestSendEmail_RejectsHeaderInjection(t *testing.T) {
	m := testMailer()
	assert.Error(t, m.SendEmail("not an address", "hi", "body"))

	_, err := m.buildMessage(&mail.Address{Address: "ann@example.com"}, "hi\r\nBcc: evil@example.com", "body")
	assert.Error(t, err)
}
