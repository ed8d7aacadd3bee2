package sns

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/currency-exchange-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_LogsWithoutRegion(t *testing.T) {
	s, err := NewSender(context.Background(), &config.Config{})
	require.NoError(t, err)
	_, ok := s.(*logSender)
	assert.True(t, ok)

	s, err = NewSender(context.Background(), &config.Config{
		SNSRegion: "us-east-1", AWSAccessKeyID: "test", AWSSecretKey: "test",
	})
	require.NoError(t, err)
	_, ok = s.(*sender)
	assert.True(t, ok)
}

func TestLogSender_HidesBodyAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	s := &logSender{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))}

	require.NoError(t, s.SendSMS(context.Background(), "+15551234567", "Your code is 123456"))
	assert.Contains(t, buf.String(), "+15551234567")
	assert.NotContains(t, buf.String(), "Your code")
}
