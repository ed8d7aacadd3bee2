package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "memory", cfg.VerificationBackend)
	assert.Equal(t, 5*time.Minute, cfg.VerificationCodeTTL)
	assert.Equal(t, time.Minute, cfg.ResendCooldown)
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("VERIFICATION_CODE_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TRUST_PROXY", "true")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 90*time.Second, cfg.VerificationCodeTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.TrustProxy)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("RATE_CACHE_TTL", "soon")
	assert.Equal(t, time.Minute, Load().RateCacheTTL)
}

func TestLoad_ExposeCodesRefusedInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("VERIFICATION_EXPOSE_CODES", "true")
	assert.False(t, Load().ExposeCodes)
}
