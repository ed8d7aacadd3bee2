package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/currency-exchange-api/internal/config"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, expiry time.Duration) *Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600))
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))

	p, err := NewProvider(&config.Config{JWTPrivateKeyPath: privPath, JWTPublicKeyPath: pubPath, JWTExpiry: expiry})
	require.NoError(t, err)
	return p
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	tok, err := p.Sign("u1", domain.RoleAdmin, domain.LoginSMS)
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, domain.LoginSMS, claims.LoginType)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestVerify_Expired(t *testing.T) {
	p := newTestProvider(t, -time.Minute)
	tok, err := p.Sign("u1", domain.RoleUser, domain.LoginPassword)
	require.NoError(t, err)
	_, err = p.Verify(tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_RejectsForeignIssuerAndAlgorithm(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	now := time.Now()

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(p.privateKey)
	require.NoError(t, err)
	_, err = p.Verify(foreign)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = p.Verify(hmac)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerify_OtherKey(t *testing.T) {
	tok, err := newTestProvider(t, time.Hour).Sign("u1", domain.RoleUser, domain.LoginPassword)
	require.NoError(t, err)
	_, err = newTestProvider(t, time.Hour).Verify(tok)
	assert.Error(t, err)
}

func TestNewProvider_MissingFiles(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: "/nonexistent", JWTPublicKeyPath: "/nonexistent"})
	assert.Error(t, err)
}
