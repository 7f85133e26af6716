package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-churiwal/auth-gateway/internal/autherr"
	"github.com/aman-churiwal/auth-gateway/internal/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:   "test-signing-secret",
		Issuer:   "auth-gateway",
		Audience: "api-clients",
		Lifetime: 24 * time.Hour,
		Leeway:   5 * time.Minute,
	}
}

func fixedTokenService(cfg config.JWTConfig, at time.Time) *TokenService {
	s := NewTokenService(cfg)
	s.clock = func() time.Time { return at }
	return s
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedTokenService(testJWTConfig(), now)

	token, err := s.Issue("alice@example.com")
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, "auth-gateway", claims.Issuer)
	assert.Equal(t, "api-clients", claims.Audience)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenExpired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedTokenService(testJWTConfig(), issued)

	token, err := s.Issue("alice@example.com")
	require.NoError(t, err)

	// Past the lifetime plus leeway.
	s.clock = func() time.Time { return issued.Add(24*time.Hour + 6*time.Minute) }

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, autherr.ErrExpiredToken)
}

func TestTokenLeewayToleratesClockSkew(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedTokenService(testJWTConfig(), issued)

	token, err := s.Issue("alice@example.com")
	require.NoError(t, err)

	// Just past the lifetime, still inside the leeway window.
	s.clock = func() time.Time { return issued.Add(24*time.Hour + 4*time.Minute) }

	_, err = s.Validate(token)
	assert.NoError(t, err)
}

func TestTokenWrongIssuer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	other := testJWTConfig()
	other.Issuer = "someone-else"
	issuer := fixedTokenService(other, now)

	token, err := issuer.Issue("alice@example.com")
	require.NoError(t, err)

	s := fixedTokenService(testJWTConfig(), now)
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, autherr.ErrWrongIssuerAudience)
}

func TestTokenWrongAudience(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	other := testJWTConfig()
	other.Audience = "different-clients"
	issuer := fixedTokenService(other, now)

	token, err := issuer.Issue("alice@example.com")
	require.NoError(t, err)

	s := fixedTokenService(testJWTConfig(), now)
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, autherr.ErrWrongIssuerAudience)
}

func TestTokenBadSignature(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	other := testJWTConfig()
	other.Secret = "a-different-secret"
	forger := fixedTokenService(other, now)

	token, err := forger.Issue("alice@example.com")
	require.NoError(t, err)

	s := fixedTokenService(testJWTConfig(), now)
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, autherr.ErrBadSignature)
}

func TestTokenMalformed(t *testing.T) {
	s := NewTokenService(testJWTConfig())

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := s.Validate(token)
		assert.ErrorIs(t, err, autherr.ErrMalformedToken, "token %q", token)
	}
}
