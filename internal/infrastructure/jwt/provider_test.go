package jwtinfra

import (
	"testing"
	"time"

	"github.com/clearflow/clearflow-api/internal/config"
	"github.com/clearflow/clearflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, ttl time.Duration) *Provider {
	t.Helper()
	p, err := NewProvider(&config.Config{TokenSecret: "test-secret", TokenTTL: ttl})
	require.NoError(t, err)
	return p
}

func TestNewProvider_EmptySecret(t *testing.T) {
	_, err := NewProvider(&config.Config{TokenTTL: time.Hour})
	assert.Error(t, err)
}

func TestSignUser_RoundTrip(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	changed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &domain.User{UserID: "u1", Username: "alice", PasswordChangedAt: &changed}

	tok, err := p.SignUser(u)
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeUser, claims.TokenType)
	assert.Equal(t, changed.UnixMilli(), claims.PasswordChangedAt)
}

func TestSignUser_NeverChangedPassword_ZeroEpoch(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	tok, err := p.SignUser(&domain.User{UserID: "u1", Username: "alice"})
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Zero(t, claims.PasswordChangedAt)
}

func TestSignDevice_RoundTrip(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	tok, err := p.SignDevice("ESP32-0001")
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeDevice, claims.TokenType)
	assert.Equal(t, "ESP32-0001", claims.DeviceSerial)
	assert.Empty(t, claims.UserID)
}

func TestVerify_ExpiredToken(t *testing.T) {
	p := newTestProvider(t, -time.Minute) // already expired at issuance
	tok, err := p.SignUser(&domain.User{UserID: "u1"})
	require.NoError(t, err)

	_, err = p.Verify(tok)
	assert.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	tok, err := p.SignUser(&domain.User{UserID: "u1"})
	require.NoError(t, err)

	other, err := NewProvider(&config.Config{TokenSecret: "other-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	_, err = other.Verify(tok)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	_, err := p.Verify("not-a-token")
	assert.Error(t, err)
}
