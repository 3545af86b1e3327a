package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        expiry,
		RefreshExpiry: 2 * expiry,
		Issuer:        "lessionprm-test",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	m := newTestManager(time.Hour)

	access, err := m.GenerateAccessToken(7, "a@example.com", "USER", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, access.JTI)

	claims, err := m.ValidateToken(access.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, access.JTI, claims.ID)

	refresh, err := m.GenerateRefreshToken(7, "a@example.com", "USER", 3)
	require.NoError(t, err)
	claims, err = m.ValidateToken(refresh.Token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt))
}

func TestValidateTokenErrors(t *testing.T) {
	m := newTestManager(-time.Minute)

	expired, err := m.GenerateAccessToken(1, "a@example.com", "USER", 0)
	require.NoError(t, err)

	_, err = m.ValidateToken(expired.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTManager(JWTConfig{Secret: "other", Expiry: time.Hour})
	foreign, err := other.GenerateAccessToken(1, "a@example.com", "USER", 0)
	require.NoError(t, err)

	_, err = m.ValidateToken(foreign.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "battery staple"), ErrPasswordMismatch)
}
