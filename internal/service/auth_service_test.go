package service

import (
	"feedbacklens/internal/config"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(ttl time.Duration) *AuthService {
	return NewAuthService(config.AuthConfig{
		Enabled:   true,
		Username:  "instructor",
		Password:  "s3cret",
		JWTSecret: "test-secret",
		TokenTTL:  ttl,
	})
}

func TestAuth_LoginAndValidate(t *testing.T) {
	auth := newTestAuth(time.Hour)

	resp, err := auth.Login("instructor", "s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.HostID, "host_"))
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

	claims, err := auth.ValidateHostToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.HostID, claims.HostID)
	assert.Equal(t, "instructor", claims.Username)
}

func TestAuth_NoExpiry(t *testing.T) {
	auth := newTestAuth(0)

	resp, err := auth.Login("instructor", "s3cret")
	require.NoError(t, err)
	assert.Zero(t, resp.ExpiresAt)
	_, err = auth.ValidateHostToken(resp.Token)
	assert.NoError(t, err)
}

func TestAuth_BadCredentials(t *testing.T) {
	auth := newTestAuth(time.Hour)

	_, err := auth.Login("instructor", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_RejectsForeignAndExpiredTokens(t *testing.T) {
	auth := newTestAuth(time.Hour)

	other := NewAuthService(config.AuthConfig{Username: "instructor", Password: "s3cret", JWTSecret: "other"})
	resp, err := other.Login("instructor", "s3cret")
	require.NoError(t, err)
	_, err = auth.ValidateHostToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	token, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateHostToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ValidateHostToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
