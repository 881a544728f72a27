package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:    "access-secret",
			RefreshSecret:   "refresh-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	raw, err := GenerateAccessToken(cfg, "64f000000000000000000001", "session-abc")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, raw)
	require.NoError(t, err)
	require.Equal(t, "64f000000000000000000001", claims.UserID)
	require.Equal(t, "session-abc", claims.SessionToken)
}

func TestAccessTokenExpired(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessTokenTTL = -1 * time.Minute
	raw, err := GenerateAccessToken(cfg, "u1", "s1")
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, raw)
	require.True(t, errors.Is(err, ErrExpired), "want ErrExpired, got %v", err)
}

// The two token kinds use distinct secrets, so one must never verify
// against the other's parser.
func TestSecretsAreNotInterchangeable(t *testing.T) {
	cfg := testConfig()

	access, err := GenerateAccessToken(cfg, "u1", "s1")
	require.NoError(t, err)
	_, err = ParseRefreshToken(cfg, access)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrExpired))

	refresh, err := GenerateRefreshToken(cfg, "u1")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, refresh)
	require.Error(t, err)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	raw, err := GenerateRefreshToken(cfg, "u42")
	require.NoError(t, err)

	claims, err := ParseRefreshToken(cfg, raw)
	require.NoError(t, err)
	require.Equal(t, "u42", claims.UserID)
}

func TestGarbageToken(t *testing.T) {
	cfg := testConfig()
	_, err := ParseAccessToken(cfg, "not.a.jwt")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrExpired))
}
