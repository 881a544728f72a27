package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/learnhub/learnhub/internal/config"
)

// ErrExpired reports a structurally valid, correctly signed token whose
// expiry has passed. Callers branch on it to trigger silent refresh.
var ErrExpired = errors.New("token expired")

// AccessClaims are carried by short-lived access tokens. SessionToken must
// match the account's stored session token for the token to authenticate.
type AccessClaims struct {
	UserID       string `json:"id"`
	SessionToken string `json:"sessionToken"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by refresh tokens. Validity additionally
// requires the raw token's hash to match the one stored on the account.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a short-lived access token bound to the given
// session token.
func GenerateAccessToken(cfg *config.Config, userID, sessionToken string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:       userID,
		SessionToken: sessionToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.JWT.AccessTokenTTL)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.AccessSecret))
}

// GenerateRefreshToken signs a long-lived refresh token with the refresh
// secret. The raw string is returned to the client; only its hash is stored.
func GenerateRefreshToken(cfg *config.Config, userID string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.JWT.RefreshTokenTTL)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.RefreshSecret))
}

// ParseAccessToken verifies signature and expiry against the access secret.
// Expired-but-otherwise-valid tokens return ErrExpired so the caller can
// distinguish them from forgeries.
func ParseAccessToken(cfg *config.Config, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.JWT.AccessSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken verifies signature and expiry against the refresh secret.
func ParseRefreshToken(cfg *config.Config, raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.JWT.RefreshSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, err
	}
	return claims, nil
}
