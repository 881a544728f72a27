package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/tokens"
	"github.com/learnhub/learnhub/pkg/metrics"
)

// Machine-readable rejection codes the client branches on. TOKEN_EXPIRED is
// the only code that triggers silent refresh; SESSION_INVALIDATED is
// unrecoverable without a fresh login.
const (
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeSessionInvalidated = "SESSION_INVALIDATED"
)

// AccessCookie and RefreshCookie name the auth cookies on the wire.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

const userContextKey = "currentUser"

// SetCurrentUser attaches an account to the request context the way
// RequireAuth does. Exposed for handler tests.
func SetCurrentUser(c *gin.Context, u *models.User) {
	c.Set(userContextKey, u)
}

// CurrentUser returns the account attached by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// RequireAuth verifies the access-token cookie on every protected call:
// presence -> signature -> expiry -> live session token match. Each failed
// step short-circuits with a terminal 401; only expiry and session
// supersession carry distinguishable codes.
func RequireAuth(cfg *config.Config, repo accounts.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(AccessCookie)
		if err != nil || raw == "" {
			metrics.AuthRejected.WithLabelValues("missing").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized, please login"})
			return
		}

		claims, err := tokens.ParseAccessToken(cfg, raw)
		if err != nil {
			if errors.Is(err, tokens.ErrExpired) {
				metrics.AuthRejected.WithLabelValues("expired").Inc()
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"message": "Access token expired",
					"code":    CodeTokenExpired,
				})
				return
			}
			metrics.AuthRejected.WithLabelValues("invalid").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized, token failed"})
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			metrics.AuthRejected.WithLabelValues("invalid").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized, token failed"})
			return
		}
		u, err := repo.FindByID(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized, token failed"})
			return
		}
		if u == nil {
			metrics.AuthRejected.WithLabelValues("unknown_user").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User not found"})
			return
		}

		// Single-session enforcement: a newer login rewrites the stored
		// session token, which invalidates this one immediately.
		if u.SessionToken != claims.SessionToken {
			metrics.AuthRejected.WithLabelValues("superseded").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Session invalidated. Another device has logged in.",
				"code":    CodeSessionInvalidated,
			})
			return
		}

		c.Set(userContextKey, u)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after RequireAuth; it is a
// pure authorization check with no session implications.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || u.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied. Admin only."})
			return
		}
		c.Next()
	}
}
