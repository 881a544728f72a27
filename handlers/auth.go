package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/tokens"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/metrics"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// CourseFinder is the slice of the course store the auth handler needs to
// populate enrolled courses on /me.
type CourseFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error)
}

// AuthHandler owns the /auth routes: registration, the two login portals,
// silent refresh, logout and the current-user lookup.
type AuthHandler struct {
	cfg     *config.Config
	svc     *auth.Service
	repo    accounts.Repository
	courses CourseFinder
}

func NewAuthHandler(cfg *config.Config, svc *auth.Service, repo accounts.Repository, courses CourseFinder) *AuthHandler {
	return &AuthHandler{cfg: cfg, svc: svc, repo: repo, courses: courses}
}

func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/auth")
	g.POST("/register", h.RegisterAccount)
	g.POST("/login", h.Login)
	g.POST("/admin/login", h.AdminLogin)
	// Refresh must stay outside RequireAuth: its whole point is to be
	// callable with an expired access token.
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/me", middleware.RequireAuth(h.cfg, h.repo), h.Me)
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterAccount creates a student account and logs it in immediately.
func (h *AuthHandler) RegisterAccount(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide name, email and a password of at least 6 characters"})
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountExists) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User already exists with this email"})
			return
		}
		logger.Errorf("register failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Registration failed"})
		return
	}
	setAuthCookies(c, h.cfg, res.AccessToken, res.RefreshToken)
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": res.User.Public()})
}

// Login is the student portal entry point.
func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, models.RoleStudent)
}

// AdminLogin is the admin portal entry point. Same credential checks, but a
// student account is turned away with an explicit wrong-portal answer.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, models.RoleAdmin)
}

func (h *AuthHandler) login(c *gin.Context, requiredRole string) {
	portal := requiredRole
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide email and password"})
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, requiredRole)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			metrics.LoginAttempts.WithLabelValues(portal, "invalid_credentials").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
		case errors.Is(err, auth.ErrWrongPortal):
			metrics.LoginAttempts.WithLabelValues(portal, "wrong_portal").Inc()
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": wrongPortalMessage(requiredRole)})
		default:
			metrics.LoginAttempts.WithLabelValues(portal, "error").Inc()
			logger.Errorf("login failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Login failed"})
		}
		return
	}
	metrics.LoginAttempts.WithLabelValues(portal, "success").Inc()
	setAuthCookies(c, h.cfg, res.AccessToken, res.RefreshToken)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": res.User.Public()})
}

func wrongPortalMessage(requiredRole string) string {
	if requiredRole == models.RoleAdmin {
		return "Access denied. Admin credentials required."
	}
	return "This is an admin account. Please use the admin portal."
}

// Refresh exchanges a valid refresh cookie for a new access token bound to
// the account's current session. The refresh token is not rotated.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || raw == "" {
		metrics.TokenRefreshes.WithLabelValues("missing").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No refresh token provided"})
		return
	}
	access, err := h.svc.Refresh(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			metrics.TokenRefreshes.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid refresh token"})
		case errors.Is(err, auth.ErrSessionNotFound):
			metrics.TokenRefreshes.WithLabelValues("not_found").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Session not found, please login again"})
		case errors.Is(err, auth.ErrRefreshMismatch):
			metrics.TokenRefreshes.WithLabelValues("revoked").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Refresh token revoked, please login again"})
		default:
			metrics.TokenRefreshes.WithLabelValues("error").Inc()
			logger.Errorf("refresh failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Token refresh failed"})
		}
		return
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	setAccessCookie(c, h.cfg, access)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Token refreshed"})
}

// Logout clears the server-side session when the caller is identifiable and
// always clears the cookies. A client holding only an expired token still
// gets a clean 200.
func (h *AuthHandler) Logout(c *gin.Context) {
	if raw, err := c.Cookie(middleware.AccessCookie); err == nil && raw != "" {
		if claims, err := tokens.ParseAccessToken(h.cfg, raw); err == nil {
			if id, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
				if err := h.svc.Logout(c.Request.Context(), id); err != nil {
					logger.Warnf("logout: clearing session for %s failed: %v", claims.UserID, err)
				}
			}
		}
	}
	clearAuthCookies(c, h.cfg)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// Me returns the authenticated account with its enrolled courses populated.
func (h *AuthHandler) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	enrolled := []models.Course{}
	if h.courses != nil && len(u.EnrolledCourses) > 0 {
		cs, err := h.courses.FindByIDs(c.Request.Context(), u.EnrolledCourses)
		if err != nil {
			logger.Warnf("me: populating enrolled courses for %s failed: %v", u.ID.Hex(), err)
		} else {
			enrolled = cs
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u.Public(), "enrolledCourses": enrolled})
}
