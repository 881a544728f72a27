package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// Cookie policy: httpOnly always; Secure + SameSite=None in production so the
// frontend can be served from another origin, SameSite=Lax in development.

func cookieSameSite(cfg *config.Config) http.SameSite {
	if cfg.IsProduction() {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func setAccessCookie(c *gin.Context, cfg *config.Config, access string) {
	c.SetSameSite(cookieSameSite(cfg))
	c.SetCookie(middleware.AccessCookie, access, int(cfg.JWT.AccessTokenTTL.Seconds()), "/", "", cfg.IsProduction(), true)
}

func setAuthCookies(c *gin.Context, cfg *config.Config, access, refresh string) {
	setAccessCookie(c, cfg, access)
	c.SetSameSite(cookieSameSite(cfg))
	c.SetCookie(middleware.RefreshCookie, refresh, int(cfg.JWT.RefreshTokenTTL.Seconds()), "/", "", cfg.IsProduction(), true)
}

func clearAuthCookies(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(cookieSameSite(cfg))
	c.SetCookie(middleware.AccessCookie, "", -1, "/", "", cfg.IsProduction(), true)
	c.SetSameSite(cookieSameSite(cfg))
	c.SetCookie(middleware.RefreshCookie, "", -1, "/", "", cfg.IsProduction(), true)
}
