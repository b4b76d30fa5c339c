package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// CookieConfig controls the session cookies
type CookieConfig struct {
	Secure bool
	Domain string
}

// setSessionCookies sets both token cookies as http-only session cookies
func (cfg CookieConfig) setSessionCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, accessToken, 0, "/", cfg.Domain, cfg.Secure, true)
	c.SetCookie(refreshTokenCookie, refreshToken, 0, "/", cfg.Domain, cfg.Secure, true)
}

// clearSessionCookies expires both token cookies
func (cfg CookieConfig) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", cfg.Domain, cfg.Secure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", cfg.Domain, cfg.Secure, true)
}
