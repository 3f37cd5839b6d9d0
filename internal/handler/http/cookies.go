package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitcart/auth-service/internal/config"
)

const (
	refreshCookieName = "refresh_token"
	deviceCookieName  = "trusted_device"

	// refreshCookiePath scopes the refresh cookie to the auth endpoints, so a
	// browser never attaches it to ordinary API calls. The authorization
	// gate's cookie fallback is unaffected: its caller is the server-rendered
	// UI backend, which reads the cookie off its own incoming request and
	// forwards it explicitly, outside browser path-matching rules.
	refreshCookiePath = "/api/v1/auth"
)

// cookieWriter centralizes the attributes of the two auth cookies.
type cookieWriter struct {
	domain string
	secure bool
}

func newCookieWriter(cfg config.ServerConfig) cookieWriter {
	return cookieWriter{domain: cfg.CookieDomain, secure: cfg.CookieSecure}
}

func (w cookieWriter) setRefresh(c *gin.Context, token string, maxAgeSeconds int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, token, maxAgeSeconds, refreshCookiePath, w.domain, w.secure, true)
}

func (w cookieWriter) clearRefresh(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, w.domain, w.secure, true)
}

func (w cookieWriter) setDevice(c *gin.Context, value string, maxAgeSeconds int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(deviceCookieName, value, maxAgeSeconds, "/", w.domain, w.secure, true)
}

func (w cookieWriter) clearDevice(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(deviceCookieName, "", -1, "/", w.domain, w.secure, true)
}

func refreshCookie(c *gin.Context) string {
	value, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return value
}

func deviceCookie(c *gin.Context) string {
	value, err := c.Cookie(deviceCookieName)
	if err != nil {
		return ""
	}
	return value
}
