package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "auth-token"

// SetSessionCookie writes the session cookie (HttpOnly, SameSite=Lax).
func SetSessionCookie(c *gin.Context, token string, maxAgeSeconds int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAgeSeconds, "/", "", secure, true)
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}
