package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
)

// Sessions issues and ends cookie-backed sessions.
type Sessions struct {
	jwt    *JWTService
	secure bool
}

// NewSessions creates a session issuer.
func NewSessions(jwt *JWTService, secureCookie bool) *Sessions {
	return &Sessions{jwt: jwt, secure: secureCookie}
}

// Start signs a token for user, sets the session cookie and returns the
// token for clients that prefer a Bearer header.
func (s *Sessions) Start(c *gin.Context, user *models.User, organizationID *uuid.UUID) (string, error) {
	token, err := s.jwt.Generate(user, organizationID)
	if err != nil {
		return "", err
	}
	middleware.SetSessionCookie(c, token, int(s.jwt.TTL().Seconds()), s.secure)
	return token, nil
}

// End clears the session cookie.
func (s *Sessions) End(c *gin.Context) {
	middleware.ClearSessionCookie(c, s.secure)
}
