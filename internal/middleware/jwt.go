package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/metrics"
	"github.com/hackhub/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextClaimedOrganization is the organization embedded in the token, if any.
	ContextClaimedOrganization = "claimed_organization_id"
)

// MsgUnauthenticated is returned for every credential failure.
const MsgUnauthenticated = "يرجى تسجيل الدخول"

// Principal is the identity carried by a verified session token.
type Principal struct {
	UserID         uuid.UUID
	Email          string
	Role           models.Role
	OrganizationID *uuid.UUID
}

// TokenVerifier verifies a signed session token.
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}

// JWT returns a middleware that validates the session token from the
// auth-token cookie, falling back to a Bearer header, and sets user claims in
// context. A rejected token also clears the cookie.
func JWT(verifier TokenVerifier, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			metrics.RecordAuth("missing")
			response.Unauthorized(c, MsgUnauthenticated)
			c.Abort()
			return
		}
		p, err := verifier.Verify(token)
		if err != nil {
			metrics.RecordAuth("invalid")
			ClearSessionCookie(c, secureCookie)
			response.Unauthorized(c, MsgUnauthenticated)
			c.Abort()
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

// OptionalJWT sets user claims when the request carries a valid session
// token and otherwise passes through anonymously. An invalid cookie is
// cleared.
func OptionalJWT(verifier TokenVerifier, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}
		p, err := verifier.Verify(token)
		if err != nil {
			ClearSessionCookie(c, secureCookie)
			c.Next()
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p *Principal) {
	c.Set(ContextUserID, p.UserID)
	c.Set(ContextUserRole, p.Role)
	c.Set(ContextUserEmail, p.Email)
	if p.OrganizationID != nil {
		c.Set(ContextClaimedOrganization, *p.OrganizationID)
	}
}

func tokenFromRequest(c *gin.Context) string {
	if v, err := c.Cookie(CookieName); err == nil && v != "" {
		return v
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// UserID returns the authenticated user's ID.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Role returns the authenticated user's role, or "" when unauthenticated.
func Role(c *gin.Context) models.Role {
	v, _ := c.Get(ContextUserRole)
	r, _ := v.(models.Role)
	return r
}

// ClaimedOrganization returns the organization carried in the token.
func ClaimedOrganization(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(ContextClaimedOrganization)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
