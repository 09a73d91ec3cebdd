package tenant

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/pkg/metrics"
	"github.com/hackhub/backend/pkg/response"
)

// HeaderOrganization selects the active organization for admins with more
// than one membership.
const HeaderOrganization = "X-Organization-ID"

const contextScope = "tenant_scope"

// Error messages returned to clients.
const (
	MsgNoOrganization      = "لا توجد مؤسسة مرتبطة بهذا الحساب"
	MsgNotMember           = "ليس لديك صلاحية الوصول إلى هذه المؤسسة"
	MsgInvalidOrganization = "معرّف المؤسسة غير صالح"
)

// Middleware resolves the request scope and stores it in context. It must
// run after middleware.JWT.
func Middleware(resolver *Resolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Unauthorized(c, middleware.MsgUnauthenticated)
			c.Abort()
			return
		}
		scope, err := resolver.Resolve(c.Request.Context(), userID, middleware.Role(c),
			middleware.ClaimedOrganization(c), c.GetHeader(HeaderOrganization))
		if err != nil {
			switch {
			case errors.Is(err, ErrNoOrganization):
				metrics.RecordTenantFailure("no_organization")
				response.BadRequest(c, MsgNoOrganization)
			case errors.Is(err, ErrNotMember):
				metrics.RecordTenantFailure("not_member")
				response.Forbidden(c, MsgNotMember)
			case errors.Is(err, ErrInvalidOrganization):
				metrics.RecordTenantFailure("invalid_header")
				response.BadRequest(c, MsgInvalidOrganization)
			default:
				middleware.Log(c, logger).Error("resolve tenant scope", zap.Error(err))
				response.Internal(c)
			}
			c.Abort()
			return
		}
		c.Set(contextScope, scope)
		c.Next()
	}
}

// FromContext returns the scope set by Middleware. A request that skipped
// the middleware gets the zero Scope, which sees nothing.
func FromContext(c *gin.Context) Scope {
	v, ok := c.Get(contextScope)
	if !ok {
		return Scope{}
	}
	s, _ := v.(Scope)
	return s
}

// WithScope stores s in context. Used by tests and by handlers that build a
// scope without the middleware.
func WithScope(c *gin.Context, s Scope) {
	c.Set(contextScope, s)
}
