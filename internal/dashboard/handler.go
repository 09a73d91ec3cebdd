package dashboard

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/response"
)

// StatsSource computes dashboard stats.
type StatsSource interface {
	Stats(ctx context.Context, scope tenant.Scope) (*Stats, error)
}

// Handler handles GET /dashboard/stats.
type Handler struct {
	repo   StatsSource
	logger *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(repo StatsSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Stats handles GET /dashboard/stats.
func (h *Handler) Stats(c *gin.Context) {
	scope := tenant.FromContext(c)
	if middleware.Role(c).Privileged() && !scope.All && !scope.IsOrganization() {
		response.BadRequest(c, tenant.MsgNoOrganization)
		return
	}
	s, err := h.repo.Stats(c.Request.Context(), scope)
	if err != nil {
		middleware.Log(c, h.logger).Error("dashboard stats", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, s)
}
