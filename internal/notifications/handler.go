package notifications

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/response"
)

// Lister is the read side the handler needs.
type Lister interface {
	List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Notification, error)
	ResetForResend(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Notification, error)
}

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo   Lister
	outbox *Outbox
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo Lister, outbox *Outbox, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, outbox: outbox, logger: logger}
}

// List handles GET /notifications. Optional ?status= and ?limit=.
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{Status: c.Query("status")}
	switch f.Status {
	case "", models.NotificationPending, models.NotificationSent, models.NotificationFailed:
	default:
		response.BadRequest(c, "حالة الإشعار غير صالحة")
		return
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(c, "قيمة limit غير صالحة")
			return
		}
		f.Limit = n
	}
	list, err := h.repo.List(c.Request.Context(), tenant.FromContext(c), f)
	if err != nil {
		middleware.Log(c, h.logger).Error("list notifications", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, list)
}

// Resend handles POST /notifications/:id/resend.
func (h *Handler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "معرّف الإشعار غير صالح")
		return
	}
	n, err := h.repo.ResetForResend(c.Request.Context(), tenant.FromContext(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "الإشعار غير موجود")
			return
		}
		middleware.Log(c, h.logger).Error("reset notification", zap.Error(err))
		response.Internal(c)
		return
	}
	h.outbox.Dispatch(c.Request.Context(), n)
	response.OK(c, n)
}
