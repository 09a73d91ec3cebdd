package assignments

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/response"
)

// Client-facing messages.
const (
	MsgNotFound    = "التكليف غير موجود"
	MsgUnknownKind = "نوع التكليف غير معروف"
	MsgInvalidID   = "المعرّف غير صالح"
)

// Store is the assignment persistence the handler needs.
type Store interface {
	List(ctx context.Context, scope tenant.Scope, kind models.AssignmentKind, f ListFilter) ([]*models.Assignment, error)
	Deactivate(ctx context.Context, scope tenant.Scope, kind models.AssignmentKind, id uuid.UUID) error
}

// Handler handles assignment HTTP endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates an assignments handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// kindParam accepts the singular kind or its plural table name.
func kindParam(c *gin.Context) (models.AssignmentKind, bool) {
	v := c.Param("kind")
	for _, k := range []models.AssignmentKind{models.AssignmentSupervisor, models.AssignmentJudge, models.AssignmentExpert} {
		if v == string(k) || v == k.Table() {
			return k, true
		}
	}
	response.BadRequest(c, MsgUnknownKind)
	return "", false
}

// List handles GET /assignments/:kind. Optional ?hackathon_id= and ?active=true.
func (h *Handler) List(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	f := ListFilter{ActiveOnly: c.Query("active") == "true"}
	if v := c.Query("hackathon_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, MsgInvalidID)
			return
		}
		f.HackathonID = &id
	}
	list, err := h.repo.List(c.Request.Context(), tenant.FromContext(c), kind, f)
	if err != nil {
		middleware.Log(c, h.logger).Error("list assignments", zap.String("kind", string(kind)), zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, list)
}

// Deactivate handles DELETE /assignments/:kind/:id.
func (h *Handler) Deactivate(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, MsgInvalidID)
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), tenant.FromContext(c), kind, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, MsgNotFound)
			return
		}
		middleware.Log(c, h.logger).Error("deactivate assignment", zap.Error(err))
		response.Internal(c)
		return
	}
	response.NoContent(c)
}
