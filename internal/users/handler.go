package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// Client-facing messages.
const (
	MsgNotFound     = "المستخدم غير موجود"
	MsgInvalidID    = "معرّف المستخدم غير صالح"
	MsgInvalidRole  = "الدور غير صالح"
	MsgInvalidQuery = "معايير البحث غير صالحة"
	MsgSelf         = "لا يمكن تنفيذ هذا الإجراء على حسابك"
	MsgLastOwner    = "المستخدم هو المالك الوحيد لمؤسسة، استخدم cascade=organization لحذفها معه"
)

// CascadeOrganization is the ?cascade= value that deletes orphaned
// organizations together with the user.
const CascadeOrganization = "organization"

// Store is the persistence the handler needs.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]models.UserPublic, error)
	SetRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID, cascade bool) ([]uuid.UUID, error)
}

// RoleRequest is the body for PATCH /users/:id/role.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Handler handles master user administration.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// targetID parses :id and refuses the caller's own account.
func targetID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, MsgInvalidID)
		return uuid.Nil, false
	}
	if self, _ := middleware.UserID(c); self == id {
		response.BadRequest(c, MsgSelf)
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /users. Optional ?role=, ?q=, ?limit=, ?offset=.
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{Role: models.Role(c.Query("role")), Search: c.Query("q")}
	if f.Role != "" && !f.Role.Valid() {
		response.BadRequest(c, MsgInvalidRole)
		return
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(c, MsgInvalidQuery)
			return
		}
		*dst = n
	}
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		middleware.Log(c, h.logger).Error("list users", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, list)
}

// UpdateRole handles PATCH /users/:id/role.
func (h *Handler) UpdateRole(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidRole)
		return
	}
	role := models.Role(req.Role)
	if !role.Valid() {
		response.BadRequest(c, MsgInvalidRole)
		return
	}
	u, err := h.repo.SetRole(c.Request.Context(), id, role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, MsgNotFound)
			return
		}
		middleware.Log(c, h.logger).Error("set user role", zap.Error(err))
		response.Internal(c)
		return
	}
	middleware.Log(c, h.logger).Info("user role changed", zap.String("user_id", id.String()), zap.String("role", string(role)))
	response.OK(c, u.ToPublic())
}

// Delete handles DELETE /users/:id[?cascade=organization].
func (h *Handler) Delete(c *gin.Context) {
	id, ok := targetID(c)
	if !ok {
		return
	}
	cascade := c.Query("cascade") == CascadeOrganization
	orgs, err := h.repo.Delete(c.Request.Context(), id, cascade)
	if err != nil {
		var lo *LastOwnerError
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, MsgNotFound)
		case errors.As(err, &lo):
			response.Conflict(c, MsgLastOwner)
		default:
			middleware.Log(c, h.logger).Error("delete user", zap.Error(err))
			response.Internal(c)
		}
		return
	}
	if len(orgs) > 0 {
		middleware.Log(c, h.logger).Warn("organizations deleted with their last owner",
			zap.String("user_id", id.String()), zap.Int("organizations", len(orgs)))
	}
	response.OK(c, gin.H{"deleted_organizations": orgs})
}
