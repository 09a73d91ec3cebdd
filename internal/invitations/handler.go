package invitations

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/response"
)

// Client-facing messages.
const (
	MsgAlreadyUsed       = "تم استخدام هذه الدعوة بالفعل"
	MsgExpired           = "انتهت صلاحية هذه الدعوة"
	MsgCancelled         = "تم إلغاء هذه الدعوة"
	MsgNotFound          = "الدعوة غير موجودة"
	MsgInvalidBody       = "البيانات المرسلة غير صالحة"
	MsgInvalidKind       = "نوع الدعوة غير صالح"
	MsgInvalidStatus     = "حالة الدعوة غير صالحة"
	MsgInvalidID         = "المعرّف غير صالح"
	MsgWeakPassword      = "يجب أن تتكون كلمة المرور من 8 أحرف على الأقل"
	MsgPasswordMismatch  = "كلمتا المرور غير متطابقتين"
	MsgWrongPassword     = "يوجد حساب بهذا البريد، يرجى إدخال كلمة المرور الحالية"
	MsgPrivilegedAccount = "لا يمكن قبول الدعوة بحساب مدير"
	MsgRoleConflict      = "هذا البريد مرتبط بحساب بدور مختلف"
	MsgOrganizationReq   = "يجب تحديد المؤسسة"
)

// CreateRequest is the body for POST /invitations.
type CreateRequest struct {
	Kind           string          `json:"kind" binding:"required"`
	Email          string          `json:"email" binding:"required,email"`
	Name           string          `json:"name" binding:"max=255"`
	HackathonID    *string         `json:"hackathon_id" binding:"omitempty,uuid"`
	Permissions    json.RawMessage `json:"permissions"`
	OrganizationID *string         `json:"organization_id" binding:"omitempty,uuid"` // master only
}

// AcceptBody is the body for POST /invitations/token/:token/accept.
type AcceptBody struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FullName        string `json:"full_name" binding:"max=255"`
}

// Handler handles invitation HTTP endpoints.
type Handler struct {
	svc      *Service
	sessions *auth.Sessions
	outbox   *notifications.Outbox
	logger   *zap.Logger
}

// NewHandler creates an invitations handler.
func NewHandler(svc *Service, sessions *auth.Sessions, outbox *notifications.Outbox, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, sessions: sessions, outbox: outbox, logger: logger}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, MsgNotFound)
	case errors.Is(err, ErrAlreadyUsed):
		response.BadRequest(c, MsgAlreadyUsed)
	case errors.Is(err, ErrExpired):
		response.BadRequest(c, MsgExpired)
	case errors.Is(err, ErrCancelled):
		response.BadRequest(c, MsgCancelled)
	case errors.Is(err, ErrWeakPassword):
		response.BadRequest(c, MsgWeakPassword)
	case errors.Is(err, ErrPasswordMismatch):
		response.BadRequest(c, MsgPasswordMismatch)
	case errors.Is(err, ErrWrongPassword):
		response.BadRequest(c, MsgWrongPassword)
	case errors.Is(err, ErrPrivilegedAccount):
		response.BadRequest(c, MsgPrivilegedAccount)
	case errors.Is(err, ErrRoleConflict):
		response.BadRequest(c, MsgRoleConflict)
	case errors.Is(err, ErrHackathonNotFound):
		response.NotFound(c, hackathons.MsgNotFound)
	case errors.Is(err, ErrOrganizationNotFound):
		response.BadRequest(c, tenant.MsgNoOrganization)
	default:
		middleware.Log(c, h.logger).Error(op, zap.Error(err))
		response.Internal(c)
	}
}

// Create handles POST /invitations. Admins invite into their active
// organization; the master names the organization in the body.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	kind := models.InvitationKind(req.Kind)
	if !kind.Valid() {
		response.BadRequest(c, MsgInvalidKind)
		return
	}
	scope := tenant.FromContext(c)
	orgID, ok := scope.ActiveOrganization()
	if scope.All {
		if req.OrganizationID == nil {
			response.BadRequest(c, MsgOrganizationReq)
			return
		}
		orgID, _ = uuid.Parse(*req.OrganizationID)
		ok = true
	}
	if !ok {
		response.BadRequest(c, tenant.MsgNoOrganization)
		return
	}
	in := CreateInput{
		Kind:           kind,
		OrganizationID: orgID,
		Email:          req.Email,
		Name:           req.Name,
		Permissions:    req.Permissions,
	}
	in.InvitedBy, _ = middleware.UserID(c)
	if req.HackathonID != nil {
		id, _ := uuid.Parse(*req.HackathonID)
		in.HackathonID = &id
	}
	inv, n, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create invitation", err)
		return
	}
	h.outbox.Dispatch(c.Request.Context(), n)
	response.Created(c, gin.H{"invitation": inv, "accept_url": h.svc.AcceptURL(inv.Token)})
}

// List handles GET /invitations. Optional ?status=.
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{Status: models.InvitationStatus(c.Query("status"))}
	switch f.Status {
	case "", models.InvitationPending, models.InvitationAccepted, models.InvitationExpired, models.InvitationCancelled:
	default:
		response.BadRequest(c, MsgInvalidStatus)
		return
	}
	if v := c.Query("hackathon_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, MsgInvalidID)
			return
		}
		f.HackathonID = &id
	}
	list, err := h.svc.List(c.Request.Context(), tenant.FromContext(c), f)
	if err != nil {
		h.fail(c, "list invitations", err)
		return
	}
	response.OK(c, list)
}

// Cancel handles DELETE /invitations/:id.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, MsgInvalidID)
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), tenant.FromContext(c), id); err != nil {
		h.fail(c, "cancel invitation", err)
		return
	}
	response.OK(c, gin.H{"id": id, "status": models.InvitationCancelled})
}

// Get handles the public GET /invitations/token/:token.
func (h *Handler) Get(c *gin.Context) {
	inv, err := h.svc.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, "lookup invitation", err)
		return
	}
	response.OK(c, inv)
}

// Accept handles the public POST /invitations/token/:token/accept. The new
// or upgraded user is signed in.
func (h *Handler) Accept(c *gin.Context) {
	var body AcceptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	user, inv, err := h.svc.Accept(c.Request.Context(), c.Param("token"), AcceptRequest{
		Password:        body.Password,
		ConfirmPassword: body.ConfirmPassword,
		FullName:        body.FullName,
	})
	if err != nil {
		h.fail(c, "accept invitation", err)
		return
	}
	token, err := h.sessions.Start(c, user, nil)
	if err != nil {
		middleware.Log(c, h.logger).Error("start session", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, gin.H{"token": token, "user": user.ToPublic(), "invitation": inv})
}
