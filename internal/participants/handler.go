package participants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/export"
	"github.com/hackhub/backend/pkg/response"
	"github.com/hackhub/backend/pkg/utils"
)

// Client-facing messages.
const (
	MsgNotFound            = "المشارك غير موجود"
	MsgInvalidID           = "المعرّف غير صالح"
	MsgInvalidBody         = "البيانات المرسلة غير صالحة"
	MsgInvalidStatus       = "حالة المشارك غير صالحة"
	MsgRegistrationClosed  = "التسجيل في هذا الهاكاثون مغلق"
	MsgFull                = "اكتمل عدد المشاركين في هذا الهاكاثون"
	MsgAlreadyRegistered   = "هذا البريد الإلكتروني مسجل بالفعل في هذا الهاكاثون"
	msgFieldRequiredFormat = "الحقل \"%s\" مطلوب"
	msgFieldInvalidFormat  = "قيمة الحقل \"%s\" غير صالحة"
)

// RegisterRequest is the body for POST /hackathons/:id/register.
type RegisterRequest struct {
	FullName       string            `json:"full_name" binding:"required,max=255"`
	Email          string            `json:"email" binding:"required,email"`
	Phone          string            `json:"phone" binding:"max=64"`
	AdditionalInfo map[string]string `json:"additional_info"`
}

// StatusRequest is the body for PATCH /participants/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Store is the participant persistence the handler needs.
type Store interface {
	Register(ctx context.Context, p *models.Participant) (*models.Notification, error)
	List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Participant, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Participant, error)
	SetStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID, status models.ParticipantStatus) (*models.Participant, *models.Notification, error)
}

// HackathonGetter resolves a hackathon within scope.
type HackathonGetter interface {
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Hackathon, error)
}

// Handler handles participant HTTP endpoints.
type Handler struct {
	repo       Store
	hackathons HackathonGetter
	outbox     *notifications.Outbox
	logger     *zap.Logger
}

// NewHandler creates a participants handler.
func NewHandler(repo Store, hk HackathonGetter, outbox *notifications.Outbox, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, hackathons: hk, outbox: outbox, logger: logger}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, MsgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// Register handles the public POST /hackathons/:id/register.
func (h *Handler) Register(c *gin.Context) {
	hackathonID, ok := parseID(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	p := &models.Participant{
		HackathonID:    hackathonID,
		FullName:       req.FullName,
		Email:          utils.NormalizeEmail(req.Email),
		Phone:          req.Phone,
		AdditionalInfo: req.AdditionalInfo,
	}
	if uid, ok := middleware.UserID(c); ok {
		p.UserID = &uid
	}
	notice, err := h.repo.Register(c.Request.Context(), p)
	if err != nil {
		var fe *FieldError
		switch {
		case errors.Is(err, hackathons.ErrNotFound):
			response.NotFound(c, hackathons.MsgNotFound)
		case errors.Is(err, ErrRegistrationClosed):
			response.BadRequest(c, MsgRegistrationClosed)
		case errors.Is(err, ErrFull):
			response.BadRequest(c, MsgFull)
		case errors.Is(err, ErrAlreadyRegistered):
			response.BadRequest(c, MsgAlreadyRegistered)
		case errors.As(err, &fe):
			if fe.Issue == "required" {
				response.BadRequest(c, fmt.Sprintf(msgFieldRequiredFormat, fe.Label))
			} else {
				response.BadRequest(c, fmt.Sprintf(msgFieldInvalidFormat, fe.Label))
			}
		default:
			middleware.Log(c, h.logger).Error("register participant", zap.Error(err))
			response.Internal(c)
		}
		return
	}
	h.outbox.Dispatch(c.Request.Context(), notice)
	response.Created(c, p)
}

func (h *Handler) filter(c *gin.Context) (ListFilter, bool) {
	f := ListFilter{Status: models.ParticipantStatus(c.Query("status"))}
	if f.Status != "" && !f.Status.Valid() {
		response.BadRequest(c, MsgInvalidStatus)
		return f, false
	}
	if v := c.Query("hackathon_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, MsgInvalidID)
			return f, false
		}
		f.HackathonID = &id
	}
	return f, true
}

// List handles GET /participants. Optional ?status= and ?hackathon_id=.
func (h *Handler) List(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	list, err := h.repo.List(c.Request.Context(), tenant.FromContext(c), f)
	if err != nil {
		middleware.Log(c, h.logger).Error("list participants", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, list)
}

// ListForHackathon handles GET /hackathons/:id/participants.
func (h *Handler) ListForHackathon(c *gin.Context) {
	hk, ok := h.visibleHackathon(c)
	if !ok {
		return
	}
	f, ok := h.filter(c)
	if !ok {
		return
	}
	f.HackathonID = &hk.ID
	list, err := h.repo.List(c.Request.Context(), tenant.FromContext(c), f)
	if err != nil {
		middleware.Log(c, h.logger).Error("list participants", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, list)
}

// UpdateStatus handles PATCH /participants/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	status := models.ParticipantStatus(req.Status)
	if !status.Valid() {
		response.BadRequest(c, MsgInvalidStatus)
		return
	}
	p, notice, err := h.repo.SetStatus(c.Request.Context(), tenant.FromContext(c), id, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, MsgNotFound)
			return
		}
		middleware.Log(c, h.logger).Error("update participant status", zap.Error(err))
		response.Internal(c)
		return
	}
	h.outbox.Dispatch(c.Request.Context(), notice)
	response.OK(c, p)
}

// Export handles GET /hackathons/:id/participants/export.
func (h *Handler) Export(c *gin.Context) {
	hk, ok := h.visibleHackathon(c)
	if !ok {
		return
	}
	list, err := h.repo.List(c.Request.Context(), tenant.FromContext(c), ListFilter{HackathonID: &hk.ID})
	if err != nil {
		middleware.Log(c, h.logger).Error("export participants", zap.Error(err))
		response.Internal(c)
		return
	}
	sheet := export.Sheet{
		Name: "Participants",
		Columns: []export.Column{
			{Header: "الاسم", Width: 28},
			{Header: "البريد الإلكتروني", Width: 32},
			{Header: "الجوال", Width: 16},
			{Header: "الحالة", Width: 12},
			{Header: "تاريخ التسجيل", Width: 20},
		},
	}
	for _, f := range hk.CustomFields {
		sheet.Columns = append(sheet.Columns, export.Column{Header: f.Label, Width: 20})
	}
	for _, p := range list {
		row := []interface{}{p.FullName, p.Email, p.Phone, string(p.Status), p.CreatedAt.Format(time.DateTime)}
		for _, f := range hk.CustomFields {
			row = append(row, p.AdditionalInfo[f.ID])
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	data, err := export.Workbook(sheet)
	if err != nil {
		middleware.Log(c, h.logger).Error("build participants workbook", zap.Error(err))
		response.Internal(c)
		return
	}
	response.Attachment(c, "participants-"+hk.ID.String()+".xlsx", export.ContentTypeXLSX, data)
}

func (h *Handler) visibleHackathon(c *gin.Context) (*models.Hackathon, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	hk, err := h.hackathons.Get(c.Request.Context(), tenant.FromContext(c), id)
	if err != nil {
		if errors.Is(err, hackathons.ErrNotFound) {
			response.NotFound(c, hackathons.MsgNotFound)
			return nil, false
		}
		middleware.Log(c, h.logger).Error("load hackathon", zap.Error(err))
		response.Internal(c)
		return nil, false
	}
	return hk, true
}
