package hackathons

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/internal/uploads"
	"github.com/hackhub/backend/pkg/response"
	"github.com/hackhub/backend/pkg/storage"
)

// Client-facing messages.
const (
	MsgNotFound      = "الهاكاثون غير موجود"
	MsgInvalidID     = "معرّف الهاكاثون غير صالح"
	MsgInvalidBody   = "البيانات المرسلة غير صالحة"
	MsgInvalidTime   = "صيغة التاريخ غير صالحة"
	MsgInvalidStatus = "حالة الهاكاثون غير صالحة"
	MsgInvalidRange  = "يجب أن يكون تاريخ الانتهاء بعد تاريخ البدء"
	MsgDuplicateKey  = "معرّفات حقول النموذج يجب أن تكون فريدة"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateRequest is the body for POST /hackathons.
type CreateRequest struct {
	Title                string             `json:"title" binding:"required,max=255"`
	Description          string             `json:"description"`
	Status               string             `json:"status"`
	StartsAt             string             `json:"starts_at" binding:"required"`
	EndsAt               *string            `json:"ends_at"`
	RegistrationDeadline *string            `json:"registration_deadline"`
	MaxParticipants      int                `json:"max_participants" binding:"min=0"`
	MaxTeamSize          int                `json:"max_team_size" binding:"min=0"`
	CustomFields         []models.FormField `json:"custom_fields" binding:"dive"`
}

// UpdateRequest is the body for PATCH /hackathons/:id.
type UpdateRequest struct {
	Title                *string `json:"title" binding:"omitempty,max=255"`
	Description          *string `json:"description"`
	Status               *string `json:"status"`
	StartsAt             *string `json:"starts_at"`
	EndsAt               *string `json:"ends_at"`
	RegistrationDeadline *string `json:"registration_deadline"`
	MaxParticipants      *int    `json:"max_participants" binding:"omitempty,min=0"`
	MaxTeamSize          *int    `json:"max_team_size" binding:"omitempty,min=0"`
}

// FormRequest is the body for PUT /hackathons/:id/form.
type FormRequest struct {
	Fields []models.FormField `json:"fields" binding:"dive"`
}

// Store is the hackathon persistence the handler needs.
type Store interface {
	Create(ctx context.Context, h *models.Hackathon) error
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Hackathon, error)
	GetPublished(ctx context.Context, id uuid.UUID) (*models.Hackathon, error)
	List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Hackathon, error)
	Update(ctx context.Context, scope tenant.Scope, id uuid.UUID, u Update) (*models.Hackathon, error)
	SetForm(ctx context.Context, scope tenant.Scope, id uuid.UUID, fields []models.FormField) (*models.Hackathon, error)
	SetCover(ctx context.Context, scope tenant.Scope, id uuid.UUID, url string) (*models.Hackathon, error)
	Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
}

// ImageStore stores validated uploads.
type ImageStore interface {
	Put(ctx context.Context, key string, f *storage.File) (string, error)
}

// Handler handles hackathon HTTP endpoints.
type Handler struct {
	repo   Store
	images ImageStore
	logger *zap.Logger
}

// NewHandler creates a hackathons handler. images may be nil.
func NewHandler(repo Store, images ImageStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, images: images, logger: logger}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, MsgNotFound)
		return
	}
	middleware.Log(c, h.logger).Error(op, zap.Error(err))
	response.Internal(c)
}

func hackathonID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, MsgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func uniqueFieldIDs(fields []models.FormField) bool {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.ID] {
			return false
		}
		seen[f.ID] = true
	}
	return true
}

// Create handles POST /hackathons. The hackathon belongs to the caller's
// active organization.
func (h *Handler) Create(c *gin.Context) {
	orgID, ok := tenant.FromContext(c).ActiveOrganization()
	if !ok {
		response.BadRequest(c, tenant.MsgNoOrganization)
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		response.BadRequest(c, MsgInvalidTime)
		return
	}
	endsAt, err := parseOptionalTime(req.EndsAt)
	if err != nil {
		response.BadRequest(c, MsgInvalidTime)
		return
	}
	deadline, err := parseOptionalTime(req.RegistrationDeadline)
	if err != nil {
		response.BadRequest(c, MsgInvalidTime)
		return
	}
	if endsAt != nil && !endsAt.After(startsAt) {
		response.BadRequest(c, MsgInvalidRange)
		return
	}
	status := models.HackathonDraft
	if req.Status != "" {
		status = models.HackathonStatus(req.Status)
		if !status.Valid() {
			response.BadRequest(c, MsgInvalidStatus)
			return
		}
	}
	if !uniqueFieldIDs(req.CustomFields) {
		response.BadRequest(c, MsgDuplicateKey)
		return
	}
	maxTeam := req.MaxTeamSize
	if maxTeam == 0 {
		maxTeam = 5
	}
	fields := req.CustomFields
	if fields == nil {
		fields = []models.FormField{}
	}
	userID, _ := middleware.UserID(c)
	hk := &models.Hackathon{
		OrganizationID:       orgID,
		Title:                req.Title,
		Description:          req.Description,
		Status:               status,
		StartsAt:             startsAt,
		EndsAt:               endsAt,
		RegistrationDeadline: deadline,
		MaxParticipants:      req.MaxParticipants,
		MaxTeamSize:          maxTeam,
		CustomFields:         fields,
		CreatedBy:            &userID,
	}
	if err := h.repo.Create(c.Request.Context(), hk); err != nil {
		h.fail(c, "create hackathon", err)
		return
	}
	response.Created(c, hk)
}

// List handles GET /hackathons. Optional ?status=.
func (h *Handler) List(c *gin.Context) {
	f := ListFilter{Status: models.HackathonStatus(c.Query("status"))}
	if f.Status != "" && !f.Status.Valid() {
		response.BadRequest(c, MsgInvalidStatus)
		return
	}
	list, err := h.repo.List(c.Request.Context(), tenant.FromContext(c), f)
	if err != nil {
		h.fail(c, "list hackathons", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /hackathons/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := hackathonID(c)
	if !ok {
		return
	}
	hk, err := h.repo.Get(c.Request.Context(), tenant.FromContext(c), id)
	if err != nil {
		h.fail(c, "get hackathon", err)
		return
	}
	response.OK(c, hk)
}

// GetPublic handles GET /public/hackathons/:id, the registration page.
func (h *Handler) GetPublic(c *gin.Context) {
	id, ok := hackathonID(c)
	if !ok {
		return
	}
	hk, err := h.repo.GetPublished(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get public hackathon", err)
		return
	}
	response.OK(c, gin.H{
		"hackathon":             hk,
		"accepts_registrations": hk.AcceptsRegistrations(time.Now()),
	})
}

// Update handles PATCH /hackathons/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := hackathonID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	u := Update{
		Title:           req.Title,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		MaxTeamSize:     req.MaxTeamSize,
	}
	if req.Status != nil {
		s := models.HackathonStatus(*req.Status)
		if !s.Valid() {
			response.BadRequest(c, MsgInvalidStatus)
			return
		}
		u.Status = &s
	}
	var err error
	if req.StartsAt != nil {
		t, perr := parseTime(*req.StartsAt)
		if perr != nil {
			response.BadRequest(c, MsgInvalidTime)
			return
		}
		u.StartsAt = &t
	}
	if u.EndsAt, err = parseOptionalTime(req.EndsAt); err != nil {
		response.BadRequest(c, MsgInvalidTime)
		return
	}
	if u.RegistrationDeadline, err = parseOptionalTime(req.RegistrationDeadline); err != nil {
		response.BadRequest(c, MsgInvalidTime)
		return
	}
	scope := tenant.FromContext(c)
	if u.StartsAt != nil || u.EndsAt != nil {
		starts, ends := u.StartsAt, u.EndsAt
		if starts == nil || ends == nil {
			cur, err := h.repo.Get(c.Request.Context(), scope, id)
			if err != nil {
				h.fail(c, "load hackathon", err)
				return
			}
			if starts == nil {
				starts = &cur.StartsAt
			}
			if ends == nil {
				ends = cur.EndsAt
			}
		}
		if ends != nil && !ends.After(*starts) {
			response.BadRequest(c, MsgInvalidRange)
			return
		}
	}
	hk, err := h.repo.Update(c.Request.Context(), scope, id, u)
	if err != nil {
		h.fail(c, "update hackathon", err)
		return
	}
	response.OK(c, hk)
}

// UpdateForm handles PUT /hackathons/:id/form.
func (h *Handler) UpdateForm(c *gin.Context) {
	id, ok := hackathonID(c)
	if !ok {
		return
	}
	var req FormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	if !uniqueFieldIDs(req.Fields) {
		response.BadRequest(c, MsgDuplicateKey)
		return
	}
	if req.Fields == nil {
		req.Fields = []models.FormField{}
	}
	hk, err := h.repo.SetForm(c.Request.Context(), tenant.FromContext(c), id, req.Fields)
	if err != nil {
		h.fail(c, "update registration form", err)
		return
	}
	response.OK(c, hk)
}

// UploadCover handles POST /hackathons/:id/cover (multipart field "file").
func (h *Handler) UploadCover(c *gin.Context) {
	id, ok := hackathonID(c)
	if !ok {
		return
	}
	scope := tenant.FromContext(c)
	ctx := c.Request.Context()
	if _, err := h.repo.Get(ctx, scope, id); err != nil {
		h.fail(c, "load hackathon", err)
		return
	}
	f, ok := uploads.Read(c, storage.CoverImage)
	if !ok {
		return
	}
	if h.images == nil {
		response.Upstream(c, uploads.MsgStorageDisabled)
		return
	}
	url, err := h.images.Put(ctx, storage.CoverImage.Key(id.String(), f.Ext), f)
	if err != nil {
		middleware.Log(c, h.logger).Error("upload cover", zap.Error(err))
		response.Upstream(c, uploads.MsgUploadFailed)
		return
	}
	hk, err := h.repo.SetCover(ctx, scope, id, url)
	if err != nil {
		h.fail(c, "save cover", err)
		return
	}
	response.OK(c, hk)
}

// Delete handles DELETE /hackathons/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := hackathonID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), tenant.FromContext(c), id); err != nil {
		h.fail(c, "delete hackathon", err)
		return
	}
	response.NoContent(c)
}
