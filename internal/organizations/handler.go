package organizations

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/response"
	"github.com/hackhub/backend/pkg/utils"
)

// Client-facing messages.
const (
	MsgSlugTaken     = "معرّف المؤسسة مستخدم بالفعل"
	MsgInvalidSlug   = "معرّف المؤسسة يجب أن يتكون من أحرف إنجليزية صغيرة وأرقام وشرطات فقط"
	MsgSlugImmutable = "لا يمكن تغيير معرّف المؤسسة"
	MsgInvalidBody   = "البيانات المرسلة غير صالحة"
	MsgNotFound      = "المؤسسة غير موجودة"
)

// RegisterRequest is the body for POST /organizations/register.
type RegisterRequest struct {
	FullName         string `json:"full_name" binding:"required,max=255"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
	Phone            string `json:"phone" binding:"max=64"`
	OrganizationName string `json:"organization_name" binding:"required,max=255"`
	Slug             string `json:"slug" binding:"required,slug"`
}

// RegisterResponse is returned on successful self-registration.
type RegisterResponse struct {
	Token        string               `json:"token"`
	User         models.UserPublic    `json:"user"`
	Organization *models.Organization `json:"organization"`
}

// UpdateRequest is the body for PATCH /organizations/current.
type UpdateRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=255"`
	PrimaryColor   *string `json:"primary_color" binding:"omitempty,hexcolor"`
	SecondaryColor *string `json:"secondary_color" binding:"omitempty,hexcolor"`
	LogoURL        *string `json:"logo_url" binding:"omitempty,url"`
	Slug           *string `json:"slug"`
}

// Store is the persistence the handler needs.
type Store interface {
	Register(ctx context.Context, admin *models.User, org *models.Organization, welcome *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)
	Update(ctx context.Context, id uuid.UUID, u Update) (*models.Organization, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error)
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo     Store
	sessions *auth.Sessions
	outbox   *notifications.Outbox
	appURL   string
	logger   *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo Store, sessions *auth.Sessions, outbox *notifications.Outbox, appURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	RegisterValidators()
	return &Handler{repo: repo, sessions: sessions, outbox: outbox, appURL: appURL, logger: logger}
}

// Register handles POST /organizations/register: an admin signs up together
// with a new organization they own.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if failedField(err, "Slug") {
			response.BadRequest(c, MsgInvalidSlug)
			return
		}
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		middleware.Log(c, h.logger).Error("hash password", zap.Error(err))
		response.Internal(c)
		return
	}
	admin := &models.User{
		Email:    utils.NormalizeEmail(req.Email),
		Password: hash,
		FullName: strings.TrimSpace(req.FullName),
		Role:     models.RoleAdmin,
		Phone:    req.Phone,
	}
	org := &models.Organization{
		Name:   strings.TrimSpace(req.OrganizationName),
		Slug:   req.Slug,
		Plan:   models.PlanFree,
		Status: models.OrgStatusActive,
	}
	welcome := notifications.New(models.TemplateWelcomeAdmin, admin.Email, map[string]string{
		"name":              admin.FullName,
		"organization_name": org.Name,
		"dashboard_url":     h.appURL + "/dashboard",
	}, nil)

	if err := h.repo.Register(c.Request.Context(), admin, org, welcome); err != nil {
		switch {
		case errors.Is(err, ErrSlugTaken):
			response.BadRequest(c, MsgSlugTaken)
		case errors.Is(err, auth.ErrEmailTaken):
			response.BadRequest(c, auth.MsgEmailTaken)
		default:
			middleware.Log(c, h.logger).Error("register organization", zap.Error(err))
			response.Internal(c)
		}
		return
	}
	h.outbox.Dispatch(c.Request.Context(), welcome)

	token, err := h.sessions.Start(c, admin, &org.ID)
	if err != nil {
		middleware.Log(c, h.logger).Error("generate token", zap.Error(err))
		response.Internal(c)
		return
	}
	response.Created(c, RegisterResponse{Token: token, User: admin.ToPublic(), Organization: org})
}

// ListMine handles GET /organizations.
func (h *Handler) ListMine(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	orgs, err := h.repo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		middleware.Log(c, h.logger).Error("list organizations", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, orgs)
}

// Current handles GET /organizations/current.
func (h *Handler) Current(c *gin.Context) {
	orgID, ok := tenant.FromContext(c).ActiveOrganization()
	if !ok {
		response.BadRequest(c, tenant.MsgNoOrganization)
		return
	}
	org, err := h.repo.GetByID(c.Request.Context(), orgID)
	if err != nil {
		h.notFoundOrInternal(c, err, "load organization")
		return
	}
	response.OK(c, org)
}

// UpdateCurrent handles PATCH /organizations/current. The slug is immutable.
func (h *Handler) UpdateCurrent(c *gin.Context) {
	orgID, ok := tenant.FromContext(c).ActiveOrganization()
	if !ok {
		response.BadRequest(c, tenant.MsgNoOrganization)
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	if req.Slug != nil {
		response.BadRequest(c, MsgSlugImmutable)
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			response.BadRequest(c, MsgInvalidBody)
			return
		}
		req.Name = &name
	}
	org, err := h.repo.Update(c.Request.Context(), orgID, Update{
		Name:           req.Name,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		LogoURL:        req.LogoURL,
	})
	if err != nil {
		h.notFoundOrInternal(c, err, "update organization")
		return
	}
	response.OK(c, org)
}

// Members handles GET /organizations/current/members.
func (h *Handler) Members(c *gin.Context) {
	orgID, ok := tenant.FromContext(c).ActiveOrganization()
	if !ok {
		response.BadRequest(c, tenant.MsgNoOrganization)
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		middleware.Log(c, h.logger).Error("list members", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, members)
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error, op string) {
	if database.IsNotFound(err) {
		response.NotFound(c, MsgNotFound)
		return
	}
	middleware.Log(c, h.logger).Error(op, zap.Error(err))
	response.Internal(c)
}

func failedField(err error, field string) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() == field {
			return true
		}
	}
	return false
}
