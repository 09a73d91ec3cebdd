package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/uploads"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/metrics"
	"github.com/hackhub/backend/pkg/response"
	"github.com/hackhub/backend/pkg/storage"
	"github.com/hackhub/backend/pkg/utils"
)

// Client-facing messages.
const (
	MsgEmailTaken         = "البريد الإلكتروني مسجل بالفعل"
	MsgInvalidCredentials = "البريد الإلكتروني أو كلمة المرور غير صحيحة"
	MsgInvalidRequest     = "البيانات المرسلة غير صالحة"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required,max=255"`
	Phone    string `json:"phone" binding:"max=64"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response. The token is also set as the
// auth-token cookie.
type TokenResponse struct {
	Token          string            `json:"token"`
	User           models.UserPublic `json:"user"`
	OrganizationID *uuid.UUID        `json:"organization_id,omitempty"`
}

// UserStore is the user persistence the handler needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User, welcome *models.Notification) error
	SetProfileImage(ctx context.Context, id uuid.UUID, url string) error
}

// OrganizationFinder picks an admin's default organization at login.
type OrganizationFinder interface {
	DefaultOrganization(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// ImageStore stores validated uploads.
type ImageStore interface {
	Put(ctx context.Context, key string, f *storage.File) (string, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users    UserStore
	orgs     OrganizationFinder
	sessions *Sessions
	outbox   *notifications.Outbox
	images   ImageStore
	appURL   string
	logger   *zap.Logger
}

// NewHandler creates an auth handler. images may be nil when storage is not
// configured.
func NewHandler(users UserStore, orgs OrganizationFinder, sessions *Sessions, outbox *notifications.Outbox, images ImageStore, appURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, orgs: orgs, sessions: sessions, outbox: outbox, images: images, appURL: appURL, logger: logger}
}

// Register handles POST /auth/register. Self sign-up always creates a
// participant.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidRequest)
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		middleware.Log(c, h.logger).Error("hash password", zap.Error(err))
		response.Internal(c)
		return
	}
	user := &models.User{
		Email:    utils.NormalizeEmail(req.Email),
		Password: hash,
		FullName: req.FullName,
		Role:     models.RoleParticipant,
		Phone:    req.Phone,
	}
	welcome := notifications.New(models.TemplateWelcomeParticipant, user.Email, map[string]string{
		"name":    user.FullName,
		"app_url": h.appURL,
	}, nil)
	if err := h.users.Create(c.Request.Context(), user, welcome); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.BadRequest(c, MsgEmailTaken)
			return
		}
		middleware.Log(c, h.logger).Error("create user", zap.Error(err))
		response.Internal(c)
		return
	}
	h.outbox.Dispatch(c.Request.Context(), welcome)

	token, err := h.sessions.Start(c, user, nil)
	if err != nil {
		middleware.Log(c, h.logger).Error("generate token", zap.Error(err))
		response.Internal(c)
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login. Admin tokens carry their default
// organization.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidRequest)
		return
	}
	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		if !database.IsNotFound(err) {
			middleware.Log(c, h.logger).Error("load user", zap.Error(err))
			response.Internal(c)
			return
		}
		metrics.RecordAuth("unknown_email")
		response.Unauthorized(c, MsgInvalidCredentials)
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		metrics.RecordAuth("bad_password")
		response.Unauthorized(c, MsgInvalidCredentials)
		return
	}

	var orgID *uuid.UUID
	if user.Role == models.RoleAdmin && h.orgs != nil {
		id, err := h.orgs.DefaultOrganization(ctx, user.ID)
		switch {
		case err == nil:
			orgID = &id
		default:
			// Login still succeeds; scoped endpoints report the missing
			// organization themselves.
			middleware.Log(c, h.logger).Warn("admin without default organization", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	token, err := h.sessions.Start(c, user, orgID)
	if err != nil {
		middleware.Log(c, h.logger).Error("generate token", zap.Error(err))
		response.Internal(c)
		return
	}
	metrics.RecordAuth("success")
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic(), OrganizationID: orgID})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	h.sessions.End(c)
	response.OK(c, gin.H{"message": "تم تسجيل الخروج"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if database.IsNotFound(err) {
			h.sessions.End(c)
			response.Unauthorized(c, middleware.MsgUnauthenticated)
			return
		}
		middleware.Log(c, h.logger).Error("load current user", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, user.ToPublic())
}

// UploadProfileImage handles POST /uploads/profile-image (multipart field "file").
func (h *Handler) UploadProfileImage(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	f, ok := uploads.Read(c, storage.ProfileImage)
	if !ok {
		return
	}
	if h.images == nil {
		response.Upstream(c, uploads.MsgStorageDisabled)
		return
	}
	url, err := h.images.Put(c.Request.Context(), storage.ProfileImage.Key(userID.String(), f.Ext), f)
	if err != nil {
		middleware.Log(c, h.logger).Error("upload profile image", zap.Error(err))
		response.Upstream(c, uploads.MsgUploadFailed)
		return
	}
	if err := h.users.SetProfileImage(c.Request.Context(), userID, url); err != nil {
		middleware.Log(c, h.logger).Error("save profile image", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, gin.H{"url": url})
}
