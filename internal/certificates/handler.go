package certificates

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/internal/uploads"
	"github.com/hackhub/backend/pkg/response"
	"github.com/hackhub/backend/pkg/storage"
)

// Client-facing messages.
const (
	MsgInvalidID           = "المعرّف غير صالح"
	MsgInvalidLayout       = "إعدادات موضع الاسم غير صالحة"
	MsgInvalidColor        = "اللون غير صالح"
	MsgNoTemplate          = "لم يتم إعداد قالب الشهادة لهذا الهاكاثون"
	MsgParticipantNotFound = "المشارك غير موجود"
	MsgNotApproved         = "الشهادة متاحة للمشاركين المقبولين فقط"
	MsgInvalidImage        = "تعذر قراءة صورة القالب"
)

// PreviewName is drawn when no ?name= is given.
const PreviewName = "Participant Name"

// Store is the persistence the handler needs.
type Store interface {
	Template(ctx context.Context, scope tenant.Scope, hackathonID uuid.UUID) (*models.CertificateTemplate, error)
	SaveTemplate(ctx context.Context, scope tenant.Scope, t *models.CertificateTemplate) error
	Subject(ctx context.Context, access Access, participantID uuid.UUID) (*Subject, error)
}

// ObjectStore reads and writes template images.
type ObjectStore interface {
	Put(ctx context.Context, key string, f *storage.File) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Handler handles certificate HTTP endpoints.
type Handler struct {
	repo    Store
	objects ObjectStore
	logger  *zap.Logger
}

// NewHandler creates a certificates handler. objects may be nil when
// storage is not configured.
func NewHandler(repo Store, objects ObjectStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, objects: objects, logger: logger}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, hackathons.ErrNotFound):
		response.NotFound(c, hackathons.MsgNotFound)
	case errors.Is(err, ErrNoTemplate):
		response.NotFound(c, MsgNoTemplate)
	case errors.Is(err, ErrParticipantNotFound):
		response.NotFound(c, MsgParticipantNotFound)
	default:
		middleware.Log(c, h.logger).Error(op, zap.Error(err))
		response.Internal(c)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, MsgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// layoutFromForm reads name_x, name_y, font_size and color, falling back
// to base for absent fields.
func layoutFromForm(c *gin.Context, base Layout) (Layout, error) {
	l := base
	for field, dst := range map[string]*float64{"name_x": &l.NameX, "name_y": &l.NameY, "font_size": &l.FontSize} {
		v := strings.TrimSpace(c.PostForm(field))
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return l, ErrInvalidLayout
		}
		*dst = f
	}
	if v := strings.TrimSpace(c.PostForm("color")); v != "" {
		l.Color = v
	}
	return l, l.Validate()
}

// SaveTemplate handles PUT /hackathons/:id/certificate (multipart). The
// "file" field is required the first time and optional afterwards, when
// only the layout changes.
func (h *Handler) SaveTemplate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	scope := tenant.FromContext(c)
	ctx := c.Request.Context()

	base := DefaultLayout
	existing, err := h.repo.Template(ctx, scope, id)
	switch {
	case err == nil:
		base = LayoutOf(existing)
	case errors.Is(err, ErrNoTemplate):
	default:
		h.fail(c, "load certificate template", err)
		return
	}
	l, err := layoutFromForm(c, base)
	if err != nil {
		if errors.Is(err, ErrInvalidColor) {
			response.BadRequest(c, MsgInvalidColor)
			return
		}
		response.BadRequest(c, MsgInvalidLayout)
		return
	}

	t := &models.CertificateTemplate{HackathonID: id, NameX: l.NameX, NameY: l.NameY, FontSize: l.FontSize, Color: l.Color}
	if _, err := c.FormFile(uploads.FormField); err == nil || existing == nil {
		f, ok := uploads.Read(c, storage.CertificateTemplate)
		if !ok {
			return
		}
		if _, err := imaging.Decode(bytes.NewReader(f.Data)); err != nil {
			response.BadRequest(c, MsgInvalidImage)
			return
		}
		if h.objects == nil {
			response.Upstream(c, uploads.MsgStorageDisabled)
			return
		}
		key := storage.CertificateTemplate.Key(id.String(), f.Ext)
		if _, err := h.objects.Put(ctx, key, f); err != nil {
			middleware.Log(c, h.logger).Error("upload certificate template", zap.Error(err))
			response.Upstream(c, uploads.MsgUploadFailed)
			return
		}
		t.ImageKey = key
	}
	if err := h.repo.SaveTemplate(ctx, scope, t); err != nil {
		h.fail(c, "save certificate template", err)
		return
	}
	response.OK(c, t)
}

// GetTemplate handles GET /hackathons/:id/certificate.
func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.repo.Template(c.Request.Context(), tenant.FromContext(c), id)
	if err != nil {
		h.fail(c, "load certificate template", err)
		return
	}
	response.OK(c, t)
}

// Preview handles GET /hackathons/:id/certificate/preview?name=.
func (h *Handler) Preview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.repo.Template(c.Request.Context(), tenant.FromContext(c), id)
	if err != nil {
		h.fail(c, "load certificate template", err)
		return
	}
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		name = PreviewName
	}
	data, ok := h.compose(c, t, name)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// Download handles GET /participants/:id/certificate. Participants may
// only fetch their own registrations; staff read within their scope.
func (h *Handler) Download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	access := Access{Scope: tenant.FromContext(c)}
	if middleware.Role(c) == models.RoleParticipant {
		access.OwnerEmail = c.GetString(middleware.ContextUserEmail)
		if access.OwnerEmail == "" {
			response.NotFound(c, MsgParticipantNotFound)
			return
		}
	}
	s, err := h.repo.Subject(c.Request.Context(), access, id)
	if err != nil {
		h.fail(c, "load certificate subject", err)
		return
	}
	if s.Status != models.ParticipantApproved {
		response.Forbidden(c, MsgNotApproved)
		return
	}
	if s.Template == nil {
		response.NotFound(c, MsgNoTemplate)
		return
	}
	data, ok := h.compose(c, s.Template, s.FullName)
	if !ok {
		return
	}
	response.Attachment(c, "certificate-"+s.ParticipantID.String()+".png", "image/png", data)
}

// compose fetches the template image and renders name onto it as PNG.
func (h *Handler) compose(c *gin.Context, t *models.CertificateTemplate, name string) ([]byte, bool) {
	if h.objects == nil {
		response.Upstream(c, uploads.MsgStorageDisabled)
		return nil, false
	}
	rc, err := h.objects.Get(c.Request.Context(), t.ImageKey)
	if err != nil {
		middleware.Log(c, h.logger).Error("fetch certificate template", zap.String("key", t.ImageKey), zap.Error(err))
		response.Upstream(c, uploads.MsgUploadFailed)
		return nil, false
	}
	defer rc.Close()
	tmpl, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	if err != nil {
		middleware.Log(c, h.logger).Error("decode certificate template", zap.String("key", t.ImageKey), zap.Error(err))
		response.Internal(c)
		return nil, false
	}
	img, err := Render(tmpl, LayoutOf(t), name)
	if err != nil {
		middleware.Log(c, h.logger).Error("render certificate", zap.Error(err))
		response.Internal(c)
		return nil, false
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		middleware.Log(c, h.logger).Error("encode certificate", zap.Error(err))
		response.Internal(c)
		return nil, false
	}
	return buf.Bytes(), true
}
