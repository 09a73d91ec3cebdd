package teams

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/export"
	"github.com/hackhub/backend/pkg/response"
)

// Client-facing messages.
const (
	MsgNotFound      = "الفريق غير موجود"
	MsgInvalidID     = "المعرّف غير صالح"
	MsgInvalidBody   = "البيانات المرسلة غير صالحة"
	MsgNameTaken     = "اسم الفريق مستخدم بالفعل في هذا الهاكاثون"
	MsgNotEligible   = "يجب أن يكون المشارك مقبولاً في نفس الهاكاثون"
	MsgTeamFull      = "اكتمل عدد أعضاء الفريق"
	MsgAlreadyInTeam = "المشارك منضم إلى فريق آخر"
)

// CreateRequest is the body for POST /hackathons/:id/teams.
type CreateRequest struct {
	Name               string `json:"name" binding:"required,max=255"`
	ProjectName        string `json:"project_name" binding:"max=255"`
	ProjectDescription string `json:"project_description"`
	ProjectURL         string `json:"project_url" binding:"omitempty,url"`
}

// MemberRequest is the body for POST /teams/:id/members.
type MemberRequest struct {
	ParticipantID string `json:"participant_id" binding:"required,uuid"`
}

// ScoreRequest is the body for POST /teams/:id/scores.
type ScoreRequest struct {
	Score *float64 `json:"score" binding:"required,min=0,max=100"`
	Notes string   `json:"notes"`
}

// Store is the team persistence the handler needs.
type Store interface {
	Create(ctx context.Context, scope tenant.Scope, t *models.Team) error
	List(ctx context.Context, scope tenant.Scope, hackathonID *uuid.UUID) ([]*models.Team, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Team, error)
	AddMember(ctx context.Context, scope tenant.Scope, teamID, participantID uuid.UUID) error
	RemoveMember(ctx context.Context, scope tenant.Scope, teamID, participantID uuid.UUID) error
	Members(ctx context.Context, teamID uuid.UUID) ([]models.Participant, error)
	Score(ctx context.Context, scope tenant.Scope, s *models.TeamScore) error
	ExportRows(ctx context.Context, scope tenant.Scope, hackathonID uuid.UUID) ([]ScoreRow, error)
}

// HackathonGetter resolves a hackathon within scope.
type HackathonGetter interface {
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Hackathon, error)
}

// Handler handles team HTTP endpoints.
type Handler struct {
	repo       Store
	hackathons HackathonGetter
	logger     *zap.Logger
}

// NewHandler creates a teams handler.
func NewHandler(repo Store, hk HackathonGetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, hackathons: hk, logger: logger}
}

func param(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, MsgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, MsgNotFound)
	case errors.Is(err, hackathons.ErrNotFound):
		response.NotFound(c, hackathons.MsgNotFound)
	case errors.Is(err, ErrNameTaken):
		response.BadRequest(c, MsgNameTaken)
	case errors.Is(err, ErrNotEligible):
		response.BadRequest(c, MsgNotEligible)
	case errors.Is(err, ErrTeamFull):
		response.BadRequest(c, MsgTeamFull)
	case errors.Is(err, ErrAlreadyInTeam):
		response.BadRequest(c, MsgAlreadyInTeam)
	default:
		middleware.Log(c, h.logger).Error(op, zap.Error(err))
		response.Internal(c)
	}
}

// Create handles POST /hackathons/:id/teams.
func (h *Handler) Create(c *gin.Context) {
	hackathonID, ok := param(c, "id")
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	t := &models.Team{
		HackathonID:        hackathonID,
		Name:               strings.TrimSpace(req.Name),
		ProjectName:        req.ProjectName,
		ProjectDescription: req.ProjectDescription,
		ProjectURL:         req.ProjectURL,
	}
	if err := h.repo.Create(c.Request.Context(), tenant.FromContext(c), t); err != nil {
		h.fail(c, "create team", err)
		return
	}
	response.Created(c, t)
}

// List handles GET /teams. Optional ?hackathon_id=.
func (h *Handler) List(c *gin.Context) {
	var hackathonID *uuid.UUID
	if v := c.Query("hackathon_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, MsgInvalidID)
			return
		}
		hackathonID = &id
	}
	list, err := h.repo.List(c.Request.Context(), tenant.FromContext(c), hackathonID)
	if err != nil {
		h.fail(c, "list teams", err)
		return
	}
	response.OK(c, list)
}

// ListForHackathon handles GET /hackathons/:id/teams.
func (h *Handler) ListForHackathon(c *gin.Context) {
	hk, ok := h.visibleHackathon(c)
	if !ok {
		return
	}
	list, err := h.repo.List(c.Request.Context(), tenant.FromContext(c), &hk.ID)
	if err != nil {
		h.fail(c, "list teams", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /teams/:id, returning the team with its members.
func (h *Handler) Get(c *gin.Context) {
	id, ok := param(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	t, err := h.repo.Get(ctx, tenant.FromContext(c), id)
	if err != nil {
		h.fail(c, "get team", err)
		return
	}
	members, err := h.repo.Members(ctx, t.ID)
	if err != nil {
		h.fail(c, "list team members", err)
		return
	}
	response.OK(c, gin.H{"team": t, "members": members})
}

// AddMember handles POST /teams/:id/members.
func (h *Handler) AddMember(c *gin.Context) {
	teamID, ok := param(c, "id")
	if !ok {
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	participantID, _ := uuid.Parse(req.ParticipantID)
	if err := h.repo.AddMember(c.Request.Context(), tenant.FromContext(c), teamID, participantID); err != nil {
		h.fail(c, "add team member", err)
		return
	}
	response.OK(c, gin.H{"team_id": teamID, "participant_id": participantID})
}

// RemoveMember handles DELETE /teams/:id/members/:participantId.
func (h *Handler) RemoveMember(c *gin.Context) {
	teamID, ok := param(c, "id")
	if !ok {
		return
	}
	participantID, ok := param(c, "participantId")
	if !ok {
		return
	}
	if err := h.repo.RemoveMember(c.Request.Context(), tenant.FromContext(c), teamID, participantID); err != nil {
		h.fail(c, "remove team member", err)
		return
	}
	response.NoContent(c)
}

// Score handles POST /teams/:id/scores (judges).
func (h *Handler) Score(c *gin.Context) {
	teamID, ok := param(c, "id")
	if !ok {
		return
	}
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, MsgInvalidBody)
		return
	}
	judgeID, _ := middleware.UserID(c)
	s := &models.TeamScore{TeamID: teamID, JudgeUserID: judgeID, Score: *req.Score, Notes: req.Notes}
	if err := h.repo.Score(c.Request.Context(), tenant.FromContext(c), s); err != nil {
		h.fail(c, "score team", err)
		return
	}
	response.OK(c, s)
}

// Export handles GET /hackathons/:id/teams/export.
func (h *Handler) Export(c *gin.Context) {
	hk, ok := h.visibleHackathon(c)
	if !ok {
		return
	}
	rows, err := h.repo.ExportRows(c.Request.Context(), tenant.FromContext(c), hk.ID)
	if err != nil {
		h.fail(c, "export teams", err)
		return
	}
	sheet := export.Sheet{
		Name: "Teams",
		Columns: []export.Column{
			{Header: "الفريق", Width: 24},
			{Header: "المشروع", Width: 28},
			{Header: "رابط المشروع", Width: 32},
			{Header: "عدد الأعضاء", Width: 12},
			{Header: "متوسط التقييم", Width: 14},
			{Header: "الأعضاء", Width: 48},
		},
	}
	for _, r := range rows {
		var avg interface{} = ""
		if r.Team.AverageScore != nil {
			avg = *r.Team.AverageScore
		}
		sheet.Rows = append(sheet.Rows, []interface{}{
			r.Team.Name, r.Team.ProjectName, r.Team.ProjectURL, r.Team.MemberCount, avg, strings.Join(r.Members, "، "),
		})
	}
	data, err := export.Workbook(sheet)
	if err != nil {
		h.fail(c, "build teams workbook", err)
		return
	}
	response.Attachment(c, "teams-"+hk.ID.String()+".xlsx", export.ContentTypeXLSX, data)
}

func (h *Handler) visibleHackathon(c *gin.Context) (*models.Hackathon, bool) {
	id, ok := param(c, "id")
	if !ok {
		return nil, false
	}
	hk, err := h.hackathons.Get(c.Request.Context(), tenant.FromContext(c), id)
	if err != nil {
		h.fail(c, "load hackathon", err)
		return nil, false
	}
	return hk, true
}
