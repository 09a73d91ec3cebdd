package invitations

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/metrics"
	"github.com/hackhub/backend/pkg/utils"
)

// MinPasswordLength applies to passwords chosen at acceptance.
const MinPasswordLength = 8

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, inv *models.Invitation, notice NoticeFunc) (*models.Notification, error)
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
	ExpireStale(ctx context.Context) (int64, error)
	Accept(ctx context.Context, inv *models.Invitation, in AcceptInput) (*models.User, error)
	Cancel(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Invitation, error)
}

// Service runs the invitation state machine: pending moves to accepted,
// expired or cancelled, and every one of those is terminal.
type Service struct {
	store  Store
	ttl    time.Duration
	appURL string
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an invitation service. ttl is the lifetime of new
// invitations; appURL prefixes the accept link.
func NewService(store Store, ttl time.Duration, appURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, ttl: ttl, appURL: appURL, logger: logger, now: time.Now}
}

// CreateInput describes a new invitation.
type CreateInput struct {
	Kind           models.InvitationKind
	OrganizationID uuid.UUID
	HackathonID    *uuid.UUID
	Email          string
	Name           string
	Permissions    json.RawMessage
	InvitedBy      uuid.UUID
}

// Create stores a pending invitation with its email staged in the outbox.
// The returned notification is committed and ready for dispatch.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Invitation, *models.Notification, error) {
	token, err := utils.GenerateToken()
	if err != nil {
		return nil, nil, err
	}
	invitedBy := in.InvitedBy
	inv := &models.Invitation{
		Kind:           in.Kind,
		OrganizationID: in.OrganizationID,
		HackathonID:    in.HackathonID,
		Email:          utils.NormalizeEmail(in.Email),
		Name:           in.Name,
		Token:          token,
		Permissions:    in.Permissions,
		InvitedBy:      &invitedBy,
		ExpiresAt:      s.now().Add(s.ttl),
	}
	n, err := s.store.Create(ctx, inv, s.notice)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordInvitation(string(inv.Kind), "created")
	return inv, n, nil
}

func (s *Service) notice(inv *models.Invitation) *models.Notification {
	template := models.TemplateSupervisorInvitation
	if inv.Kind == models.InvitationJudge {
		template = models.TemplateJudgeInvitation
	}
	suffix := ""
	if inv.HackathonTitle != "" {
		suffix = " في هاكاثون " + inv.HackathonTitle
	}
	return notifications.New(template, inv.Email, map[string]string{
		"name":              inv.Name,
		"organization_name": inv.OrganizationName,
		"hackathon_suffix":  suffix,
		"expires_at":        inv.ExpiresAt.Format("2006-01-02 15:04"),
		"accept_url":        s.AcceptURL(inv.Token),
	}, &inv.OrganizationID)
}

// AcceptURL is the frontend link carried in invitation emails.
func (s *Service) AcceptURL(token string) string {
	return s.appURL + "/invitations/" + token
}

// Lookup returns a usable invitation for token. It is the only read path:
// a pending invitation past its expiry is persisted as expired here and
// reported as ErrExpired.
func (s *Service) Lookup(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case models.InvitationAccepted:
		return nil, ErrAlreadyUsed
	case models.InvitationCancelled:
		return nil, ErrCancelled
	case models.InvitationExpired:
		return nil, ErrExpired
	}
	if inv.LapsedAt(s.now()) {
		if err := s.store.MarkExpired(ctx, inv.ID); err != nil {
			return nil, err
		}
		metrics.RecordInvitation(string(inv.Kind), "expired")
		return nil, ErrExpired
	}
	return inv, nil
}

// AcceptRequest is what the invitee submits.
type AcceptRequest struct {
	Password        string
	ConfirmPassword string
	FullName        string
}

// Accept consumes the invitation for token and returns the resulting user,
// new or upgraded to the invitation's role.
func (s *Service) Accept(ctx context.Context, token string, req AcceptRequest) (*models.User, *models.Invitation, error) {
	if len(req.Password) < MinPasswordLength {
		return nil, nil, ErrWeakPassword
	}
	if req.Password != req.ConfirmPassword {
		return nil, nil, ErrPasswordMismatch
	}
	inv, err := s.Lookup(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.store.Accept(ctx, inv, AcceptInput{Password: req.Password, PasswordHash: hash, FullName: req.FullName})
	if err != nil {
		return nil, nil, err
	}
	inv.Status = models.InvitationAccepted
	metrics.RecordInvitation(string(inv.Kind), "accepted")
	return user, inv, nil
}

// Cancel cancels a pending invitation visible to scope.
func (s *Service) Cancel(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := s.store.Cancel(ctx, scope, id); err != nil {
		return err
	}
	metrics.RecordInvitation("", "cancelled")
	return nil
}

// List returns invitations visible to scope.
func (s *Service) List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Invitation, error) {
	return s.store.List(ctx, scope, f)
}

// Sweep persists expiry for every lapsed pending invitation. Lookup already
// does this lazily; the sweep keeps lists and counts accurate.
func (s *Service) Sweep(ctx context.Context) error {
	n, err := s.store.ExpireStale(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("expired stale invitations", zap.Int64("count", n))
	}
	return nil
}
