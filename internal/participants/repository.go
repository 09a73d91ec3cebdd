package participants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/metrics"
)

var (
	// ErrNotFound is returned for a missing or out-of-scope participant.
	ErrNotFound = errors.New("participant not found")
	// ErrRegistrationClosed is returned when the hackathon is not open or
	// its deadline has passed.
	ErrRegistrationClosed = errors.New("registration closed")
	// ErrFull is returned when the hackathon reached max_participants.
	ErrFull = errors.New("hackathon is full")
	// ErrAlreadyRegistered is returned for a second registration with the
	// same email.
	ErrAlreadyRegistered = errors.New("already registered")
)

// Columns is the select list matching Scan, for alias p.
const Columns = `p.id, p.hackathon_id, p.user_id, p.full_name, p.email, p.phone, p.status, p.team_id,
	p.additional_info, p.created_at, p.updated_at`

// Scan scans a row selected with Columns.
func Scan(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	var status string
	var info []byte
	err := row.Scan(&p.ID, &p.HackathonID, &p.UserID, &p.FullName, &p.Email, &p.Phone, &status, &p.TeamID,
		&info, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.ParticipantStatus(status)
	p.AdditionalInfo = map[string]string{}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &p.AdditionalInfo); err != nil {
			return nil, fmt.Errorf("decode additional info: %w", err)
		}
	}
	return &p, nil
}

// Repository handles participant persistence.
type Repository struct {
	db  database.DB
	now func() time.Time
}

// NewRepository creates a participants repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Register adds p to its hackathon. The hackathon row is locked so the
// capacity check and the insert see the same count. The confirmation
// notification is written in the same transaction and returned for
// dispatch after commit.
func (r *Repository) Register(ctx context.Context, p *models.Participant) (*models.Notification, error) {
	defer metrics.TrackDBOperation("participant_register")(time.Now())
	var notice *models.Notification
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		h, err := hackathons.Scan(tx.QueryRow(ctx, `SELECT `+hackathons.Columns+`
			FROM hackathons h WHERE h.id = $1 AND h.status <> 'draft' FOR UPDATE`, p.HackathonID))
		if database.IsNotFound(err) {
			return hackathons.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !h.AcceptsRegistrations(r.now()) {
			return ErrRegistrationClosed
		}
		answers, err := CleanAnswers(h.CustomFields, p.AdditionalInfo)
		if err != nil {
			return err
		}
		p.AdditionalInfo = answers
		if h.MaxParticipants > 0 {
			var n int
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE hackathon_id = $1 AND status <> 'rejected'`,
				h.ID).Scan(&n); err != nil {
				return err
			}
			if n >= h.MaxParticipants {
				return ErrFull
			}
		}
		info, err := json.Marshal(p.AdditionalInfo)
		if err != nil {
			return err
		}
		var status string
		err = tx.QueryRow(ctx, `INSERT INTO participants (hackathon_id, user_id, full_name, email, phone, additional_info)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, status, created_at, updated_at`,
			p.HackathonID, p.UserID, p.FullName, p.Email, p.Phone, info).
			Scan(&p.ID, &status, &p.CreatedAt, &p.UpdatedAt)
		if database.IsUniqueViolation(err, "participants_hackathon_email_key") {
			return ErrAlreadyRegistered
		}
		if err != nil {
			return err
		}
		p.Status = models.ParticipantStatus(status)
		notice = notifications.New(models.TemplateRegistrationReceived, p.Email, map[string]string{
			"name":            p.FullName,
			"hackathon_title": h.Title,
		}, &h.OrganizationID)
		return notifications.Insert(ctx, tx, notice)
	})
	if err != nil {
		return nil, err
	}
	return notice, nil
}

// ListFilter narrows List.
type ListFilter struct {
	HackathonID *uuid.UUID
	Status      models.ParticipantStatus
}

// List returns participants of hackathons visible to scope.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Participant, error) {
	pred, args := scope.HackathonFilter("h", nil)
	q := `SELECT ` + Columns + ` FROM participants p INNER JOIN hackathons h ON h.id = p.hackathon_id WHERE ` + pred
	if f.HackathonID != nil {
		args = append(args, *f.HackathonID)
		q += fmt.Sprintf(" AND p.hackathon_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND p.status = $%d", len(args))
	}
	q += " ORDER BY p.created_at DESC"
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Participant{}
	for rows.Next() {
		p, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Get returns a participant visible to scope.
func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Participant, error) {
	pred, args := scope.HackathonFilter("h", []any{id})
	p, err := Scan(r.db.QueryRow(ctx, `SELECT `+Columns+`
		FROM participants p INNER JOIN hackathons h ON h.id = p.hackathon_id
		WHERE p.id = $1 AND `+pred, args...))
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return p, err
}

// SetStatus moves a participant to status. Approvals and rejections stage a
// notification in the same transaction; it is nil when the status did not
// change or is pending.
func (r *Repository) SetStatus(ctx context.Context, scope tenant.Scope, id uuid.UUID, status models.ParticipantStatus) (*models.Participant, *models.Notification, error) {
	var (
		p      *models.Participant
		notice *models.Notification
	)
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		pred, args := scope.HackathonFilter("h", []any{id})
		var (
			prev     string
			title    string
			startsAt time.Time
			orgID    uuid.UUID
		)
		err := tx.QueryRow(ctx, `SELECT p.status, h.title, h.starts_at, h.organization_id
			FROM participants p INNER JOIN hackathons h ON h.id = p.hackathon_id
			WHERE p.id = $1 AND `+pred+` FOR UPDATE OF p`, args...).Scan(&prev, &title, &startsAt, &orgID)
		if database.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		p, err = Scan(tx.QueryRow(ctx, `UPDATE participants p SET status = $2, updated_at = NOW()
			WHERE p.id = $1 RETURNING `+Columns, id, string(status)))
		if err != nil {
			return err
		}
		if models.ParticipantStatus(prev) == status {
			return nil
		}
		var template string
		switch status {
		case models.ParticipantApproved:
			template = models.TemplateParticipantApproved
		case models.ParticipantRejected:
			template = models.TemplateParticipantRejected
		default:
			return nil
		}
		notice = notifications.New(template, p.Email, map[string]string{
			"name":            p.FullName,
			"hackathon_title": title,
			"starts_at":       startsAt.Format("2006-01-02"),
		}, &orgID)
		return notifications.Insert(ctx, tx, notice)
	})
	if err != nil {
		return nil, nil, err
	}
	return p, notice, nil
}
