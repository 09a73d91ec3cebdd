package certificates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/metrics"
)

var (
	// ErrNoTemplate is returned when the hackathon has no certificate set up.
	ErrNoTemplate = errors.New("certificate template not configured")
	// ErrParticipantNotFound is returned for a missing or inaccessible participant.
	ErrParticipantNotFound = errors.New("participant not found")
)

const templateColumns = `ct.hackathon_id, ct.image_key, ct.name_x, ct.name_y, ct.font_size, ct.color, ct.updated_at`

func scanTemplate(row pgx.Row) (*models.CertificateTemplate, error) {
	var t models.CertificateTemplate
	if err := row.Scan(&t.HackathonID, &t.ImageKey, &t.NameX, &t.NameY, &t.FontSize, &t.Color, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// LayoutOf returns the render layout stored on t.
func LayoutOf(t *models.CertificateTemplate) Layout {
	return Layout{NameX: t.NameX, NameY: t.NameY, FontSize: t.FontSize, Color: t.Color}
}

// Repository handles certificate template persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a certificates repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Template returns the template of a hackathon inside scope.
func (r *Repository) Template(ctx context.Context, scope tenant.Scope, hackathonID uuid.UUID) (*models.CertificateTemplate, error) {
	pred, args := scope.HackathonFilter("h", []any{hackathonID})
	t, err := scanTemplate(r.db.QueryRow(ctx, `SELECT `+templateColumns+`
		FROM certificate_templates ct
		INNER JOIN hackathons h ON h.id = ct.hackathon_id
		WHERE ct.hackathon_id = $1 AND `+pred, args...))
	if database.IsNotFound(err) {
		return nil, ErrNoTemplate
	}
	return t, err
}

// SaveTemplate inserts or replaces the template of a hackathon inside
// scope. An empty ImageKey keeps the stored image; it is only allowed when
// a template already exists.
func (r *Repository) SaveTemplate(ctx context.Context, scope tenant.Scope, t *models.CertificateTemplate) error {
	defer metrics.TrackDBOperation("certificate_template_save")(time.Now())
	pred, args := scope.HackathonFilter("h", []any{t.HackathonID})
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM certificate_templates WHERE hackathon_id = h.id)
			FROM hackathons h WHERE h.id = $1 AND `+pred+` FOR UPDATE OF h`, args...).Scan(&exists)
		if database.IsNotFound(err) {
			return hackathons.ErrNotFound
		}
		if err != nil {
			return err
		}
		if t.ImageKey == "" && !exists {
			return ErrNoTemplate
		}
		const upsert = `INSERT INTO certificate_templates (hackathon_id, image_key, name_x, name_y, font_size, color)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (hackathon_id) DO UPDATE SET
				image_key = COALESCE(NULLIF(EXCLUDED.image_key, ''), certificate_templates.image_key),
				name_x = EXCLUDED.name_x,
				name_y = EXCLUDED.name_y,
				font_size = EXCLUDED.font_size,
				color = EXCLUDED.color,
				updated_at = NOW()
			RETURNING image_key, updated_at`
		return tx.QueryRow(ctx, upsert, t.HackathonID, t.ImageKey, t.NameX, t.NameY, t.FontSize, t.Color).
			Scan(&t.ImageKey, &t.UpdatedAt)
	})
}

// Subject is what a certificate is issued for.
type Subject struct {
	ParticipantID uuid.UUID
	FullName      string
	Status        models.ParticipantStatus
	Template      *models.CertificateTemplate
}

// Access restricts which participant rows a certificate lookup may read.
// A non-empty OwnerEmail limits it to the caller's own registrations;
// otherwise Scope applies.
type Access struct {
	Scope      tenant.Scope
	OwnerEmail string
}

// Subject loads a participant with its hackathon's template. Template is
// nil when none is configured.
func (r *Repository) Subject(ctx context.Context, access Access, participantID uuid.UUID) (*Subject, error) {
	pred, args := "p.email = $2", []any{participantID, access.OwnerEmail}
	if access.OwnerEmail == "" {
		pred, args = access.Scope.HackathonFilter("h", []any{participantID})
	}
	q := `SELECT p.id, p.full_name, p.status,
			ct.hackathon_id, ct.image_key, ct.name_x, ct.name_y, ct.font_size, ct.color, ct.updated_at
		FROM participants p
		INNER JOIN hackathons h ON h.id = p.hackathon_id
		LEFT JOIN certificate_templates ct ON ct.hackathon_id = h.id
		WHERE p.id = $1 AND ` + pred
	var (
		s        Subject
		status   string
		hid      *uuid.UUID
		key      *string
		x, y, fs *float64
		color    *string
		updated  *time.Time
	)
	err := r.db.QueryRow(ctx, q, args...).Scan(&s.ParticipantID, &s.FullName, &status,
		&hid, &key, &x, &y, &fs, &color, &updated)
	if database.IsNotFound(err) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Status = models.ParticipantStatus(status)
	if hid != nil {
		s.Template = &models.CertificateTemplate{
			HackathonID: *hid, ImageKey: *key, NameX: *x, NameY: *y, FontSize: *fs, Color: *color, UpdatedAt: *updated,
		}
	}
	return &s, nil
}
