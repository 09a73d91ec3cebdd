package hackathons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
)

// ErrNotFound is returned when a hackathon does not exist or lies outside
// the caller's scope. The two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("hackathon not found")

// Columns is the select list matching Scan, for alias h.
const Columns = `h.id, h.organization_id, h.title, h.description, h.status, h.starts_at, h.ends_at,
	h.registration_deadline, h.max_participants, h.max_team_size, COALESCE(h.cover_image_url,''),
	h.custom_fields, h.created_by, h.created_at, h.updated_at`

// Scan scans a row selected with Columns.
func Scan(row pgx.Row) (*models.Hackathon, error) {
	var h models.Hackathon
	var status string
	var fields []byte
	err := row.Scan(&h.ID, &h.OrganizationID, &h.Title, &h.Description, &status, &h.StartsAt, &h.EndsAt,
		&h.RegistrationDeadline, &h.MaxParticipants, &h.MaxTeamSize, &h.CoverImageURL,
		&fields, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.Status = models.HackathonStatus(status)
	h.CustomFields = []models.FormField{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &h.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	return &h, nil
}

func notFound(err error) error {
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// Repository handles hackathon persistence. Every read and write of an
// existing row goes through the caller's tenant.Scope.
type Repository struct {
	db database.DB
}

// NewRepository creates a hackathons repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a hackathon into h.OrganizationID.
func (r *Repository) Create(ctx context.Context, h *models.Hackathon) error {
	fields, err := json.Marshal(h.CustomFields)
	if err != nil {
		return err
	}
	const q = `INSERT INTO hackathons (organization_id, title, description, status, starts_at, ends_at,
			registration_deadline, max_participants, max_team_size, custom_fields, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, h.OrganizationID, h.Title, h.Description, string(h.Status), h.StartsAt, h.EndsAt,
		h.RegistrationDeadline, h.MaxParticipants, h.MaxTeamSize, fields, h.CreatedBy).
		Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
}

// Get returns a hackathon visible to scope.
func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Hackathon, error) {
	pred, args := scope.HackathonFilter("h", []any{id})
	h, err := Scan(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM hackathons h WHERE h.id = $1 AND `+pred, args...))
	return h, notFound(err)
}

// GetPublished returns a hackathon that is visible to the public, i.e. not
// a draft.
func (r *Repository) GetPublished(ctx context.Context, id uuid.UUID) (*models.Hackathon, error) {
	h, err := Scan(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM hackathons h WHERE h.id = $1 AND h.status <> 'draft'`, id))
	return h, notFound(err)
}

// ListFilter narrows List.
type ListFilter struct {
	Status models.HackathonStatus
}

// List returns hackathons visible to scope, newest start first.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Hackathon, error) {
	pred, args := scope.HackathonFilter("h", nil)
	q := `SELECT ` + Columns + ` FROM hackathons h WHERE ` + pred
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND h.status = $%d", len(args))
	}
	q += " ORDER BY h.starts_at DESC"
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Hackathon{}
	for rows.Next() {
		h, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// Update holds mutable hackathon fields. Nil means unchanged.
type Update struct {
	Title                *string
	Description          *string
	Status               *models.HackathonStatus
	StartsAt             *time.Time
	EndsAt               *time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
	MaxTeamSize          *int
}

// Update applies u to a hackathon visible to scope.
func (r *Repository) Update(ctx context.Context, scope tenant.Scope, id uuid.UUID, u Update) (*models.Hackathon, error) {
	var status *string
	if u.Status != nil {
		s := string(*u.Status)
		status = &s
	}
	args := []any{id, u.Title, u.Description, status, u.StartsAt, u.EndsAt, u.RegistrationDeadline, u.MaxParticipants, u.MaxTeamSize}
	pred, args := scope.HackathonFilter("h", args)
	q := `UPDATE hackathons h SET
			title = COALESCE($2, h.title),
			description = COALESCE($3, h.description),
			status = COALESCE($4, h.status),
			starts_at = COALESCE($5, h.starts_at),
			ends_at = COALESCE($6, h.ends_at),
			registration_deadline = COALESCE($7, h.registration_deadline),
			max_participants = COALESCE($8, h.max_participants),
			max_team_size = COALESCE($9, h.max_team_size),
			updated_at = NOW()
		WHERE h.id = $1 AND ` + pred + `
		RETURNING ` + Columns
	h, err := Scan(r.db.QueryRow(ctx, q, args...))
	return h, notFound(err)
}

// SetForm replaces the registration form definition.
func (r *Repository) SetForm(ctx context.Context, scope tenant.Scope, id uuid.UUID, fields []models.FormField) (*models.Hackathon, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	pred, args := scope.HackathonFilter("h", []any{id, raw})
	h, err := Scan(r.db.QueryRow(ctx, `UPDATE hackathons h SET custom_fields = $2, updated_at = NOW()
		WHERE h.id = $1 AND `+pred+` RETURNING `+Columns, args...))
	return h, notFound(err)
}

// SetCover stores the cover image URL.
func (r *Repository) SetCover(ctx context.Context, scope tenant.Scope, id uuid.UUID, url string) (*models.Hackathon, error) {
	pred, args := scope.HackathonFilter("h", []any{id, url})
	h, err := Scan(r.db.QueryRow(ctx, `UPDATE hackathons h SET cover_image_url = $2, updated_at = NOW()
		WHERE h.id = $1 AND `+pred+` RETURNING `+Columns, args...))
	return h, notFound(err)
}

// Delete removes a hackathon visible to scope. Participants, teams and
// assignments cascade.
func (r *Repository) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	pred, args := scope.HackathonFilter("h", []any{id})
	tag, err := r.db.Exec(ctx, `DELETE FROM hackathons h WHERE h.id = $1 AND `+pred, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
