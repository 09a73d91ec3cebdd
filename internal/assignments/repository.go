package assignments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
)

var (
	// ErrNotFound is returned for a missing or out-of-scope assignment.
	ErrNotFound = errors.New("assignment not found")
	// ErrUnknownKind is returned for an assignment kind without a table.
	ErrUnknownKind = errors.New("unknown assignment kind")
)

// Insert writes an active assignment using q, usually the transaction that
// also created or upgraded the user.
func Insert(ctx context.Context, q database.DB, a *models.Assignment) error {
	table := a.Kind.Table()
	if table == "" {
		return ErrUnknownKind
	}
	perms := a.Permissions
	if len(perms) == 0 {
		perms = json.RawMessage(`{}`)
	}
	sql := fmt.Sprintf(`INSERT INTO %s (user_id, organization_id, hackathon_id, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at`, table)
	return q.QueryRow(ctx, sql, a.UserID, a.OrganizationID, a.HackathonID, []byte(perms)).
		Scan(&a.ID, &a.IsActive, &a.CreatedAt)
}

// Repository reads and deactivates supervisor, judge and expert assignments.
type Repository struct {
	db database.DB
}

// NewRepository creates an assignments repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List.
type ListFilter struct {
	HackathonID *uuid.UUID
	ActiveOnly  bool
}

// List returns assignments of kind in organizations visible to scope.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, kind models.AssignmentKind, f ListFilter) ([]*models.Assignment, error) {
	table := kind.Table()
	if table == "" {
		return nil, ErrUnknownKind
	}
	pred, args := scope.OrganizationFilter("a.organization_id", nil)
	q := fmt.Sprintf(`SELECT a.id, a.user_id, a.organization_id, a.hackathon_id, a.is_active, a.permissions, a.created_at,
			u.email, u.full_name
		FROM %s a INNER JOIN users u ON u.id = a.user_id
		WHERE %s`, table, pred)
	if f.HackathonID != nil {
		args = append(args, *f.HackathonID)
		q += fmt.Sprintf(" AND (a.hackathon_id = $%d OR a.hackathon_id IS NULL)", len(args))
	}
	if f.ActiveOnly {
		q += " AND a.is_active"
	}
	q += " ORDER BY a.created_at DESC"
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Assignment{}
	for rows.Next() {
		a := &models.Assignment{Kind: kind}
		var perms []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.OrganizationID, &a.HackathonID, &a.IsActive, &perms, &a.CreatedAt,
			&a.UserEmail, &a.UserFullName); err != nil {
			return nil, err
		}
		a.Permissions = perms
		list = append(list, a)
	}
	return list, rows.Err()
}

// Deactivate turns off an assignment visible to scope. The user keeps their
// role but loses the hackathons the assignment granted.
func (r *Repository) Deactivate(ctx context.Context, scope tenant.Scope, kind models.AssignmentKind, id uuid.UUID) error {
	table := kind.Table()
	if table == "" {
		return ErrUnknownKind
	}
	pred, args := scope.OrganizationFilter("a.organization_id", []any{id})
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`UPDATE %s a SET is_active = FALSE WHERE a.id = $1 AND %s`, table, pred), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
