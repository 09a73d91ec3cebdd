// Package users holds the platform master's user administration.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/metrics"
)

var (
	// ErrNotFound is returned for an unknown user.
	ErrNotFound = errors.New("user not found")
	// ErrLastOwner is returned when deleting the only owner of an
	// organization without cascading.
	ErrLastOwner = errors.New("user is the last owner of an organization")
)

// LastOwnerError lists the organizations that would be left without an owner.
type LastOwnerError struct {
	Organizations []uuid.UUID
}

func (e *LastOwnerError) Error() string {
	return fmt.Sprintf("last owner of %d organization(s)", len(e.Organizations))
}

func (e *LastOwnerError) Unwrap() error { return ErrLastOwner }

// Repository handles user administration persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a users repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List. Search matches email or name.
type ListFilter struct {
	Role   models.Role
	Search string
	Limit  int
	Offset int
}

// List returns users newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.UserPublic, error) {
	conds := []string{"TRUE"}
	args := []any{}
	if f.Role != "" {
		args = append(args, string(f.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(email ILIKE $%[1]d OR full_name ILIKE $%[1]d)", len(args)))
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT `+auth.UserColumns+` FROM users WHERE %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, strings.Join(conds, " AND "), len(args)-1, len(args))
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		u, err := auth.ScanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// SetRole changes a user's role.
func (r *Repository) SetRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	u, err := auth.ScanUser(r.db.QueryRow(ctx, `UPDATE users SET role = $2, updated_at = NOW()
		WHERE id = $1 RETURNING `+auth.UserColumns, id, string(role)))
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return u, err
}

// Delete removes a user. Organizations the user is the only owner of block
// the delete with a *LastOwnerError unless cascade is set, in which case
// they are deleted in the same transaction. It returns the deleted
// organization IDs.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, cascade bool) ([]uuid.UUID, error) {
	defer metrics.TrackDBOperation("user_delete")(time.Now())
	var orphaned []uuid.UUID
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT TRUE FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&exists); err != nil {
			if database.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		rows, err := tx.Query(ctx, `SELECT ou.organization_id FROM organization_users ou
			WHERE ou.user_id = $1 AND ou.is_owner
			AND NOT EXISTS (SELECT 1 FROM organization_users o2
				WHERE o2.organization_id = ou.organization_id AND o2.is_owner AND o2.user_id <> $1)
			ORDER BY ou.organization_id
			FOR UPDATE OF ou`, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var orgID uuid.UUID
			if err := rows.Scan(&orgID); err != nil {
				rows.Close()
				return err
			}
			orphaned = append(orphaned, orgID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(orphaned) > 0 {
			if !cascade {
				return &LastOwnerError{Organizations: orphaned}
			}
			if _, err := tx.Exec(ctx, `DELETE FROM organizations WHERE id = ANY($1)`, orphaned); err != nil {
				return fmt.Errorf("delete organizations: %w", err)
			}
		}
		_, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orphaned, nil
}
