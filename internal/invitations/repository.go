package invitations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackhub/backend/internal/assignments"
	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/metrics"
	"github.com/hackhub/backend/pkg/utils"
)

const invColumns = `i.id, i.kind, i.organization_id, o.name, i.hackathon_id, COALESCE(h.title,''), i.email, i.name, i.token,
	i.status, i.permissions, i.invited_by, i.expires_at, i.accepted_at, i.created_at`

const invFrom = ` FROM invitations i
	INNER JOIN organizations o ON o.id = i.organization_id
	LEFT JOIN hackathons h ON h.id = i.hackathon_id`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	var kind, status string
	var perms []byte
	err := row.Scan(&inv.ID, &kind, &inv.OrganizationID, &inv.OrganizationName, &inv.HackathonID, &inv.HackathonTitle,
		&inv.Email, &inv.Name, &inv.Token, &status, &perms, &inv.InvitedBy, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	inv.Kind = models.InvitationKind(kind)
	inv.Status = models.InvitationStatus(status)
	inv.Permissions = perms
	return &inv, nil
}

// NoticeFunc builds the invitation email once the organization name and
// hackathon title are known.
type NoticeFunc func(inv *models.Invitation) *models.Notification

// Repository handles invitation persistence. Reads by token go through
// Service.Lookup, never directly to handlers.
type Repository struct {
	db database.DB
}

// NewRepository creates an invitations repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending invitation and its email in one transaction.
func (r *Repository) Create(ctx context.Context, inv *models.Invitation, notice NoticeFunc) (*models.Notification, error) {
	var n *models.Notification
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT o.name, COALESCE(h.title,'')
			FROM organizations o
			LEFT JOIN hackathons h ON h.id = $2 AND h.organization_id = o.id
			WHERE o.id = $1`, inv.OrganizationID, inv.HackathonID).
			Scan(&inv.OrganizationName, &inv.HackathonTitle)
		if database.IsNotFound(err) {
			return ErrOrganizationNotFound
		}
		if err != nil {
			return err
		}
		if inv.HackathonID != nil && inv.HackathonTitle == "" {
			return ErrHackathonNotFound
		}

		perms := []byte(inv.Permissions)
		if len(perms) == 0 {
			perms = []byte(`{}`)
		}
		var status string
		err = tx.QueryRow(ctx, `INSERT INTO invitations (kind, organization_id, hackathon_id, email, name, token, permissions, invited_by, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, status, created_at`,
			string(inv.Kind), inv.OrganizationID, inv.HackathonID, inv.Email, inv.Name, inv.Token, perms, inv.InvitedBy, inv.ExpiresAt).
			Scan(&inv.ID, &status, &inv.CreatedAt)
		if err != nil {
			return err
		}
		inv.Status = models.InvitationStatus(status)
		if notice == nil {
			return nil
		}
		n = notice(inv)
		return notifications.Insert(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// GetByToken returns the invitation for token, whatever its status.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(ctx, `SELECT `+invColumns+invFrom+` WHERE i.token = $1`, token))
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return inv, err
}

// MarkExpired persists the expiry of a lapsed pending invitation. It is a
// no-op if the row already left pending.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE invitations SET status = 'expired'
		WHERE id = $1 AND status = 'pending' AND expires_at <= NOW()`, id)
	return err
}

// ExpireStale marks every lapsed pending invitation expired.
func (r *Repository) ExpireStale(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE invitations SET status = 'expired' WHERE status = 'pending' AND expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AcceptInput carries what acceptance needs besides the invitation itself.
type AcceptInput struct {
	Password     string // plain, to verify an existing account
	PasswordHash string // for a new account
	FullName     string
}

// Accept consumes a pending invitation, creates or upgrades the user and
// grants the assignment in one transaction. The conditional update is the
// only authority on whether the invitation was still usable; any later
// failure rolls it back to pending.
func (r *Repository) Accept(ctx context.Context, inv *models.Invitation, in AcceptInput) (*models.User, error) {
	defer metrics.TrackDBOperation("invitation_accept")(time.Now())
	var user *models.User
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE invitations SET status = 'accepted', accepted_at = NOW()
			WHERE id = $1 AND status = 'pending' AND expires_at > NOW()`, inv.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return r.unusable(ctx, tx, inv.ID)
		}

		role := inv.Kind.Assignment().Role()
		user, err = auth.ScanUser(tx.QueryRow(ctx, `SELECT `+auth.UserColumns+` FROM users WHERE email = $1 FOR UPDATE`, inv.Email))
		switch {
		case database.IsNotFound(err):
			name := in.FullName
			if name == "" {
				name = inv.Name
			}
			user = &models.User{Email: inv.Email, Password: in.PasswordHash, FullName: name, Role: role}
			if err := auth.InsertUser(ctx, tx, user); err != nil {
				return fmt.Errorf("create invited user: %w", err)
			}
		case err != nil:
			return err
		default:
			if err := upgradable(user, role, in.Password); err != nil {
				return err
			}
			if user.Role != role {
				if _, err := tx.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, user.ID, string(role)); err != nil {
					return err
				}
				user.Role = role
			}
		}

		return assignments.Insert(ctx, tx, &models.Assignment{
			Kind:           inv.Kind.Assignment(),
			UserID:         user.ID,
			OrganizationID: inv.OrganizationID,
			HackathonID:    inv.HackathonID,
			Permissions:    inv.Permissions,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// upgradable checks that an existing account may take role.
func upgradable(u *models.User, role models.Role, password string) error {
	switch {
	case u.Role.Privileged():
		return ErrPrivilegedAccount
	case u.Role != role && u.Role != models.RoleParticipant && u.Role != models.RoleExpert:
		return ErrRoleConflict
	case !utils.CheckPassword(password, u.Password):
		return ErrWrongPassword
	}
	return nil
}

// unusable explains why the conditional update matched no row.
func (r *Repository) unusable(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM invitations WHERE id = $1`, id).Scan(&status)
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	switch models.InvitationStatus(status) {
	case models.InvitationCancelled:
		return ErrCancelled
	case models.InvitationExpired, models.InvitationPending:
		return ErrExpired
	}
	return ErrAlreadyUsed
}

// Cancel moves a pending invitation visible to scope to cancelled.
func (r *Repository) Cancel(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		pred, args := scope.OrganizationFilter("i.organization_id", []any{id})
		var status string
		err := tx.QueryRow(ctx, `SELECT i.status FROM invitations i WHERE i.id = $1 AND `+pred+` FOR UPDATE`,
			args...).Scan(&status)
		if database.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE invitations SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.unusable(ctx, tx, id)
		}
		return nil
	})
}

// ListFilter narrows List.
type ListFilter struct {
	Status      models.InvitationStatus
	HackathonID *uuid.UUID
}

// List returns invitations of organizations visible to scope, newest first.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Invitation, error) {
	pred, args := scope.OrganizationFilter("i.organization_id", nil)
	q := `SELECT ` + invColumns + invFrom + ` WHERE ` + pred
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND i.status = $%d", len(args))
	}
	if f.HackathonID != nil {
		args = append(args, *f.HackathonID)
		q += fmt.Sprintf(" AND i.hackathon_id = $%d", len(args))
	}
	q += " ORDER BY i.created_at DESC"
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}
