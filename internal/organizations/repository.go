package organizations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/metrics"
)

// ErrSlugTaken is returned when another organization already uses the slug.
var ErrSlugTaken = errors.New("organization slug taken")

const orgColumns = `o.id, o.name, o.slug, o.plan, o.status, COALESCE(o.primary_color,''), COALESCE(o.secondary_color,''),
	COALESCE(o.logo_url,''), o.created_at, o.updated_at`

// Repository handles organization and organization_user persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an organizations repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Plan, &o.Status, &o.PrimaryColor, &o.SecondaryColor,
		&o.LogoURL, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Register creates the organization, the admin user and the owner
// membership in one transaction, staging the welcome notification with
// them. The slug is claimed first so a taken slug wins over a taken email.
// Nothing is written if any step fails.
func (r *Repository) Register(ctx context.Context, admin *models.User, org *models.Organization, welcome *models.Notification) error {
	defer metrics.TrackDBOperation("organization_register")(time.Now())
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		const insertOrg = `INSERT INTO organizations (name, slug, plan, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, insertOrg, org.Name, org.Slug, org.Plan, org.Status).
			Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
		if database.IsUniqueViolation(err, "organizations_slug_key") {
			return ErrSlugTaken
		}
		if err != nil {
			return err
		}
		if err := auth.InsertUser(ctx, tx, admin); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO organization_users (organization_id, user_id, is_owner) VALUES ($1, $2, TRUE)`,
			org.ID, admin.ID); err != nil {
			return err
		}
		if welcome != nil {
			welcome.OrganizationID = &org.ID
			return notifications.Insert(ctx, tx, welcome)
		}
		return nil
	})
}

// GetByID returns an organization by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return scanOrganization(r.db.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations o WHERE o.id = $1`, id))
}

// ListForUser returns organizations the user is a member of, owned first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orgColumns+`
		FROM organizations o
		INNER JOIN organization_users ou ON ou.organization_id = o.id
		WHERE ou.user_id = $1
		ORDER BY ou.is_owner DESC, ou.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Update holds the mutable organization fields. Nil means unchanged.
type Update struct {
	Name           *string
	PrimaryColor   *string
	SecondaryColor *string
	LogoURL        *string
}

// Update applies u and returns the updated organization.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, u Update) (*models.Organization, error) {
	const q = `UPDATE organizations o SET
			name = COALESCE($2, o.name),
			primary_color = COALESCE($3, o.primary_color),
			secondary_color = COALESCE($4, o.secondary_color),
			logo_url = COALESCE($5, o.logo_url),
			updated_at = NOW()
		WHERE o.id = $1
		RETURNING ` + orgColumns
	return scanOrganization(r.db.QueryRow(ctx, q, id, u.Name, u.PrimaryColor, u.SecondaryColor, u.LogoURL))
}

// Member is an organization member with user details.
type Member struct {
	ID       uuid.UUID   `json:"id"`
	UserID   uuid.UUID   `json:"user_id"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
	IsOwner  bool        `json:"is_owner"`
	AddedAt  time.Time   `json:"added_at"`
}

// ListMembers returns members of an organization.
func (r *Repository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	const q = `SELECT ou.id, ou.user_id, u.email, u.full_name, u.role, ou.is_owner, ou.created_at
		FROM organization_users ou
		INNER JOIN users u ON u.id = ou.user_id
		WHERE ou.organization_id = $1
		ORDER BY ou.is_owner DESC, ou.created_at ASC`
	rows, err := r.db.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Member{}
	for rows.Next() {
		var m Member
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Email, &m.FullName, &role, &m.IsOwner, &m.AddedAt); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		list = append(list, m)
	}
	return list, rows.Err()
}

// IsMember implements tenant.MembershipStore.
func (r *Repository) IsMember(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM organization_users WHERE user_id = $1 AND organization_id = $2)`, userID, orgID).Scan(&ok)
	return ok, err
}

// DefaultOrganization implements tenant.MembershipStore: the owned
// membership first, then the oldest.
func (r *Repository) DefaultOrganization(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT organization_id FROM organization_users
		WHERE user_id = $1
		ORDER BY is_owner DESC, created_at ASC
		LIMIT 1`, userID).Scan(&id)
	if database.IsNotFound(err) {
		return uuid.Nil, tenant.ErrNoOrganization
	}
	return id, err
}
