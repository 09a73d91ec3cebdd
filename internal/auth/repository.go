package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/notifications"
	"github.com/hackhub/backend/pkg/database"
)

// ErrEmailTaken is returned when a user with the email already exists.
var ErrEmailTaken = errors.New("email already registered")

// UserColumns is the select list matching ScanUser.
const UserColumns = `id, email, password_hash, full_name, role, COALESCE(phone,''), COALESCE(profile_image_url,''), created_at, updated_at`

// ScanUser scans a row selected with UserColumns.
func ScanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &role, &u.Phone, &u.ProfileImageURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// InsertUser inserts u using q, which may be a transaction. It fills ID and timestamps.
func InsertUser(ctx context.Context, q database.DB, u *models.User) error {
	const sql = `INSERT INTO users (email, password_hash, full_name, role, phone)
		VALUES ($1, $2, $3, $4, NULLIF($5,''))
		RETURNING id, created_at, updated_at`
	err := q.QueryRow(ctx, sql, u.Email, u.Password, u.FullName, string(u.Role), u.Phone).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if database.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	return err
}

// Repository handles user persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an auth repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return ScanUser(r.db.QueryRow(ctx, `SELECT `+UserColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return ScanUser(r.db.QueryRow(ctx, `SELECT `+UserColumns+` FROM users WHERE email = $1`, email))
}

// Create inserts a user and stages the welcome notification in the same transaction.
func (r *Repository) Create(ctx context.Context, u *models.User, welcome *models.Notification) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := InsertUser(ctx, tx, u); err != nil {
			return err
		}
		if welcome == nil {
			return nil
		}
		if err := notifications.Insert(ctx, tx, welcome); err != nil {
			return fmt.Errorf("stage welcome: %w", err)
		}
		return nil
	})
}

// SetProfileImage stores the uploaded avatar URL.
func (r *Repository) SetProfileImage(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET profile_image_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	return err
}
