package notifications

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
	"github.com/hackhub/backend/pkg/queue"
)

// ErrNotFound is returned when a notification is missing or outside scope.
var ErrNotFound = errors.New("notification not found")

const columns = `n.id, n.organization_id, n.template, n.recipient_email, n.subject, n.variables,
	n.status, n.attempts, COALESCE(n.last_error,''), n.mocked, n.sent_at, n.created_at`

// Repository handles notifications persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a notifications repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scan(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	var vars []byte
	if err := row.Scan(&n.ID, &n.OrganizationID, &n.Template, &n.RecipientEmail, &n.Subject, &vars,
		&n.Status, &n.Attempts, &n.LastError, &n.Mocked, &n.SentAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	if len(vars) > 0 {
		if err := json.Unmarshal(vars, &n.Variables); err != nil {
			return nil, fmt.Errorf("decode variables: %w", err)
		}
	}
	return &n, nil
}

// GetByID returns a notification by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM notifications n WHERE n.id = $1`, id))
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return n, err
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, mocked bool) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications
		SET status = 'sent', mocked = $2, attempts = attempts + 1, last_error = NULL, sent_at = NOW()
		WHERE id = $1`, id, mocked)
	return err
}

// MarkFailed records a failed attempt. A final failure, or one that reaches
// the retry limit, moves the row out of pending so the requeue sweep stops
// picking it up.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause string, final bool) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications
		SET status = CASE WHEN $2 OR attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			attempts = attempts + 1, last_error = $4
		WHERE id = $1 AND status = 'pending'`, id, final, queue.MaxRetries, cause)
	return err
}

// StalePending returns pending notifications created before now-olderThan,
// oldest first.
func (r *Repository) StalePending(ctx context.Context, olderThan time.Duration, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM notifications
		WHERE status = 'pending' AND created_at < NOW() - make_interval(secs => $1)
		ORDER BY created_at
		LIMIT $2`, olderThan.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFilter narrows List.
type ListFilter struct {
	Status string
	Limit  int
}

// List returns notifications visible to scope, newest first.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, f ListFilter) ([]*models.Notification, error) {
	pred, args := scope.OrganizationFilter("n.organization_id", nil)
	q := `SELECT ` + columns + ` FROM notifications n WHERE ` + pred
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND n.status = $%d", len(args))
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(" ORDER BY n.created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Notification{}
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// ResetForResend moves a scoped notification back to pending so it can be
// delivered again.
func (r *Repository) ResetForResend(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Notification, error) {
	pred, args := scope.OrganizationFilter("n.organization_id", []any{id})
	q := `UPDATE notifications n
		SET status = 'pending', attempts = 0, last_error = NULL, sent_at = NULL
		WHERE n.id = $1 AND ` + pred + `
		RETURNING ` + columns
	n, err := scan(r.db.QueryRow(ctx, q, args...))
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return n, err
}
