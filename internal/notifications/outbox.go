package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/database"
)

// New builds a pending notification for template. The subject is rendered
// now; the body is rendered at delivery.
func New(template, to string, vars map[string]string, organizationID *uuid.UUID) *models.Notification {
	return &models.Notification{
		OrganizationID: organizationID,
		Template:       template,
		RecipientEmail: to,
		Subject:        Subject(template, vars),
		Variables:      vars,
		Status:         models.NotificationPending,
	}
}

// Insert writes n to the outbox using q, usually the transaction carrying
// the change that triggered it. It fills ID and CreatedAt.
func Insert(ctx context.Context, q database.DB, n *models.Notification) error {
	if !Known(n.Template) {
		return fmt.Errorf("unknown template %q", n.Template)
	}
	vars, err := json.Marshal(n.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	const sql = `INSERT INTO notifications (organization_id, template, recipient_email, subject, variables)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at`
	return q.QueryRow(ctx, sql, n.OrganizationID, n.Template, n.RecipientEmail, n.Subject, vars).
		Scan(&n.ID, &n.Status, &n.CreatedAt)
}

// Enqueuer pushes delivery jobs for committed outbox rows.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, id uuid.UUID) error
}

// Outbox hands committed notifications to the delivery queue. Enqueue
// failures are logged only: the row stays pending and the requeue sweep
// picks it up.
type Outbox struct {
	queue  Enqueuer
	logger *zap.Logger
}

// NewOutbox creates an outbox. q may be nil when no queue is configured.
func NewOutbox(q Enqueuer, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{queue: q, logger: logger}
}

// Dispatch enqueues delivery jobs. Call only after the transaction that
// inserted the rows has committed.
func (o *Outbox) Dispatch(ctx context.Context, ns ...*models.Notification) {
	if o == nil || o.queue == nil {
		return
	}
	for _, n := range ns {
		if n == nil || n.ID == uuid.Nil {
			continue
		}
		if err := o.queue.EnqueueNotification(ctx, n.ID); err != nil {
			o.logger.Warn("enqueue notification failed",
				zap.String("notification_id", n.ID.String()),
				zap.String("template", n.Template),
				zap.Error(err))
		}
	}
}
