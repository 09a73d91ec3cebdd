package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/metrics"
	"github.com/hackhub/backend/pkg/queue"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, mocked bool) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string, final bool) error
	StalePending(ctx context.Context, olderThan time.Duration, limit int) ([]uuid.UUID, error)
}

// JobQueue is the delivery queue.
type JobQueue interface {
	Enqueuer
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

const (
	staleAfter   = 5 * time.Minute
	requeueBatch = 100
)

// Dispatcher delivers outbox rows: render, send, mark.
type Dispatcher struct {
	store  Store
	mailer Mailer
	queue  JobQueue
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. q may be nil, in which case Requeue
// delivers pending rows directly.
func NewDispatcher(store Store, mailer Mailer, q JobQueue, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, mailer: mailer, queue: q, logger: logger}
}

// Deliver sends one notification. Already-sent rows are skipped so a
// duplicated job never mails twice.
func (d *Dispatcher) Deliver(ctx context.Context, id uuid.UUID) error {
	n, err := d.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			d.logger.Warn("notification vanished before delivery", zap.String("notification_id", id.String()))
			return nil
		}
		return fmt.Errorf("load notification: %w", err)
	}
	if n.Status != models.NotificationPending {
		d.logger.Debug("notification not pending, skipping", zap.String("notification_id", id.String()), zap.String("status", n.Status))
		return nil
	}
	body, err := Render(n.Template, n.Variables)
	if err != nil {
		metrics.RecordDelivery(n.Template, "render_error")
		if markErr := d.store.MarkFailed(ctx, id, err.Error(), true); markErr != nil {
			d.logger.Error("mark notification failed", zap.Error(markErr))
		}
		return nil
	}
	mocked, err := d.mailer.Send(ctx, n.RecipientEmail, n.Subject, body)
	if err != nil {
		metrics.RecordDelivery(n.Template, "error")
		return fmt.Errorf("send %s: %w", n.Template, err)
	}
	if err := d.store.MarkSent(ctx, id, mocked); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	result := "sent"
	if mocked {
		result = "mocked"
	}
	metrics.RecordDelivery(n.Template, result)
	d.logger.Info("notification delivered",
		zap.String("notification_id", id.String()),
		zap.String("template", n.Template),
		zap.Bool("mocked", mocked))
	return nil
}

// Process executes one queue job.
func (d *Dispatcher) Process(ctx context.Context, job *queue.Job) error {
	p, err := queue.DecodeNotification(job)
	if err != nil {
		return err
	}
	return d.Deliver(ctx, p.NotificationID)
}

// Run starts the worker loop: dequeue, process, retry on error. Jobs that
// exhaust their retries are dead-lettered and the row marked failed.
func (d *Dispatcher) Run(ctx context.Context) {
	if d.queue == nil {
		d.logger.Warn("notification queue not configured, dispatcher loop disabled")
		return
	}
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopping")
			return
		default:
		}

		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			d.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		d.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := d.Process(ctx, job); err != nil {
			d.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			d.handleFailure(ctx, job, err)
			sleep(ctx, queue.RetryBackoff)
		}
	}
}

func (d *Dispatcher) handleFailure(ctx context.Context, job *queue.Job, cause error) {
	dead, err := d.queue.Retry(ctx, job)
	if err != nil {
		d.logger.Error("retry enqueue failed", zap.Error(err))
	}
	p, decodeErr := queue.DecodeNotification(job)
	if decodeErr != nil {
		return
	}
	if err := d.store.MarkFailed(ctx, p.NotificationID, cause.Error(), dead); err != nil {
		d.logger.Error("record delivery failure", zap.Error(err))
	}
}

// Requeue re-enqueues pending rows whose job was lost. Without a queue it
// delivers them in place.
func (d *Dispatcher) Requeue(ctx context.Context) {
	age := staleAfter
	if d.queue == nil {
		age = 0
	}
	ids, err := d.store.StalePending(ctx, age, requeueBatch)
	if err != nil {
		d.logger.Error("list stale notifications", zap.Error(err))
		return
	}
	for _, id := range ids {
		if d.queue != nil {
			if err := d.queue.EnqueueNotification(ctx, id); err != nil {
				d.logger.Warn("requeue notification", zap.String("notification_id", id.String()), zap.Error(err))
			}
			continue
		}
		if err := d.Deliver(ctx, id); err != nil {
			d.logger.Warn("direct delivery failed", zap.String("notification_id", id.String()), zap.Error(err))
			if markErr := d.store.MarkFailed(ctx, id, err.Error(), false); markErr != nil {
				d.logger.Error("record delivery failure", zap.Error(markErr))
			}
		}
	}
	if len(ids) > 0 {
		d.logger.Info("requeued stale notifications", zap.Int("count", len(ids)))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
