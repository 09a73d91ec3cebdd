package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/queue"
)

type fakeStore struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]*models.Notification
	failed map[uuid.UUID]bool
}

func newFakeStore(ns ...*models.Notification) *fakeStore {
	s := &fakeStore{rows: map[uuid.UUID]*models.Notification{}, failed: map[uuid.UUID]bool{}}
	for _, n := range ns {
		s.rows[n.ID] = n
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id uuid.UUID, mocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id].Status = models.NotificationSent
	s.rows[id].Mocked = mocked
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, cause string, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[id].LastError = cause
	s.rows[id].Attempts++
	if final {
		s.rows[id].Status = models.NotificationFailed
	}
	s.failed[id] = final
	return nil
}

func (s *fakeStore) StalePending(_ context.Context, _ time.Duration, _ int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, n := range s.rows {
		if n.Status == models.NotificationPending {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.sent = append(m.sent, to)
	return true, nil
}

type fakeQueue struct {
	enqueued []uuid.UUID
	retries  int
}

func (q *fakeQueue) EnqueueNotification(_ context.Context, id uuid.UUID) error {
	q.enqueued = append(q.enqueued, id)
	return nil
}

func (q *fakeQueue) Dequeue(context.Context) (*queue.Job, error) { return nil, nil }

func (q *fakeQueue) Retry(_ context.Context, job *queue.Job) (bool, error) {
	q.retries++
	job.Attempt++
	return job.Attempt >= queue.MaxRetries, nil
}

func pending(template string) *models.Notification {
	return &models.Notification{
		ID:             uuid.New(),
		Template:       template,
		RecipientEmail: "someone@example.com",
		Subject:        "subject",
		Variables:      map[string]string{"name": "Ali"},
		Status:         models.NotificationPending,
	}
}

func TestDeliverMarksSent(t *testing.T) {
	n := pending(models.TemplateWelcomeParticipant)
	store, mailer := newFakeStore(n), &fakeMailer{}
	d := NewDispatcher(store, mailer, nil, zap.NewNop())

	require.NoError(t, d.Deliver(context.Background(), n.ID))

	assert.Equal(t, []string{"someone@example.com"}, mailer.sent)
	assert.Equal(t, models.NotificationSent, store.rows[n.ID].Status)
	assert.True(t, store.rows[n.ID].Mocked)
}

func TestDeliverSkipsAlreadySent(t *testing.T) {
	n := pending(models.TemplateWelcomeParticipant)
	n.Status = models.NotificationSent
	mailer := &fakeMailer{}
	d := NewDispatcher(newFakeStore(n), mailer, nil, nil)

	require.NoError(t, d.Deliver(context.Background(), n.ID))
	assert.Empty(t, mailer.sent)
}

func TestDeliverUnknownTemplateFailsPermanently(t *testing.T) {
	n := pending("retired_template")
	store := newFakeStore(n)
	d := NewDispatcher(store, &fakeMailer{}, nil, nil)

	require.NoError(t, d.Deliver(context.Background(), n.ID))
	assert.Equal(t, models.NotificationFailed, store.rows[n.ID].Status)
}

func TestProcessFailureIsRetriedThenDeadLettered(t *testing.T) {
	n := pending(models.TemplateWelcomeParticipant)
	store := newFakeStore(n)
	q := &fakeQueue{}
	d := NewDispatcher(store, &fakeMailer{err: errors.New("smtp down")}, q, nil)

	job := &queue.Job{ID: "j1", Type: queue.JobTypeNotification, Payload: []byte(`{"notification_id":"` + n.ID.String() + `"}`)}
	for i := 0; i < queue.MaxRetries; i++ {
		err := d.Process(context.Background(), job)
		require.Error(t, err)
		d.handleFailure(context.Background(), job, err)
	}

	assert.Equal(t, queue.MaxRetries, q.retries)
	assert.True(t, store.failed[n.ID])
	assert.Equal(t, models.NotificationFailed, store.rows[n.ID].Status)
}

func TestRequeueWithQueueEnqueuesStale(t *testing.T) {
	n := pending(models.TemplateWelcomeAdmin)
	q := &fakeQueue{}
	d := NewDispatcher(newFakeStore(n), &fakeMailer{}, q, nil)

	d.Requeue(context.Background())
	assert.Equal(t, []uuid.UUID{n.ID}, q.enqueued)
}

func TestRequeueWithoutQueueDeliversDirectly(t *testing.T) {
	n := pending(models.TemplateWelcomeAdmin)
	store, mailer := newFakeStore(n), &fakeMailer{}
	d := NewDispatcher(store, mailer, nil, nil)

	d.Requeue(context.Background())
	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, models.NotificationSent, store.rows[n.ID].Status)
}

func TestOutboxDispatchToleratesMissingQueue(t *testing.T) {
	var o *Outbox
	o.Dispatch(context.Background(), pending(models.TemplateWelcomeAdmin))

	q := &fakeQueue{}
	n := pending(models.TemplateWelcomeAdmin)
	NewOutbox(q, nil).Dispatch(context.Background(), n, nil)
	assert.Equal(t, []uuid.UUID{n.ID}, q.enqueued)
}
