package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
)

func TestInsertFillsIDAndStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, now := uuid.New(), time.Now()
	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(pgxmock.AnyArg(), models.TemplateWelcomeAdmin, "a@example.com", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "created_at"}).AddRow(id, models.NotificationPending, now))

	n := New(models.TemplateWelcomeAdmin, "a@example.com", map[string]string{"organization_name": "Org"}, nil)
	require.NoError(t, Insert(context.Background(), mock, n))
	assert.Equal(t, id, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRejectsUnknownTemplate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = Insert(context.Background(), mock, &models.Notification{Template: "unknown"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesOrganizationScope(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	org := uuid.New()
	mock.ExpectQuery(`FROM notifications n WHERE n.organization_id = \$1 AND n.status = \$2`).
		WithArgs(org, models.NotificationFailed, 50).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	list, err := NewRepository(mock).List(context.Background(), tenant.Organization(org), ListFilter{Status: models.NotificationFailed})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}
