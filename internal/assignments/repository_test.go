package assignments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
)

func TestInsertUsesKindTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	user, org, now := uuid.New(), uuid.New(), time.Now()
	mock.ExpectQuery(`INSERT INTO supervisors`).
		WithArgs(user, org, pgxmock.AnyArg(), []byte(`{}`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_active", "created_at"}).AddRow(uuid.New(), true, now))

	a := &models.Assignment{Kind: models.AssignmentSupervisor, UserID: user, OrganizationID: org}
	require.NoError(t, Insert(context.Background(), mock, a))
	assert.True(t, a.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUnknownKind(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = Insert(context.Background(), mock, &models.Assignment{Kind: "mentor"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestListScopedToOrganization(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	org := uuid.New()
	mock.ExpectQuery(`FROM judges a INNER JOIN users u ON u.id = a.user_id\s+WHERE a.organization_id = \$1 AND a.is_active`).
		WithArgs(org).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	list, err := NewRepository(mock).List(context.Background(), tenant.Organization(org), models.AssignmentJudge, ListFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateForeignAssignment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	org, id := uuid.New(), uuid.New()
	mock.ExpectExec(`UPDATE experts a SET is_active = FALSE WHERE a.id = \$1 AND a.organization_id = \$2`).
		WithArgs(id, org).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewRepository(mock).Deactivate(context.Background(), tenant.Organization(org), models.AssignmentExpert, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerRejectsUnknownKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/assignments/:kind", NewHandler(NewRepository(nil), nil).List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assignments/mentors", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
