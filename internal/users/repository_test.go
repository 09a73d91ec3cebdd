package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
)

var userCols = []string{"id", "email", "password_hash", "full_name", "role", "phone", "profile_image_url", "created_at", "updated_at"}

func expectOwnerLookup(mock pgxmock.PgxPoolIface, user uuid.UUID, orgs ...uuid.UUID) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT TRUE FROM users WHERE id = \$1 FOR UPDATE`).WithArgs(user).
		WillReturnRows(pgxmock.NewRows([]string{"bool"}).AddRow(true))
	rows := pgxmock.NewRows([]string{"organization_id"})
	for _, o := range orgs {
		rows.AddRow(o)
	}
	mock.ExpectQuery(`(?s)FROM organization_users ou.*NOT EXISTS`).WithArgs(user).WillReturnRows(rows)
}

func TestDeleteLastOwnerBlocked(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	user, org := uuid.New(), uuid.New()
	expectOwnerLookup(mock, user, org)
	mock.ExpectRollback()

	_, err = NewRepository(mock).Delete(context.Background(), user, false)
	require.ErrorIs(t, err, ErrLastOwner)
	var lo *LastOwnerError
	require.True(t, errors.As(err, &lo))
	assert.Equal(t, []uuid.UUID{org}, lo.Organizations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteLastOwnerCascades(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	user, org := uuid.New(), uuid.New()
	expectOwnerLookup(mock, user, org)
	mock.ExpectExec(`DELETE FROM organizations WHERE id = ANY\(\$1\)`).WithArgs([]uuid.UUID{org}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(user).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	orgs, err := NewRepository(mock).Delete(context.Background(), user, true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{org}, orgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserWithoutOwnership(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	user := uuid.New()
	expectOwnerLookup(mock, user)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(user).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	orgs, err := NewRepository(mock).Delete(context.Background(), user, false)
	require.NoError(t, err)
	assert.Empty(t, orgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	user := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT TRUE FROM users`).WithArgs(user).WillReturnRows(pgxmock.NewRows([]string{"bool"}))
	mock.ExpectRollback()

	_, err = NewRepository(mock).Delete(context.Background(), user, true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`UPDATE users SET role = \$2`).WithArgs(id, "judge").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(id, "j@example.com", "hash", "J", "judge", "", "", now, now))

	u, err := NewRepository(mock).SetRole(context.Background(), id, models.RoleJudge)
	require.NoError(t, err)
	assert.Equal(t, models.RoleJudge, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltersByRoleAndSearch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)WHERE TRUE AND role = \$1 AND \(email ILIKE \$2 OR full_name ILIKE \$2\).*LIMIT \$3 OFFSET \$4`).
		WithArgs("admin", "%acme%", 50, 0).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(uuid.New(), "a@acme.com", "hash", "A", "admin", "", "", now, now))

	list, err := NewRepository(mock).List(context.Background(), ListFilter{Role: models.RoleAdmin, Search: "acme"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a@acme.com", list[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
