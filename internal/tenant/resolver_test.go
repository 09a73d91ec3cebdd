package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
)

type membership struct {
	org     uuid.UUID
	owner   bool
	created time.Time
}

type fakeMemberships struct {
	byUser map[uuid.UUID][]membership
	err    error
}

func (f *fakeMemberships) IsMember(_ context.Context, userID, orgID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, m := range f.byUser[userID] {
		if m.org == orgID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMemberships) DefaultOrganization(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	var best *membership
	for i, m := range f.byUser[userID] {
		m := m
		if best == nil || (m.owner && !best.owner) || (m.owner == best.owner && m.created.Before(best.created)) {
			best = &f.byUser[userID][i]
		}
	}
	if best == nil {
		return uuid.Nil, ErrNoOrganization
	}
	return best.org, nil
}

func TestResolveAdminDefaultsToOwnedOrganization(t *testing.T) {
	user, owned, joined := uuid.New(), uuid.New(), uuid.New()
	store := &fakeMemberships{byUser: map[uuid.UUID][]membership{user: {
		{org: joined, created: time.Now().Add(-48 * time.Hour)},
		{org: owned, owner: true, created: time.Now()},
	}}}

	scope, err := NewResolver(store).Resolve(context.Background(), user, models.RoleAdmin, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Organization(owned), scope)
}

func TestResolveAdminHonorsHeaderMembership(t *testing.T) {
	user, a, b := uuid.New(), uuid.New(), uuid.New()
	store := &fakeMemberships{byUser: map[uuid.UUID][]membership{user: {{org: a, owner: true}, {org: b}}}}

	scope, err := NewResolver(store).Resolve(context.Background(), user, models.RoleAdmin, &a, b.String())
	require.NoError(t, err)
	assert.Equal(t, b, scope.OrganizationID)
}

func TestResolveAdminRejectsForeignHeader(t *testing.T) {
	user, a := uuid.New(), uuid.New()
	store := &fakeMemberships{byUser: map[uuid.UUID][]membership{user: {{org: a}}}}

	_, err := NewResolver(store).Resolve(context.Background(), user, models.RoleAdmin, nil, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = NewResolver(store).Resolve(context.Background(), user, models.RoleAdmin, nil, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidOrganization)
}

func TestResolveAdminIgnoresStaleClaim(t *testing.T) {
	user, current, removed := uuid.New(), uuid.New(), uuid.New()
	store := &fakeMemberships{byUser: map[uuid.UUID][]membership{user: {{org: current}}}}

	scope, err := NewResolver(store).Resolve(context.Background(), user, models.RoleAdmin, &removed, "")
	require.NoError(t, err)
	assert.Equal(t, current, scope.OrganizationID)
}

func TestResolveAdminWithoutMembership(t *testing.T) {
	_, err := NewResolver(&fakeMemberships{}).Resolve(context.Background(), uuid.New(), models.RoleAdmin, nil, "")
	assert.ErrorIs(t, err, ErrNoOrganization)
}

func TestResolveOtherRoles(t *testing.T) {
	r := NewResolver(&fakeMemberships{err: errors.New("must not be called")})
	user := uuid.New()

	s, err := r.Resolve(context.Background(), user, models.RoleMaster, nil, "")
	require.NoError(t, err)
	assert.True(t, s.All)

	s, err = r.Resolve(context.Background(), user, models.RoleSupervisor, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Assigned(user, models.AssignmentSupervisor), s)

	s, err = r.Resolve(context.Background(), user, models.RoleParticipant, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Scope{}, s)
}

func newScopedRouter(store MembershipStore, role models.Role, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, role)
		c.Next()
	})
	r.Use(Middleware(NewResolver(store), zap.NewNop()))
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"organization_id": FromContext(c).OrganizationID})
	})
	return r
}

func TestMiddlewareAdminWithoutOrganizationIs400(t *testing.T) {
	r := newScopedRouter(&fakeMemberships{}, models.RoleAdmin, uuid.New())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, MsgNoOrganization, body.Error)
}

func TestMiddlewareForeignHeaderIs403(t *testing.T) {
	user, org := uuid.New(), uuid.New()
	store := &fakeMemberships{byUser: map[uuid.UUID][]membership{user: {{org: org}}}}
	r := newScopedRouter(store, models.RoleAdmin, user)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set(HeaderOrganization, uuid.New().String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMiddlewareStoresScope(t *testing.T) {
	user, org := uuid.New(), uuid.New()
	store := &fakeMemberships{byUser: map[uuid.UUID][]membership{user: {{org: org, owner: true}}}}
	r := newScopedRouter(store, models.RoleAdmin, user)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), org.String())
}
