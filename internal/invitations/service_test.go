package invitations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/auth"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/response"
)

// memStore mirrors the repository's state transitions in memory.
type memStore struct {
	mu          sync.Mutex
	byToken     map[string]*models.Invitation
	users       map[string]*models.User
	assignments []models.Assignment
	notices     []*models.Notification
	expired     int
}

func newMemStore() *memStore {
	return &memStore{byToken: map[string]*models.Invitation{}, users: map[string]*models.User{}}
}

func (m *memStore) Create(_ context.Context, inv *models.Invitation, notice NoticeFunc) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = uuid.New()
	inv.Status = models.InvitationPending
	inv.OrganizationName = "Code Club"
	m.byToken[inv.Token] = inv
	n := notice(inv)
	n.ID = uuid.New()
	m.notices = append(m.notices, n)
	return n, nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memStore) MarkExpired(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.byToken {
		if inv.ID == id && inv.Status == models.InvitationPending {
			inv.Status = models.InvitationExpired
			m.expired++
		}
	}
	return nil
}

func (m *memStore) ExpireStale(context.Context) (int64, error) { return 0, nil }

func (m *memStore) Accept(_ context.Context, inv *models.Invitation, in AcceptInput) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.byToken[inv.Token]
	if stored.Status != models.InvitationPending {
		return nil, ErrAlreadyUsed
	}
	role := inv.Kind.Assignment().Role()
	u, ok := m.users[inv.Email]
	if ok {
		if err := upgradable(u, role, in.Password); err != nil {
			return nil, err
		}
		u.Role = role
	} else {
		u = &models.User{ID: uuid.New(), Email: inv.Email, Password: in.PasswordHash, FullName: inv.Name, Role: role}
		m.users[inv.Email] = u
	}
	stored.Status = models.InvitationAccepted
	m.assignments = append(m.assignments, models.Assignment{Kind: inv.Kind.Assignment(), UserID: u.ID, OrganizationID: inv.OrganizationID})
	return u, nil
}

func (m *memStore) Cancel(_ context.Context, _ tenant.Scope, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.byToken {
		if inv.ID == id {
			if inv.Status != models.InvitationPending {
				return ErrAlreadyUsed
			}
			inv.Status = models.InvitationCancelled
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) List(context.Context, tenant.Scope, ListFilter) ([]*models.Invitation, error) {
	return nil, nil
}

func (m *memStore) only() *models.Invitation {
	for _, inv := range m.byToken {
		return inv
	}
	return nil
}

func TestLookupLazilyExpires(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, time.Hour, "http://app", nil)
	inv, _, err := svc.Create(context.Background(), CreateInput{Kind: models.InvitationJudge, OrganizationID: uuid.New(), Email: "j@example.com"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Lookup(context.Background(), inv.Token)

	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, models.InvitationExpired, store.only().Status)
	assert.Equal(t, 1, store.expired)

	_, err = svc.Lookup(context.Background(), inv.Token)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, 1, store.expired)
}

func TestLookupTerminalStates(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, time.Hour, "http://app", nil)
	for status, want := range map[models.InvitationStatus]error{
		models.InvitationAccepted:  ErrAlreadyUsed,
		models.InvitationCancelled: ErrCancelled,
		models.InvitationExpired:   ErrExpired,
	} {
		token := string(status)
		store.byToken[token] = &models.Invitation{ID: uuid.New(), Token: token, Status: status, ExpiresAt: time.Now().Add(time.Hour)}
		_, err := svc.Lookup(context.Background(), token)
		assert.ErrorIs(t, err, want)
	}
	_, err := svc.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBuildsInvitationEmail(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, 7*24*time.Hour, "http://app", nil)
	org := uuid.New()

	inv, n, err := svc.Create(context.Background(), CreateInput{
		Kind: models.InvitationSupervisor, OrganizationID: org, Email: " Sup@Example.com ", Name: "Sup",
	})

	require.NoError(t, err)
	assert.Equal(t, "sup@example.com", inv.Email)
	assert.Len(t, inv.Token, 43)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), inv.ExpiresAt, time.Minute)
	assert.Equal(t, models.TemplateSupervisorInvitation, n.Template)
	assert.Equal(t, "http://app/invitations/"+inv.Token, n.Variables["accept_url"])
	assert.Equal(t, "Code Club", n.Variables["organization_name"])
	require.NotNil(t, n.OrganizationID)
	assert.Equal(t, org, *n.OrganizationID)
}

func TestAcceptValidatesPasswords(t *testing.T) {
	svc := NewService(newMemStore(), time.Hour, "", nil)
	_, _, err := svc.Accept(context.Background(), "t", AcceptRequest{Password: "short", ConfirmPassword: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)
	_, _, err = svc.Accept(context.Background(), "t", AcceptRequest{Password: "password1", ConfirmPassword: "password2"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

// Supervisor invitation end to end: an admin invites, the invitee reads
// and accepts, and the link cannot be used again.
func TestSupervisorInvitationScenario(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	svc := NewService(store, 7*24*time.Hour, "http://app", nil)
	jwtSvc := auth.NewJWTService("secret", 168)
	h := NewHandler(svc, auth.NewSessions(jwtSvc, false), nil, nil)
	org := uuid.New()

	r := gin.New()
	admin := r.Group("/invitations", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uuid.New())
		c.Set(middleware.ContextUserRole, models.RoleAdmin)
		tenant.WithScope(c, tenant.Organization(org))
	})
	admin.POST("", h.Create)
	admin.DELETE("/:id", h.Cancel)
	r.GET("/invitations/token/:token", h.Get)
	r.POST("/invitations/token/:token/accept", h.Accept)

	call := func(method, path string, body any) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := call(http.MethodPost, "/invitations", CreateRequest{Kind: "supervisor", Email: "sup@example.com", Name: "Sup"})
	require.Equal(t, http.StatusCreated, w.Code)
	inv := store.only()
	require.NotNil(t, inv)
	assert.Equal(t, org, inv.OrganizationID)
	require.Len(t, store.notices, 1)

	w = call(http.MethodGet, "/invitations/token/"+inv.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
	assert.NotContains(t, w.Body.String(), inv.Token)

	w = call(http.MethodPost, "/invitations/token/"+inv.Token+"/accept", AcceptBody{Password: "password1", ConfirmPassword: "password1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleSupervisor, store.users["sup@example.com"].Role)
	require.Len(t, store.assignments, 1)
	assert.Equal(t, models.AssignmentSupervisor, store.assignments[0].Kind)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	w = call(http.MethodGet, "/invitations/token/"+inv.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, MsgAlreadyUsed, body.Error)

	w = call(http.MethodPost, "/invitations/token/"+inv.Token+"/accept", AcceptBody{Password: "password1", ConfirmPassword: "password1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(http.MethodDelete, "/invitations/"+inv.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRequiresOrganizationForMaster(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(newMemStore(), time.Hour, "", nil), nil, nil, nil)
	r := gin.New()
	r.POST("/invitations", func(c *gin.Context) { tenant.WithScope(c, tenant.Unscoped()) }, h.Create)

	raw, _ := json.Marshal(CreateRequest{Kind: "judge", Email: "j@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/invitations", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), MsgOrganizationReq)
}

func TestUnknownTokenIsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(newMemStore(), time.Hour, "", nil), nil, nil, nil)
	r := gin.New()
	r.GET("/invitations/token/:token", h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invitations/token/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), MsgNotFound)
}
