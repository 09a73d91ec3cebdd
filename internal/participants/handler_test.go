package participants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/export"
	"github.com/hackhub/backend/pkg/response"
)

type fakeStore struct {
	registerErr error
	registered  []*models.Participant
	rows        map[uuid.UUID]*models.Participant
}

func (f *fakeStore) Register(_ context.Context, p *models.Participant) (*models.Notification, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	p.ID = uuid.New()
	p.Status = models.ParticipantPending
	f.registered = append(f.registered, p)
	return &models.Notification{ID: uuid.New(), Template: models.TemplateRegistrationReceived}, nil
}

func (f *fakeStore) List(_ context.Context, _ tenant.Scope, fl ListFilter) ([]*models.Participant, error) {
	list := []*models.Participant{}
	for _, p := range f.rows {
		if fl.HackathonID == nil || p.HackathonID == *fl.HackathonID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (f *fakeStore) Get(_ context.Context, _ tenant.Scope, id uuid.UUID) (*models.Participant, error) {
	if p, ok := f.rows[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) SetStatus(_ context.Context, _ tenant.Scope, id uuid.UUID, s models.ParticipantStatus) (*models.Participant, *models.Notification, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	p.Status = s
	return p, nil, nil
}

type fakeHackathons map[uuid.UUID]*models.Hackathon

func (f fakeHackathons) Get(_ context.Context, _ tenant.Scope, id uuid.UUID) (*models.Hackathon, error) {
	if h, ok := f[id]; ok {
		return h, nil
	}
	return nil, hackathons.ErrNotFound
}

func newRouter(store Store, hk HackathonGetter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, hk, nil, nil)
	r := gin.New()
	r.POST("/hackathons/:id/register", h.Register)
	g := r.Group("", func(c *gin.Context) { tenant.WithScope(c, tenant.Organization(uuid.New())) })
	g.GET("/hackathons/:id/participants", h.ListForHackathon)
	g.GET("/hackathons/:id/participants/export", h.Export)
	g.PATCH("/participants/:id/status", h.UpdateStatus)
	return r
}

func send(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var b response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b.Error
}

func TestRegisterNormalizesEmail(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store, fakeHackathons{})

	w := send(r, http.MethodPost, "/hackathons/"+uuid.NewString()+"/register",
		RegisterRequest{FullName: "Sara", Email: "Sara@Example.COM"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.registered, 1)
	assert.Equal(t, "sara@example.com", store.registered[0].Email)
}

func TestRegisterErrorsMapToMessages(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{ErrRegistrationClosed, http.StatusBadRequest, MsgRegistrationClosed},
		{ErrFull, http.StatusBadRequest, MsgFull},
		{ErrAlreadyRegistered, http.StatusBadRequest, MsgAlreadyRegistered},
		{hackathons.ErrNotFound, http.StatusNotFound, hackathons.MsgNotFound},
		{&FieldError{Field: "u", Label: "الجامعة", Issue: "required"}, http.StatusBadRequest, `الحقل "الجامعة" مطلوب`},
	}
	for _, tc := range cases {
		r := newRouter(&fakeStore{registerErr: tc.err}, fakeHackathons{})
		w := send(r, http.MethodPost, "/hackathons/"+uuid.NewString()+"/register",
			RegisterRequest{FullName: "Sara", Email: "sara@example.com"})
		assert.Equal(t, tc.code, w.Code)
		assert.Equal(t, tc.msg, errorOf(t, w))
	}
}

func TestUpdateStatusValidates(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{rows: map[uuid.UUID]*models.Participant{id: {ID: id, Status: models.ParticipantPending}}}
	r := newRouter(store, fakeHackathons{})

	w := send(r, http.MethodPatch, "/participants/"+id.String()+"/status", StatusRequest{Status: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPatch, "/participants/"+id.String()+"/status", StatusRequest{Status: "approved"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ParticipantApproved, store.rows[id].Status)

	w = send(r, http.MethodPatch, "/participants/"+uuid.NewString()+"/status", StatusRequest{Status: "approved"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportForeignHackathonIsNotFound(t *testing.T) {
	r := newRouter(&fakeStore{}, fakeHackathons{})
	w := send(r, http.MethodGet, "/hackathons/"+uuid.NewString()+"/participants/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportWorkbook(t *testing.T) {
	hk := &models.Hackathon{ID: uuid.New(), CustomFields: []models.FormField{{ID: "university", Label: "الجامعة", Type: "text"}}}
	pid := uuid.New()
	store := &fakeStore{rows: map[uuid.UUID]*models.Participant{
		pid: {ID: pid, HackathonID: hk.ID, FullName: "Sara", Email: "sara@example.com", AdditionalInfo: map[string]string{"university": "KSU"}},
	}}
	r := newRouter(store, fakeHackathons{hk.ID: hk})

	w := send(r, http.MethodGet, "/hackathons/"+hk.ID.String()+"/participants/export", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

type sessionVerifier map[string]*middleware.Principal

func (v sessionVerifier) Verify(token string) (*middleware.Principal, error) {
	if p, ok := v[token]; ok {
		return p, nil
	}
	return nil, errors.New("invalid token")
}

func newSessionRouter(store Store, v middleware.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, fakeHackathons{}, nil, nil)
	r := gin.New()
	r.POST("/hackathons/:id/register", middleware.OptionalJWT(v, false), h.Register)
	return r
}

func TestRegisterLinksSignedInUser(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{}
	r := newSessionRouter(store, sessionVerifier{"good": {UserID: userID, Role: models.RoleParticipant}})

	raw, _ := json.Marshal(RegisterRequest{FullName: "Sara", Email: "sara@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/hackathons/"+uuid.NewString()+"/register", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: "good"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.registered, 1)
	require.NotNil(t, store.registered[0].UserID)
	assert.Equal(t, userID, *store.registered[0].UserID)
}

func TestRegisterAnonymousLeavesUserUnset(t *testing.T) {
	store := &fakeStore{}
	r := newSessionRouter(store, sessionVerifier{})

	w := send(r, http.MethodPost, "/hackathons/"+uuid.NewString()+"/register",
		RegisterRequest{FullName: "Sara", Email: "sara@example.com"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.registered, 1)
	assert.Nil(t, store.registered[0].UserID)
}
