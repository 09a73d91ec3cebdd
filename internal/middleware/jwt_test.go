package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
)

type fakeVerifier map[string]*Principal

func (f fakeVerifier) Verify(token string) (*Principal, error) {
	p, ok := f[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return p, nil
}

func newAuthRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWT(v, false), func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role": Role(c)})
	})
	return r
}

func TestJWTAcceptsCookie(t *testing.T) {
	id := uuid.New()
	r := newAuthRouter(fakeVerifier{"good": {UserID: id, Role: models.RoleAdmin}})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "good"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
}

func TestJWTFallsBackToBearer(t *testing.T) {
	r := newAuthRouter(fakeVerifier{"good": {UserID: uuid.New(), Role: models.RoleJudge}})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTMissingToken(t *testing.T) {
	w := httptest.NewRecorder()
	newAuthRouter(fakeVerifier{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestJWTInvalidTokenClearsCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	w := httptest.NewRecorder()
	newAuthRouter(fakeVerifier{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	setCookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, CookieName+"=;")
	assert.Contains(t, setCookie, "Max-Age=0")
	assert.Contains(t, setCookie, "HttpOnly")
}

func TestClaimedOrganization(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ClaimedOrganization(c))

	org := uuid.New()
	c.Set(ContextClaimedOrganization, org)
	require.NotNil(t, ClaimedOrganization(c))
	assert.Equal(t, org, *ClaimedOrganization(c))
}

func newOptionalRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", OptionalJWT(v, false), func(c *gin.Context) {
		id, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "user_id": id})
	})
	return r
}

func TestOptionalJWTSetsUserForValidToken(t *testing.T) {
	id := uuid.New()
	r := newOptionalRouter(fakeVerifier{"good": {UserID: id, Role: models.RoleParticipant}})

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), id.String())
}

func TestOptionalJWTPassesAnonymousRequests(t *testing.T) {
	w := httptest.NewRecorder()
	newOptionalRouter(fakeVerifier{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestOptionalJWTIgnoresInvalidTokenAndClearsCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	w := httptest.NewRecorder()
	newOptionalRouter(fakeVerifier{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}
