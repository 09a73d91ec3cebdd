package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/hackhub/backend/internal/models"
)

func TestAllowedTable(t *testing.T) {
	cases := []struct {
		action Action
		role   models.Role
		want   bool
	}{
		{ActionHackathonsList, models.RoleAdmin, true},
		{ActionHackathonsList, models.RoleJudge, true},
		{ActionHackathonsList, models.RoleParticipant, false},
		{ActionHackathonsCreate, models.RoleMaster, false},
		{ActionInvitationsCreate, models.RoleAdmin, true},
		{ActionInvitationsCreate, models.RoleSupervisor, false},
		{ActionTeamsScore, models.RoleJudge, true},
		{ActionTeamsScore, models.RoleAdmin, false},
		{ActionUsersDelete, models.RoleMaster, true},
		{ActionUsersDelete, models.RoleAdmin, false},
		{Action("made.up"), models.RoleMaster, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Allowed(tc.action, tc.role), "%s/%s", tc.action, tc.role)
	}
}

func serveWithRole(role models.Role, action Action) int {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if role != "" {
			c.Set(ContextUserRole, role)
		}
		c.Next()
	})
	r.GET("/x", Require(action), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequire(t *testing.T) {
	assert.Equal(t, http.StatusOK, serveWithRole(models.RoleMaster, ActionUsersList))
	assert.Equal(t, http.StatusForbidden, serveWithRole(models.RoleAdmin, ActionUsersList))
	assert.Equal(t, http.StatusUnauthorized, serveWithRole("", ActionUsersList))
}
