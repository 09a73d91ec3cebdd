package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/pkg/response"
)

// Action names a guarded operation in the permission table.
type Action string

const (
	ActionProfile Action = "auth.profile"

	ActionOrganizationsList    Action = "organizations.list"
	ActionOrganizationsCurrent Action = "organizations.current"
	ActionOrganizationsUpdate  Action = "organizations.update"
	ActionOrganizationsMembers Action = "organizations.members"

	ActionDashboardStats Action = "dashboard.stats"

	ActionHackathonsList   Action = "hackathons.list"
	ActionHackathonsGet    Action = "hackathons.get"
	ActionHackathonsCreate Action = "hackathons.create"
	ActionHackathonsUpdate Action = "hackathons.update"
	ActionHackathonsDelete Action = "hackathons.delete"

	ActionParticipantsList   Action = "participants.list"
	ActionParticipantsStatus Action = "participants.status"
	ActionParticipantsExport Action = "participants.export"

	ActionTeamsList   Action = "teams.list"
	ActionTeamsManage Action = "teams.manage"
	ActionTeamsScore  Action = "teams.score"
	ActionTeamsExport Action = "teams.export"

	ActionAssignmentsList   Action = "assignments.list"
	ActionAssignmentsManage Action = "assignments.manage"

	ActionInvitationsCreate Action = "invitations.create"
	ActionInvitationsList   Action = "invitations.list"
	ActionInvitationsCancel Action = "invitations.cancel"

	ActionNotificationsList   Action = "notifications.list"
	ActionNotificationsResend Action = "notifications.resend"

	ActionCertificatesManage   Action = "certificates.manage"
	ActionCertificatesDownload Action = "certificates.download"

	ActionUsersList   Action = "users.list"
	ActionUsersRole   Action = "users.role"
	ActionUsersDelete Action = "users.delete"
)

// MsgForbidden is returned when the role may not perform the action.
const MsgForbidden = "ليس لديك صلاحية للقيام بهذا الإجراء"

var (
	everyone  = roles(models.RoleParticipant, models.RoleJudge, models.RoleSupervisor, models.RoleAdmin, models.RoleMaster, models.RoleExpert)
	staff     = roles(models.RoleAdmin, models.RoleMaster, models.RoleSupervisor, models.RoleJudge, models.RoleExpert)
	managers  = roles(models.RoleAdmin, models.RoleMaster)
	reviewers = roles(models.RoleAdmin, models.RoleMaster, models.RoleSupervisor)
)

// permissions is the single source of truth for who may do what. Actions
// missing from the table are denied.
var permissions = map[Action]map[models.Role]struct{}{
	ActionProfile: everyone,

	ActionOrganizationsList:    roles(models.RoleAdmin),
	ActionOrganizationsCurrent: roles(models.RoleAdmin),
	ActionOrganizationsUpdate:  roles(models.RoleAdmin),
	ActionOrganizationsMembers: roles(models.RoleAdmin),

	ActionDashboardStats: staff,

	ActionHackathonsList:   staff,
	ActionHackathonsGet:    staff,
	ActionHackathonsCreate: roles(models.RoleAdmin),
	ActionHackathonsUpdate: managers,
	ActionHackathonsDelete: managers,

	ActionParticipantsList:   reviewers,
	ActionParticipantsStatus: reviewers,
	ActionParticipantsExport: reviewers,

	ActionTeamsList:   roles(models.RoleAdmin, models.RoleMaster, models.RoleSupervisor, models.RoleJudge),
	ActionTeamsManage: reviewers,
	ActionTeamsScore:  roles(models.RoleJudge),
	ActionTeamsExport: reviewers,

	ActionAssignmentsList:   managers,
	ActionAssignmentsManage: managers,

	ActionInvitationsCreate: managers,
	ActionInvitationsList:   managers,
	ActionInvitationsCancel: managers,

	ActionNotificationsList:   managers,
	ActionNotificationsResend: managers,

	ActionCertificatesManage:   managers,
	ActionCertificatesDownload: roles(models.RoleAdmin, models.RoleMaster, models.RoleSupervisor, models.RoleParticipant),

	ActionUsersList:   roles(models.RoleMaster),
	ActionUsersRole:   roles(models.RoleMaster),
	ActionUsersDelete: roles(models.RoleMaster),
}

func roles(rs ...models.Role) map[models.Role]struct{} {
	m := make(map[models.Role]struct{}, len(rs))
	for _, r := range rs {
		m[r] = struct{}{}
	}
	return m
}

// Allowed reports whether role may perform action.
func Allowed(action Action, role models.Role) bool {
	set, ok := permissions[action]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// Require returns a middleware that admits only roles allowed to perform
// action. It must run after JWT.
func Require(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if role == "" {
			response.Unauthorized(c, MsgUnauthenticated)
			c.Abort()
			return
		}
		if !Allowed(action, role) {
			response.Forbidden(c, MsgForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
