package tenant

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/models"
)

// Scope is the set of organizations and hackathons a request may see.
// Exactly one of All, OrganizationID or Assignment is in effect; the zero
// Scope sees nothing.
type Scope struct {
	// All is set for the platform master.
	All bool
	// OrganizationID is the admin's active organization.
	OrganizationID uuid.UUID
	// UserID and Assignment restrict supervisors, judges and experts to the
	// hackathons they are assigned to.
	UserID     uuid.UUID
	Assignment models.AssignmentKind
}

// Unscoped is the master scope.
func Unscoped() Scope { return Scope{All: true} }

// Organization scopes to a single organization.
func Organization(id uuid.UUID) Scope { return Scope{OrganizationID: id} }

// Assigned scopes to a user's role assignments.
func Assigned(userID uuid.UUID, kind models.AssignmentKind) Scope {
	return Scope{UserID: userID, Assignment: kind}
}

// IsOrganization reports whether the scope is an admin's organization.
func (s Scope) IsOrganization() bool {
	return !s.All && s.OrganizationID != uuid.Nil
}

// ActiveOrganization returns the admin's active organization, if any.
func (s Scope) ActiveOrganization() (uuid.UUID, bool) {
	return s.OrganizationID, s.IsOrganization()
}

// HackathonFilter returns the predicate restricting rows joined to
// hackathons under alias, with its arguments appended to args. Every list,
// count and aggregate over hackathon-owned rows must include it.
func (s Scope) HackathonFilter(alias string, args []any) (string, []any) {
	switch {
	case s.All:
		return "TRUE", args
	case s.IsOrganization():
		args = append(args, s.OrganizationID)
		return fmt.Sprintf("%s.organization_id = $%d", alias, len(args)), args
	case s.Assignment.Table() != "":
		args = append(args, s.UserID)
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM %[1]s sa WHERE sa.user_id = $%[2]d AND sa.is_active
			AND sa.organization_id = %[3]s.organization_id
			AND (sa.hackathon_id IS NULL OR sa.hackathon_id = %[3]s.id))`, s.Assignment.Table(), len(args), alias), args
	}
	return "FALSE", args
}

// OrganizationFilter is HackathonFilter for rows that carry an
// organization_id column themselves (invitations, notifications,
// assignments). column is the qualified column name.
func (s Scope) OrganizationFilter(column string, args []any) (string, []any) {
	switch {
	case s.All:
		return "TRUE", args
	case s.IsOrganization():
		args = append(args, s.OrganizationID)
		return fmt.Sprintf("%s = $%d", column, len(args)), args
	case s.Assignment.Table() != "":
		args = append(args, s.UserID)
		return fmt.Sprintf("%s IN (SELECT sa.organization_id FROM %s sa WHERE sa.user_id = $%d AND sa.is_active)",
			column, s.Assignment.Table(), len(args)), args
	}
	return "FALSE", args
}

// CanAccess reports whether a row owned by organizationID is visible to an
// organization or master scope. Assignment scopes are narrower than an
// organization and must be checked with HackathonFilter in SQL instead.
func (s Scope) CanAccess(organizationID uuid.UUID) bool {
	if s.All {
		return true
	}
	return s.IsOrganization() && s.OrganizationID == organizationID
}
