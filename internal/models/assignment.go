package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AssignmentKind names a role-assignment table.
type AssignmentKind string

const (
	AssignmentSupervisor AssignmentKind = "supervisor"
	AssignmentJudge      AssignmentKind = "judge"
	AssignmentExpert     AssignmentKind = "expert"
)

// Table returns the assignment table for the kind. Only constant names are
// returned so the value is safe to interpolate into SQL.
func (k AssignmentKind) Table() string {
	switch k {
	case AssignmentSupervisor:
		return "supervisors"
	case AssignmentJudge:
		return "judges"
	case AssignmentExpert:
		return "experts"
	}
	return ""
}

// Role returns the user role granted by the assignment.
func (k AssignmentKind) Role() Role {
	return Role(k)
}

// AssignmentKindForRole maps a user role to its assignment table, if any.
func AssignmentKindForRole(r Role) (AssignmentKind, bool) {
	switch r {
	case RoleSupervisor:
		return AssignmentSupervisor, true
	case RoleJudge:
		return AssignmentJudge, true
	case RoleExpert:
		return AssignmentExpert, true
	}
	return "", false
}

// Assignment links a user to a hackathon (or the whole organization when
// HackathonID is nil) in a supervisor, judge or expert capacity.
type Assignment struct {
	ID             uuid.UUID       `json:"id"`
	Kind           AssignmentKind  `json:"kind"`
	UserID         uuid.UUID       `json:"user_id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	HackathonID    *uuid.UUID      `json:"hackathon_id,omitempty"`
	IsActive       bool            `json:"is_active"`
	Permissions    json.RawMessage `json:"permissions,omitempty"`
	UserEmail      string          `json:"user_email,omitempty"`
	UserFullName   string          `json:"user_full_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
