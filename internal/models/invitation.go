package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the state of an invitation. Every state other than
// pending is terminal.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// InvitationKind is the role an invitation grants.
type InvitationKind string

const (
	InvitationSupervisor InvitationKind = "supervisor"
	InvitationJudge      InvitationKind = "judge"
)

// Valid reports whether k is a known kind.
func (k InvitationKind) Valid() bool {
	return k == InvitationSupervisor || k == InvitationJudge
}

// Assignment returns the assignment kind created on acceptance.
func (k InvitationKind) Assignment() AssignmentKind {
	return AssignmentKind(k)
}

// Invitation is a single-use, time-limited token that turns into a user plus
// a role assignment.
type Invitation struct {
	ID               uuid.UUID        `json:"id"`
	Kind             InvitationKind   `json:"kind"`
	OrganizationID   uuid.UUID        `json:"organization_id"`
	OrganizationName string           `json:"organization_name,omitempty"`
	HackathonID      *uuid.UUID       `json:"hackathon_id,omitempty"`
	HackathonTitle   string           `json:"hackathon_title,omitempty"`
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	Token            string           `json:"-"`
	Status           InvitationStatus `json:"status"`
	Permissions      json.RawMessage  `json:"permissions,omitempty"`
	InvitedBy        *uuid.UUID       `json:"invited_by,omitempty"`
	ExpiresAt        time.Time        `json:"expires_at"`
	AcceptedAt       *time.Time       `json:"accepted_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// LapsedAt reports whether a pending invitation is past its expiry at now.
func (i *Invitation) LapsedAt(now time.Time) bool {
	return i.Status == InvitationPending && !now.Before(i.ExpiresAt)
}
