package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStatus is the review state of a registration.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantApproved ParticipantStatus = "approved"
	ParticipantRejected ParticipantStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ParticipantStatus) Valid() bool {
	return s == ParticipantPending || s == ParticipantApproved || s == ParticipantRejected
}

// Participant is a registration into a hackathon.
type Participant struct {
	ID             uuid.UUID         `json:"id"`
	HackathonID    uuid.UUID         `json:"hackathon_id"`
	UserID         *uuid.UUID        `json:"user_id,omitempty"`
	FullName       string            `json:"full_name"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone,omitempty"`
	Status         ParticipantStatus `json:"status"`
	TeamID         *uuid.UUID        `json:"team_id,omitempty"`
	AdditionalInfo map[string]string `json:"additional_info"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
