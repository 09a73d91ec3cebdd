package models

import (
	"time"

	"github.com/google/uuid"
)

// HackathonStatus is the lifecycle state of a hackathon.
type HackathonStatus string

const (
	HackathonDraft     HackathonStatus = "draft"
	HackathonPublished HackathonStatus = "published"
	HackathonOpen      HackathonStatus = "open"
	HackathonClosed    HackathonStatus = "closed"
	HackathonCompleted HackathonStatus = "completed"
)

// Valid reports whether s is a known status.
func (s HackathonStatus) Valid() bool {
	switch s {
	case HackathonDraft, HackathonPublished, HackathonOpen, HackathonClosed, HackathonCompleted:
		return true
	}
	return false
}

// FormField is one admin-defined field of the registration form.
type FormField struct {
	ID       string   `json:"id" binding:"required"`    // key in participant additional_info
	Label    string   `json:"label" binding:"required"` // display label
	Type     string   `json:"type" binding:"required,oneof=text email number textarea select url"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"` // for select
}

// Hackathon is an event owned by exactly one organization.
type Hackathon struct {
	ID                   uuid.UUID       `json:"id"`
	OrganizationID       uuid.UUID       `json:"organization_id"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Status               HackathonStatus `json:"status"`
	StartsAt             time.Time       `json:"starts_at"`
	EndsAt               *time.Time      `json:"ends_at,omitempty"`
	RegistrationDeadline *time.Time      `json:"registration_deadline,omitempty"`
	MaxParticipants      int             `json:"max_participants"`
	MaxTeamSize          int             `json:"max_team_size"`
	CoverImageURL        string          `json:"cover_image_url,omitempty"`
	CustomFields         []FormField     `json:"custom_fields"`
	CreatedBy            *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// AcceptsRegistrations reports whether participants may register at now.
func (h *Hackathon) AcceptsRegistrations(now time.Time) bool {
	if h.Status != HackathonOpen {
		return false
	}
	return h.RegistrationDeadline == nil || now.Before(*h.RegistrationDeadline)
}
