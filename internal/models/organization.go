package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant. Slug is unique and never changes after creation.
type Organization struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Plan           string    `json:"plan"`
	Status         string    `json:"status"`
	PrimaryColor   string    `json:"primary_color,omitempty"`
	SecondaryColor string    `json:"secondary_color,omitempty"`
	LogoURL        string    `json:"logo_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Organization defaults for self-registered tenants.
const (
	PlanFree           = "free"
	OrgStatusActive    = "active"
	OrgStatusSuspended = "suspended"
)

// OrganizationUser links a user to an organization.
type OrganizationUser struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	IsOwner        bool      `json:"is_owner"`
	CreatedAt      time.Time `json:"created_at"`
}
