package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleJudge       Role = "judge"
	RoleSupervisor  Role = "supervisor"
	RoleAdmin       Role = "admin"
	RoleMaster      Role = "master"
	RoleExpert      Role = "expert"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleJudge, RoleSupervisor, RoleAdmin, RoleMaster, RoleExpert:
		return true
	}
	return false
}

// Privileged reports whether r manages an organization or the platform.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleMaster
}

// User represents a platform user.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Password        string    `json:"-"`
	FullName        string    `json:"full_name"`
	Role            Role      `json:"role"`
	Phone           string    `json:"phone,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	Role            Role      `json:"role"`
	Phone           string    `json:"phone,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName,
		Role:            u.Role,
		Phone:           u.Phone,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
	}
}
