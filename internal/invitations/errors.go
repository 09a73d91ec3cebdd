package invitations

import "errors"

var (
	// ErrNotFound is returned for an unknown token or an out-of-scope id.
	ErrNotFound = errors.New("invitation not found")
	// ErrAlreadyUsed is returned once an invitation has been accepted.
	ErrAlreadyUsed = errors.New("invitation already used")
	// ErrExpired is returned for an invitation past its expiry.
	ErrExpired = errors.New("invitation expired")
	// ErrCancelled is returned for a cancelled invitation.
	ErrCancelled = errors.New("invitation cancelled")

	ErrWeakPassword         = errors.New("password too short")
	ErrPasswordMismatch     = errors.New("password confirmation does not match")
	ErrWrongPassword        = errors.New("existing account password does not match")
	ErrPrivilegedAccount    = errors.New("email belongs to an admin account")
	ErrRoleConflict         = errors.New("email belongs to an account with another role")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrHackathonNotFound    = errors.New("hackathon not in organization")
)
