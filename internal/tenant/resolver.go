package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/models"
)

var (
	// ErrNoOrganization means an admin has no organization membership.
	ErrNoOrganization = errors.New("no organization membership")
	// ErrNotMember means the requested organization is not one of the
	// admin's memberships.
	ErrNotMember = errors.New("not a member of organization")
	// ErrInvalidOrganization means the requested organization id is malformed.
	ErrInvalidOrganization = errors.New("invalid organization id")
)

// MembershipStore answers organization membership questions.
type MembershipStore interface {
	IsMember(ctx context.Context, userID, organizationID uuid.UUID) (bool, error)
	// DefaultOrganization returns the owned membership first, then the
	// oldest. It returns ErrNoOrganization when there is none.
	DefaultOrganization(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Resolver turns an authenticated identity into a Scope.
type Resolver struct {
	store MembershipStore
}

// NewResolver creates a resolver.
func NewResolver(store MembershipStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve picks the scope for a request. For admins the active organization
// is, in order: the explicitly requested one (must be a membership), the
// one claimed in the token if still a membership, the default membership.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, role models.Role, claimed *uuid.UUID, requested string) (Scope, error) {
	switch role {
	case models.RoleMaster:
		return Unscoped(), nil
	case models.RoleAdmin:
		return r.resolveAdmin(ctx, userID, claimed, requested)
	}
	if kind, ok := models.AssignmentKindForRole(role); ok {
		return Assigned(userID, kind), nil
	}
	return Scope{}, nil
}

func (r *Resolver) resolveAdmin(ctx context.Context, userID uuid.UUID, claimed *uuid.UUID, requested string) (Scope, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		orgID, err := uuid.Parse(requested)
		if err != nil {
			return Scope{}, ErrInvalidOrganization
		}
		ok, err := r.store.IsMember(ctx, userID, orgID)
		if err != nil {
			return Scope{}, err
		}
		if !ok {
			return Scope{}, ErrNotMember
		}
		return Organization(orgID), nil
	}
	if claimed != nil && *claimed != uuid.Nil {
		ok, err := r.store.IsMember(ctx, userID, *claimed)
		if err != nil {
			return Scope{}, err
		}
		if ok {
			return Organization(*claimed), nil
		}
	}
	orgID, err := r.store.DefaultOrganization(ctx, userID)
	if err != nil {
		return Scope{}, err
	}
	return Organization(orgID), nil
}
