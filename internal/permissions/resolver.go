// Package permissions decides whether an actor may act on an organization.
package permissions

import (
	"context"

	"github.com/google/uuid"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/identity"
	"github.com/tsdip/backend/internal/models"
)

// Tier is the capability level an operation requires.
type Tier int

const (
	// TierAny grants on any active role within the organization.
	TierAny Tier = iota
	// TierElevated requires an owner or manager role.
	TierElevated
)

// RoleStore looks up the actor's active role within an organization.
type RoleStore interface {
	// FindActiveRole returns the user's non-deleted role for the
	// organization, or nil when none exists. On duplicates the earliest
	// granted role wins.
	FindActiveRole(ctx context.Context, userID, orgID uuid.UUID) (*models.Role, error)
}

// Resolver is a boolean permission gate: grant, or a typed denial.
type Resolver struct {
	roles RoleStore
}

// NewResolver creates a resolver over a role store.
func NewResolver(roles RoleStore) *Resolver {
	return &Resolver{roles: roles}
}

// Require grants or denies the actor against the organization.
// Platform managers are granted unconditionally, even for organizations
// that hold no roles at all.
func (r *Resolver) Require(ctx context.Context, actor identity.Actor, orgID uuid.UUID, tier Tier) error {
	if actor.IsManager() {
		return nil
	}

	role, err := r.roles.FindActiveRole(ctx, actor.ID, orgID)
	if err != nil {
		return apperr.Unexpected(err)
	}
	if role == nil {
		return apperr.PermissionDenied("PERMISSION_DENIED", "user does not have permission to do this action")
	}
	if tier == TierElevated && !models.Elevated(role.Name) {
		return apperr.PermissionDenied("PERMISSION_DENIED", "action requires an owner or manager role")
	}
	return nil
}
