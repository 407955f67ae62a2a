package models

import (
	"time"

	"github.com/google/uuid"
)

// Role name tiers. Owner and manager form the elevated tier required for
// administrative actions within an organization.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleViewer  = "viewer"
)

// Elevated reports whether the role name grants the elevated tier.
func Elevated(name string) bool {
	return name == RoleOwner || name == RoleManager
}

// Permission is a capability flag bundle referenced by a role.
type Permission struct {
	ID           uuid.UUID  `json:"id"`
	ManageMember bool       `json:"manage_member"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Role binds a user to an organization with a named tier and a permission
// bundle. A user holds at most one active role per organization.
type Role struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	OrgID        uuid.UUID  `json:"org_id"`
	PermissionID uuid.UUID  `json:"permission_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}
