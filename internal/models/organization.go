package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgType values.
const (
	OrgTypeDanceGroup = "dance_group"
	OrgTypeStudio     = "studio"
)

// ValidOrgType reports whether t is a known organization type tag.
func ValidOrgType(t string) bool {
	return t == OrgTypeDanceGroup || t == OrgTypeStudio
}

// Organization is a studio or dance group. A nil ApprovedAt means the
// organization is still waiting for a platform manager to approve it.
type Organization struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Address     *string    `json:"address,omitempty"`
	OrgType     string     `json:"org_type"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatorID   *uuid.UUID `json:"creator_id,omitempty"`
	ApproverID  *uuid.UUID `json:"approver_id,omitempty"`
	SocialID    *uuid.UUID `json:"social_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Approved reports whether the organization passed manager approval.
func (o *Organization) Approved() bool { return o.ApprovedAt != nil }
