package models

import (
	"time"

	"github.com/google/uuid"
)

// Event belongs to exactly one organization. Amount and price are
// non-negative; the registration window is reg_start_at..reg_end_at.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       uuid.UUID  `json:"org_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Amount      int        `json:"amount"`
	Price       int        `json:"price"`
	RegLink     *string    `json:"reg_link,omitempty"`
	RegStartAt  *time.Time `json:"reg_start_at,omitempty"`
	RegEndAt    *time.Time `json:"reg_end_at,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatorID   *uuid.UUID `json:"creator_id,omitempty"`
	ApproverID  *uuid.UUID `json:"approver_id,omitempty"`
	SocialID    *uuid.UUID `json:"social_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Approved reports whether the event passed manager approval.
func (e *Event) Approved() bool { return e.ApprovedAt != nil }

// TicketFare is one fare tier of an event.
type TicketFare struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Amount      int        `json:"amount"`
	Price       int        `json:"price"`
	RegLink     *string    `json:"reg_link,omitempty"`
	RegStartAt  *time.Time `json:"reg_start_at,omitempty"`
	RegEndAt    *time.Time `json:"reg_end_at,omitempty"`
	CreatorID   *uuid.UUID `json:"creator_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
