package models

import (
	"time"

	"github.com/google/uuid"
)

// Request types recorded by the approval ledger.
const (
	ReqApplyOrg          = "apply_org"
	ReqClaimOrg          = "claim_org"
	ReqApplyEvent        = "apply_event"
	ReqPublishEvent      = "publish_event"
	ReqUnpublishEvent    = "unpublish_event"
	ReqInviteMember      = "invite_member"
	ReqInviteExistMember = "invite_exist_member"
	ReqRemoveMember      = "remove_member"
)

// RequestOrgLog is an append-style audit row for organization approval
// requests. A nil ApproveAt means the request is still pending.
type RequestOrgLog struct {
	ID          uuid.UUID  `json:"id"`
	ReqType     string     `json:"req_type"`
	OrgID       uuid.UUID  `json:"org_id"`
	ApplicantID uuid.UUID  `json:"applicant_id"`
	ApproverID  *uuid.UUID `json:"approver_id,omitempty"`
	ApproveAt   *time.Time `json:"approve_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// RequestEventLog is the event counterpart of RequestOrgLog. ApplicantID is
// nil when a platform manager performed the action directly.
type RequestEventLog struct {
	ID          uuid.UUID  `json:"id"`
	ReqType     string     `json:"req_type"`
	EventID     uuid.UUID  `json:"event_id"`
	ApplicantID *uuid.UUID `json:"applicant_id,omitempty"`
	ApproverID  *uuid.UUID `json:"approver_id,omitempty"`
	ApproveAt   *time.Time `json:"approve_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// RequestMemberLog records a membership invitation or removal. Email is set
// for invitations to addresses without a registered user; InviteeID is set
// when the target user already exists.
type RequestMemberLog struct {
	ID         uuid.UUID  `json:"id"`
	ReqType    string     `json:"req_type"`
	Email      *string    `json:"email,omitempty"`
	OrgID      uuid.UUID  `json:"org_id"`
	InviterID  uuid.UUID  `json:"inviter_id"`
	InviteeID  *uuid.UUID `json:"invitee_id,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}
