package organizations

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/identity"
	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/internal/permissions"
	"github.com/tsdip/backend/pkg/database"
	"github.com/tsdip/backend/pkg/mailer"
	"github.com/tsdip/backend/pkg/queue"
)

// Store is the persistence surface the organization workflows run against.
// WithTx rebinds the store to a transaction so a whole workflow step commits
// or rolls back as one unit.
type Store interface {
	WithTx(q database.Querier) Store

	CreateOrganization(ctx context.Context, org *models.Organization) error
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	SetOrganizationApproved(ctx context.Context, orgID, approverID uuid.UUID, at time.Time) error
	SoftDeleteOrganization(ctx context.Context, orgID uuid.UUID, at time.Time) error

	CreateSocial(ctx context.Context, s *models.Social) error
	UpdateSocial(ctx context.Context, s *models.Social) error
	FindSocial(ctx context.Context, id uuid.UUID) (*models.Social, error)
	SoftDeleteSocial(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateOrgRequest(ctx context.Context, log *models.RequestOrgLog) error
	FindPendingOrgRequest(ctx context.Context, orgID uuid.UUID, reqType string) (*models.RequestOrgLog, error)
	FindPendingOrgRequestByApplicant(ctx context.Context, orgID uuid.UUID, reqType string, applicantID uuid.UUID) (*models.RequestOrgLog, error)
	ApproveOrgRequest(ctx context.Context, requestID, approverID uuid.UUID, at time.Time) error
	SoftDeleteOrgRequests(ctx context.Context, orgID uuid.UUID, at time.Time) error
	CreateMemberRequest(ctx context.Context, log *models.RequestMemberLog) error

	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreatePermission(ctx context.Context, p *models.Permission) error
	CreateRole(ctx context.Context, role *models.Role) error
	GrantRole(ctx context.Context, userID, roleID uuid.UUID) error
	FindMemberRole(ctx context.Context, userID, orgID uuid.UUID) (*models.Role, error)
	RevokeRole(ctx context.Context, userID, roleID uuid.UUID, at time.Time) error

	ListForUser(ctx context.Context, userID uuid.UUID, orgType string, limit, offset int) ([]OrgWithRole, error)
	ListReviewing(ctx context.Context, userID uuid.UUID, orgType string, limit, offset int) ([]ReviewingOrg, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error)
}

type txRunner interface {
	InTx(ctx context.Context, fn func(q database.Querier) error) error
}

type emailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Service implements the organization approval and invitation workflows.
type Service struct {
	store    Store
	tx       txRunner
	resolver *permissions.Resolver
	emails   emailEnqueuer
	logger   *zap.Logger
}

// NewService creates the organization workflow service.
func NewService(store Store, tx txRunner, resolver *permissions.Resolver, emails emailEnqueuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, tx: tx, resolver: resolver, emails: emails, logger: logger}
}

// SocialParams carries optional contact info for an organization or event.
type SocialParams struct {
	Address   *string `json:"address"`
	Email     *string `json:"email"`
	FanPage   *string `json:"fan_page"`
	Instagram *string `json:"instagram"`
	Line      *string `json:"line"`
	Telephone *string `json:"telephone"`
	Website   *string `json:"website"`
	Youtube   *string `json:"youtube"`
}

// Social builds a normalized Social from the params.
func (p *SocialParams) Social() *models.Social {
	s := &models.Social{
		Address:   p.Address,
		Email:     p.Email,
		FanPage:   p.FanPage,
		Instagram: p.Instagram,
		Line:      p.Line,
		Telephone: p.Telephone,
		Website:   p.Website,
		Youtube:   p.Youtube,
	}
	s.Normalize()
	return s
}

// CreateOrgParams are the fields for creating an organization.
type CreateOrgParams struct {
	Name        string
	OrgType     string
	Description *string
	Address     *string
	Social      *SocialParams
}

// CreateOrganization creates an organization. A plain user's creation leaves
// the organization pending with an apply_org request; a manager's creation is
// approved immediately and writes no request log.
func (s *Service) CreateOrganization(ctx context.Context, actor identity.Actor, params CreateOrgParams) (*models.Organization, error) {
	if params.Name == "" {
		return nil, apperr.Validation("PARAM_SCHEMA_WARN", "organization name is required")
	}
	if !models.ValidOrgType(params.OrgType) {
		return nil, apperr.Validation("PARAM_SCHEMA_WARN", "org_type must be dance_group or studio")
	}

	org := &models.Organization{
		Name:        params.Name,
		OrgType:     params.OrgType,
		Description: params.Description,
		Address:     params.Address,
	}

	err := s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)

		if params.Social != nil {
			social := params.Social.Social()
			if !social.Empty() {
				if err := st.CreateSocial(ctx, social); err != nil {
					return apperr.Unexpected(err)
				}
				org.SocialID = &social.ID
			}
		}

		if actor.IsManager() {
			now := time.Now().UTC()
			org.ApprovedAt = &now
			org.ApproverID = &actor.ID
		} else {
			org.CreatorID = &actor.ID
		}

		if err := st.CreateOrganization(ctx, org); err != nil {
			if apperr.KindOf(err) == apperr.KindDuplicateField {
				return err
			}
			return apperr.Unexpected(err)
		}

		if !actor.IsManager() {
			req := &models.RequestOrgLog{
				ReqType:     models.ReqApplyOrg,
				OrgID:       org.ID,
				ApplicantID: actor.ID,
			}
			if err := st.CreateOrgRequest(ctx, req); err != nil {
				return apperr.Unexpected(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// ClaimOrganization records a user's claim over an existing organization,
// to be reviewed by a platform manager. A pending claim by the same user is
// not duplicated.
func (s *Service) ClaimOrganization(ctx context.Context, actor identity.Actor, orgID uuid.UUID) (*models.RequestOrgLog, error) {
	if actor.IsManager() {
		return nil, apperr.Validation("PARAM_SCHEMA_WARN", "managers do not claim organizations")
	}
	if _, err := s.findOrg(ctx, orgID); err != nil {
		return nil, err
	}

	req := &models.RequestOrgLog{
		ReqType:     models.ReqClaimOrg,
		OrgID:       orgID,
		ApplicantID: actor.ID,
	}
	err := s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)
		pending, err := st.FindPendingOrgRequestByApplicant(ctx, orgID, models.ReqClaimOrg, actor.ID)
		if err != nil {
			return apperr.Unexpected(err)
		}
		if pending != nil {
			req = pending
			return nil
		}
		if err := st.CreateOrgRequest(ctx, req); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateOrgParams are the mutable organization fields.
type UpdateOrgParams struct {
	Description *string
	Address     *string
	Social      *SocialParams
}

// UpdateOrganization updates description, address, and social info.
// Requires any active role within the organization (or a manager actor).
func (s *Service) UpdateOrganization(ctx context.Context, actor identity.Actor, orgID uuid.UUID, params UpdateOrgParams) error {
	org, err := s.findOrg(ctx, orgID)
	if err != nil {
		return err
	}
	if err := s.resolver.Require(ctx, actor, orgID, permissions.TierAny); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)

		if params.Description != nil {
			org.Description = params.Description
		}
		if params.Address != nil {
			org.Address = params.Address
		}
		if params.Social != nil {
			if err := s.upsertSocial(ctx, st, &org.SocialID, params.Social); err != nil {
				return err
			}
		}
		if err := st.UpdateOrganization(ctx, org); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
}

// ApproveOrganization closes the pending request and grants the applicant an
// owner role, atomically. Only platform managers may approve.
func (s *Service) ApproveOrganization(ctx context.Context, actor identity.Actor, orgID uuid.UUID, reqType string) error {
	if !actor.IsManager() {
		return apperr.PermissionDenied("PERMISSION_DENIED", "only managers can approve organizations")
	}
	if reqType != models.ReqApplyOrg && reqType != models.ReqClaimOrg {
		return apperr.Validation("PARAM_SCHEMA_WARN", "req_type must be apply_org or claim_org")
	}

	return s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)

		org, err := st.FindOrganization(ctx, orgID)
		if err != nil {
			return apperr.Unexpected(err)
		}
		if org == nil {
			return apperr.NotFound("ORG_NOT_FOUND", "organization does not exist")
		}

		req, err := st.FindPendingOrgRequest(ctx, orgID, reqType)
		if err != nil {
			return apperr.Unexpected(err)
		}
		if req == nil {
			return apperr.NotFound("REQUEST_NOT_FOUND", "no pending request for this organization")
		}

		applicant, err := st.FindUser(ctx, req.ApplicantID)
		if err != nil {
			return apperr.Unexpected(err)
		}
		if applicant == nil {
			return apperr.NotFound("MEMBER_NOT_FOUND", "applicant does not exist")
		}

		now := time.Now().UTC()
		if err := st.ApproveOrgRequest(ctx, req.ID, actor.ID, now); err != nil {
			return apperr.Unexpected(err)
		}
		if err := st.SetOrganizationApproved(ctx, orgID, actor.ID, now); err != nil {
			return apperr.Unexpected(err)
		}

		perm := &models.Permission{ManageMember: true}
		if err := st.CreatePermission(ctx, perm); err != nil {
			return apperr.Unexpected(err)
		}
		role := &models.Role{Name: models.RoleOwner, OrgID: orgID, PermissionID: perm.ID}
		if err := st.CreateRole(ctx, role); err != nil {
			return apperr.Unexpected(err)
		}
		if err := st.GrantRole(ctx, applicant.ID, role.ID); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
}

// InviteParams identifies the invitee by user ID or email; exactly one must
// be set.
type InviteParams struct {
	UserID *uuid.UUID
	Email  *string
}

// InviteMember invites an existing or not-yet-registered user into the
// organization. The request log commits first; the notification email is
// fire-and-forget.
func (s *Service) InviteMember(ctx context.Context, actor identity.Actor, orgID uuid.UUID, params InviteParams) (*models.RequestMemberLog, error) {
	if (params.UserID == nil) == (params.Email == nil) {
		return nil, apperr.Validation("PARAM_SCHEMA_WARN", "exactly one of user_id and email is required")
	}

	org, err := s.findOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Require(ctx, actor, orgID, permissions.TierElevated); err != nil {
		return nil, err
	}

	req := &models.RequestMemberLog{OrgID: orgID, InviterID: actor.ID}
	var recipient, templateKey string

	if params.UserID != nil {
		invitee, err := s.store.FindUser(ctx, *params.UserID)
		if err != nil {
			return nil, apperr.Unexpected(err)
		}
		if invitee == nil {
			return nil, apperr.NotFound("MEMBER_NOT_FOUND", "member does not exist")
		}
		req.ReqType = models.ReqInviteExistMember
		req.InviteeID = &invitee.ID
		recipient = invitee.Email
		templateKey = mailer.TemplateInviteExistMember
	} else {
		email := strings.ToLower(*params.Email)
		invitee, err := s.store.FindUserByEmail(ctx, email)
		if err != nil {
			return nil, apperr.Unexpected(err)
		}
		if invitee != nil {
			// The address is already registered; invite the user rather
			// than asking them to sign up again.
			req.ReqType = models.ReqInviteExistMember
			req.InviteeID = &invitee.ID
			recipient = invitee.Email
			templateKey = mailer.TemplateInviteExistMember
		} else {
			req.ReqType = models.ReqInviteMember
			req.Email = &email
			recipient = email
			templateKey = mailer.TemplateInviteMember
		}
	}

	err = s.tx.InTx(ctx, func(q database.Querier) error {
		if err := s.store.WithTx(q).CreateMemberRequest(ctx, req); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The invite is committed; a mail failure must not undo it.
	if err := s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		TemplateKey:    templateKey,
		RecipientEmail: recipient,
		OrgID:          orgID,
		OrgName:        org.Name,
		RequestID:      req.ID,
	}); err != nil {
		s.logger.Warn("invite email enqueue failed",
			zap.Error(err),
			zap.String("org_id", orgID.String()),
			zap.String("recipient", recipient),
		)
	}
	return req, nil
}

// RemoveMember revokes the member's role and records a remove_member request.
func (s *Service) RemoveMember(ctx context.Context, actor identity.Actor, orgID, userID uuid.UUID) error {
	if _, err := s.findOrg(ctx, orgID); err != nil {
		return err
	}
	if err := s.resolver.Require(ctx, actor, orgID, permissions.TierElevated); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)

		role, err := st.FindMemberRole(ctx, userID, orgID)
		if err != nil {
			return apperr.Unexpected(err)
		}
		if role == nil {
			return apperr.NotFound("MEMBER_NOT_FOUND", "user is not a member of this organization")
		}

		now := time.Now().UTC()
		if err := st.RevokeRole(ctx, userID, role.ID, now); err != nil {
			return apperr.Unexpected(err)
		}
		req := &models.RequestMemberLog{
			ReqType:   models.ReqRemoveMember,
			OrgID:     orgID,
			InviterID: actor.ID,
			InviteeID: &userID,
		}
		if err := st.CreateMemberRequest(ctx, req); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
}

// DeleteOrganization soft-deletes the organization, its social record, and
// its request logs with one shared timestamp. Requires the elevated tier.
func (s *Service) DeleteOrganization(ctx context.Context, actor identity.Actor, orgID uuid.UUID) error {
	org, err := s.findOrg(ctx, orgID)
	if err != nil {
		return err
	}
	if err := s.resolver.Require(ctx, actor, orgID, permissions.TierElevated); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)
		now := time.Now().UTC()

		if err := st.SoftDeleteOrganization(ctx, orgID, now); err != nil {
			return apperr.Unexpected(err)
		}
		if org.SocialID != nil {
			if err := st.SoftDeleteSocial(ctx, *org.SocialID, now); err != nil {
				return apperr.Unexpected(err)
			}
		}
		if err := st.SoftDeleteOrgRequests(ctx, orgID, now); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
}

// GetOrganization returns an active organization.
func (s *Service) GetOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	return s.findOrg(ctx, orgID)
}

// ListForUser returns organizations the user holds a role in.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, orgType string, page, limit int) ([]OrgWithRole, error) {
	limit, offset := pageBounds(page, limit)
	list, err := s.store.ListForUser(ctx, userID, orgType, limit, offset)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return list, nil
}

// ListReviewing returns organizations the user applied for that are still
// pending approval.
func (s *Service) ListReviewing(ctx context.Context, userID uuid.UUID, orgType string, page, limit int) ([]ReviewingOrg, error) {
	limit, offset := pageBounds(page, limit)
	list, err := s.store.ListReviewing(ctx, userID, orgType, limit, offset)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return list, nil
}

// ListMembers returns the organization's active members. Requires any role
// within the organization.
func (s *Service) ListMembers(ctx context.Context, actor identity.Actor, orgID uuid.UUID) ([]Member, error) {
	if _, err := s.findOrg(ctx, orgID); err != nil {
		return nil, err
	}
	if err := s.resolver.Require(ctx, actor, orgID, permissions.TierAny); err != nil {
		return nil, err
	}
	list, err := s.store.ListMembers(ctx, orgID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return list, nil
}

func (s *Service) findOrg(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := s.store.FindOrganization(ctx, orgID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if org == nil {
		return nil, apperr.NotFound("ORG_NOT_FOUND", "organization does not exist")
	}
	return org, nil
}

// upsertSocial updates the linked social row or creates one.
func (s *Service) upsertSocial(ctx context.Context, st Store, socialID **uuid.UUID, params *SocialParams) error {
	social := params.Social()
	if social.Empty() {
		return nil
	}
	if *socialID != nil {
		social.ID = **socialID
		if err := st.UpdateSocial(ctx, social); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	}
	if err := st.CreateSocial(ctx, social); err != nil {
		return apperr.Unexpected(err)
	}
	*socialID = &social.ID
	return nil
}

func pageBounds(page, limit int) (int, int) {
	if limit < 1 || limit > 50 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
