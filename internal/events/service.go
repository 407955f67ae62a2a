package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/identity"
	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/internal/organizations"
	"github.com/tsdip/backend/internal/permissions"
	"github.com/tsdip/backend/pkg/database"
)

// Store is the persistence surface the event workflows run against.
type Store interface {
	WithTx(q database.Querier) Store

	CreateEvent(ctx context.Context, e *models.Event) error
	FindEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	UpdateEvent(ctx context.Context, e *models.Event) error
	SetEventApproved(ctx context.Context, eventID, approverID uuid.UUID, at time.Time) error
	SetEventPublished(ctx context.Context, eventID uuid.UUID, at *time.Time) error
	SoftDeleteEvent(ctx context.Context, eventID uuid.UUID, at time.Time) error
	ListByOrg(ctx context.Context, orgID uuid.UUID, publishedOnly bool, limit, offset int) ([]models.Event, error)

	CreateTicketFare(ctx context.Context, t *models.TicketFare) error
	UpdateTicketFare(ctx context.Context, t *models.TicketFare) error
	FindTicketFare(ctx context.Context, id uuid.UUID) (*models.TicketFare, error)
	ListTicketFares(ctx context.Context, eventID uuid.UUID) ([]models.TicketFare, error)
	SoftDeleteTicketFare(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDeleteTicketFares(ctx context.Context, eventID uuid.UUID, at time.Time) error

	CreateSocial(ctx context.Context, s *models.Social) error
	UpdateSocial(ctx context.Context, s *models.Social) error
	SoftDeleteSocial(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateEventRequest(ctx context.Context, log *models.RequestEventLog) error
	FindPendingEventRequest(ctx context.Context, eventID uuid.UUID, reqType string) (*models.RequestEventLog, error)
	ApproveEventRequest(ctx context.Context, requestID, approverID uuid.UUID, at time.Time) error
	SoftDeleteEventRequests(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

// orgFinder looks up the owning organization; satisfied by the
// organizations repository.
type orgFinder interface {
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

type txRunner interface {
	InTx(ctx context.Context, fn func(q database.Querier) error) error
}

// Service implements the event lifecycle: create, approve, publish,
// unpublish, update, delete, plus ticket fares.
type Service struct {
	store    Store
	orgs     orgFinder
	tx       txRunner
	resolver *permissions.Resolver
	logger   *zap.Logger
}

// NewService creates the event workflow service.
func NewService(store Store, orgs orgFinder, tx txRunner, resolver *permissions.Resolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, orgs: orgs, tx: tx, resolver: resolver, logger: logger}
}

// EventParams are the fields for creating or updating an event.
type EventParams struct {
	Name        string
	Description *string
	Amount      int
	Price       int
	RegLink     *string
	RegStartAt  *time.Time
	RegEndAt    *time.Time
	StartAt     *time.Time
	EndAt       *time.Time
	Social      *organizations.SocialParams
	TicketFares []TicketFareParams
}

func (p *EventParams) validate() error {
	if p.Name == "" {
		return apperr.Validation("PARAM_SCHEMA_WARN", "event name is required")
	}
	if p.Amount < 0 || p.Price < 0 {
		return apperr.Validation("PARAM_SCHEMA_WARN", "amount and price must be non-negative")
	}
	for i := range p.TicketFares {
		if err := p.TicketFares[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreateEvent creates an event under the organization. A plain user's event
// stays pending with an apply_event request; a manager's event is approved
// at once and writes no request log.
func (s *Service) CreateEvent(ctx context.Context, actor identity.Actor, orgID uuid.UUID, params EventParams) (*models.Event, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if err := s.requireOrg(ctx, orgID); err != nil {
		return nil, err
	}
	if err := s.resolver.Require(ctx, actor, orgID, permissions.TierAny); err != nil {
		return nil, err
	}

	e := &models.Event{
		OrgID:       orgID,
		Name:        params.Name,
		Description: params.Description,
		Amount:      params.Amount,
		Price:       params.Price,
		RegLink:     params.RegLink,
		RegStartAt:  params.RegStartAt,
		RegEndAt:    params.RegEndAt,
		StartAt:     params.StartAt,
		EndAt:       params.EndAt,
	}

	err := s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)

		if params.Social != nil {
			social := params.Social.Social()
			if !social.Empty() {
				if err := st.CreateSocial(ctx, social); err != nil {
					return apperr.Unexpected(err)
				}
				e.SocialID = &social.ID
			}
		}

		if actor.IsManager() {
			now := time.Now().UTC()
			e.ApprovedAt = &now
			e.ApproverID = &actor.ID
		} else {
			e.CreatorID = &actor.ID
		}

		if err := st.CreateEvent(ctx, e); err != nil {
			if apperr.KindOf(err) == apperr.KindDuplicateField {
				return err
			}
			return apperr.Unexpected(err)
		}

		for _, fp := range params.TicketFares {
			t := &models.TicketFare{
				EventID:     e.ID,
				Name:        fp.Name,
				Description: fp.Description,
				Amount:      fp.Amount,
				Price:       fp.Price,
				RegLink:     fp.RegLink,
				RegStartAt:  fp.RegStartAt,
				RegEndAt:    fp.RegEndAt,
				CreatorID:   e.CreatorID,
			}
			if err := st.CreateTicketFare(ctx, t); err != nil {
				return apperr.Unexpected(err)
			}
		}

		if !actor.IsManager() {
			req := &models.RequestEventLog{
				ReqType:     models.ReqApplyEvent,
				EventID:     e.ID,
				ApplicantID: &actor.ID,
			}
			if err := st.CreateEventRequest(ctx, req); err != nil {
				return apperr.Unexpected(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEvent updates the event's fields. Requires any active role in the
// owning organization.
func (s *Service) UpdateEvent(ctx context.Context, actor identity.Actor, eventID uuid.UUID, params EventParams) error {
	if err := params.validate(); err != nil {
		return err
	}
	e, err := s.findEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.resolver.Require(ctx, actor, e.OrgID, permissions.TierAny); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)

		e.Name = params.Name
		e.Description = params.Description
		e.Amount = params.Amount
		e.Price = params.Price
		e.RegLink = params.RegLink
		e.RegStartAt = params.RegStartAt
		e.RegEndAt = params.RegEndAt
		e.StartAt = params.StartAt
		e.EndAt = params.EndAt

		if params.Social != nil {
			social := params.Social.Social()
			if !social.Empty() {
				if e.SocialID != nil {
					social.ID = *e.SocialID
					if err := st.UpdateSocial(ctx, social); err != nil {
						return apperr.Unexpected(err)
					}
				} else {
					if err := st.CreateSocial(ctx, social); err != nil {
						return apperr.Unexpected(err)
					}
					e.SocialID = &social.ID
				}
			}
		}
		if err := st.UpdateEvent(ctx, e); err != nil {
			if apperr.KindOf(err) == apperr.KindDuplicateField {
				return err
			}
			return apperr.Unexpected(err)
		}
		return nil
	})
}

// ApproveEvent closes the pending apply_event request and stamps the event
// approved, atomically. Only platform managers may approve; no role is
// granted, the applicant already holds one in the organization.
func (s *Service) ApproveEvent(ctx context.Context, actor identity.Actor, eventID uuid.UUID) error {
	if !actor.IsManager() {
		return apperr.PermissionDenied("PERMISSION_DENIED", "only managers can approve events")
	}

	return s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)

		e, err := st.FindEvent(ctx, eventID)
		if err != nil {
			return apperr.Unexpected(err)
		}
		if e == nil {
			return apperr.NotFound("EVENT_NOT_FOUND", "event does not exist")
		}

		req, err := st.FindPendingEventRequest(ctx, eventID, models.ReqApplyEvent)
		if err != nil {
			return apperr.Unexpected(err)
		}
		if req == nil {
			return apperr.NotFound("REQUEST_NOT_FOUND", "no pending request for this event")
		}

		now := time.Now().UTC()
		if err := st.ApproveEventRequest(ctx, req.ID, actor.ID, now); err != nil {
			return apperr.Unexpected(err)
		}
		if err := st.SetEventApproved(ctx, eventID, actor.ID, now); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
}

// PublishEvent makes an approved event publicly visible and records a
// publish_event log. Requires the elevated tier; the event must already be
// approved.
func (s *Service) PublishEvent(ctx context.Context, actor identity.Actor, eventID uuid.UUID) error {
	return s.setPublished(ctx, actor, eventID, true)
}

// UnpublishEvent hides a published event again and records an
// unpublish_event log.
func (s *Service) UnpublishEvent(ctx context.Context, actor identity.Actor, eventID uuid.UUID) error {
	return s.setPublished(ctx, actor, eventID, false)
}

func (s *Service) setPublished(ctx context.Context, actor identity.Actor, eventID uuid.UUID, publish bool) error {
	e, err := s.findEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.resolver.Require(ctx, actor, e.OrgID, permissions.TierElevated); err != nil {
		return err
	}
	if !e.Approved() {
		return apperr.NotApproved("EVENT_NOT_APPROVED", "event has not been approved yet")
	}

	return s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)
		now := time.Now().UTC()

		var publishedAt *time.Time
		reqType := models.ReqUnpublishEvent
		if publish {
			publishedAt = &now
			reqType = models.ReqPublishEvent
		}
		if err := st.SetEventPublished(ctx, eventID, publishedAt); err != nil {
			return apperr.Unexpected(err)
		}

		req := &models.RequestEventLog{ReqType: reqType, EventID: eventID}
		if actor.IsManager() {
			req.ApproverID = &actor.ID
		} else {
			req.ApplicantID = &actor.ID
		}
		// Self-recorded actions carry their own approval stamp.
		req.ApproveAt = &now
		if err := st.CreateEventRequest(ctx, req); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
}

// DeleteEvent soft-deletes the event, its social record, its ticket fares,
// and its request logs with one shared timestamp. Requires the elevated
// tier.
func (s *Service) DeleteEvent(ctx context.Context, actor identity.Actor, eventID uuid.UUID) error {
	e, err := s.findEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.resolver.Require(ctx, actor, e.OrgID, permissions.TierElevated); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(q database.Querier) error {
		st := s.store.WithTx(q)
		now := time.Now().UTC()

		if err := st.SoftDeleteEvent(ctx, eventID, now); err != nil {
			return apperr.Unexpected(err)
		}
		if e.SocialID != nil {
			if err := st.SoftDeleteSocial(ctx, *e.SocialID, now); err != nil {
				return apperr.Unexpected(err)
			}
		}
		if err := st.SoftDeleteTicketFares(ctx, eventID, now); err != nil {
			return apperr.Unexpected(err)
		}
		if err := st.SoftDeleteEventRequests(ctx, eventID, now); err != nil {
			return apperr.Unexpected(err)
		}
		return nil
	})
}

// GetEvent returns an active event with its ticket fares.
func (s *Service) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, []models.TicketFare, error) {
	e, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	fares, err := s.store.ListTicketFares(ctx, eventID)
	if err != nil {
		return nil, nil, apperr.Unexpected(err)
	}
	return e, fares, nil
}

// ListByOrg returns the organization's events. Actors without a role in the
// organization only see published events.
func (s *Service) ListByOrg(ctx context.Context, actor identity.Actor, orgID uuid.UUID, page, limit int) ([]models.Event, error) {
	if err := s.requireOrg(ctx, orgID); err != nil {
		return nil, err
	}
	publishedOnly := false
	if err := s.resolver.Require(ctx, actor, orgID, permissions.TierAny); err != nil {
		if apperr.KindOf(err) != apperr.KindPermissionDenied {
			return nil, err
		}
		publishedOnly = true
	}

	if limit < 1 || limit > 50 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	list, err := s.store.ListByOrg(ctx, orgID, publishedOnly, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return list, nil
}

// TicketFareParams are the fields for a single fare tier.
type TicketFareParams struct {
	Name        string
	Description *string
	Amount      int
	Price       int
	RegLink     *string
	RegStartAt  *time.Time
	RegEndAt    *time.Time
}

func (p *TicketFareParams) validate() error {
	if p.Name == "" {
		return apperr.Validation("PARAM_SCHEMA_WARN", "ticket fare name is required")
	}
	if p.Amount < 0 || p.Price < 0 {
		return apperr.Validation("PARAM_SCHEMA_WARN", "amount and price must be non-negative")
	}
	return nil
}

// AddTicketFare adds a fare tier to the event. Requires any active role in
// the owning organization.
func (s *Service) AddTicketFare(ctx context.Context, actor identity.Actor, eventID uuid.UUID, params TicketFareParams) (*models.TicketFare, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	e, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Require(ctx, actor, e.OrgID, permissions.TierAny); err != nil {
		return nil, err
	}

	t := &models.TicketFare{
		EventID:     eventID,
		Name:        params.Name,
		Description: params.Description,
		Amount:      params.Amount,
		Price:       params.Price,
		RegLink:     params.RegLink,
		RegStartAt:  params.RegStartAt,
		RegEndAt:    params.RegEndAt,
	}
	if !actor.IsManager() {
		t.CreatorID = &actor.ID
	}
	if err := s.store.CreateTicketFare(ctx, t); err != nil {
		return nil, apperr.Unexpected(err)
	}
	return t, nil
}

// UpdateTicketFare updates one fare tier.
func (s *Service) UpdateTicketFare(ctx context.Context, actor identity.Actor, fareID uuid.UUID, params TicketFareParams) error {
	if err := params.validate(); err != nil {
		return err
	}
	t, err := s.findFare(ctx, fareID)
	if err != nil {
		return err
	}
	e, err := s.findEvent(ctx, t.EventID)
	if err != nil {
		return err
	}
	if err := s.resolver.Require(ctx, actor, e.OrgID, permissions.TierAny); err != nil {
		return err
	}

	t.Name = params.Name
	t.Description = params.Description
	t.Amount = params.Amount
	t.Price = params.Price
	t.RegLink = params.RegLink
	t.RegStartAt = params.RegStartAt
	t.RegEndAt = params.RegEndAt
	if err := s.store.UpdateTicketFare(ctx, t); err != nil {
		return apperr.Unexpected(err)
	}
	return nil
}

// DeleteTicketFare soft-deletes one fare tier. Requires the elevated tier.
func (s *Service) DeleteTicketFare(ctx context.Context, actor identity.Actor, fareID uuid.UUID) error {
	t, err := s.findFare(ctx, fareID)
	if err != nil {
		return err
	}
	e, err := s.findEvent(ctx, t.EventID)
	if err != nil {
		return err
	}
	if err := s.resolver.Require(ctx, actor, e.OrgID, permissions.TierElevated); err != nil {
		return err
	}
	if err := s.store.SoftDeleteTicketFare(ctx, fareID, time.Now().UTC()); err != nil {
		return apperr.Unexpected(err)
	}
	return nil
}

func (s *Service) requireOrg(ctx context.Context, orgID uuid.UUID) error {
	org, err := s.orgs.FindOrganization(ctx, orgID)
	if err != nil {
		return apperr.Unexpected(err)
	}
	if org == nil {
		return apperr.NotFound("ORG_NOT_FOUND", "organization does not exist")
	}
	return nil
}

func (s *Service) findEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	e, err := s.store.FindEvent(ctx, eventID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if e == nil {
		return nil, apperr.NotFound("EVENT_NOT_FOUND", "event does not exist")
	}
	return e, nil
}

func (s *Service) findFare(ctx context.Context, fareID uuid.UUID) (*models.TicketFare, error) {
	t, err := s.store.FindTicketFare(ctx, fareID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if t == nil {
		return nil, apperr.NotFound("TICKET_NOT_FOUND", "ticket fare does not exist")
	}
	return t, nil
}
