package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tsdip/backend/internal/apperr"
	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/database"
)

const pgUniqueViolation = "23505"

func dupEventName(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperr.DuplicateField("EVENT_NAME_USED", "event name has been used")
	}
	return err
}

// Repository handles event, ticket-fare, and event-request persistence.
type Repository struct {
	db database.Querier
}

// NewRepository creates an events repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(q database.Querier) Store {
	return &Repository{db: q}
}

// CreateEvent inserts an event row.
func (r *Repository) CreateEvent(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (org_id, name, description, amount, price, reg_link,
		reg_start_at, reg_end_at, start_at, end_at, approved_at, creator_id, approver_id, social_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, e.OrgID, e.Name, e.Description, e.Amount, e.Price, e.RegLink,
		e.RegStartAt, e.RegEndAt, e.StartAt, e.EndAt, e.ApprovedAt, e.CreatorID, e.ApproverID, e.SocialID).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return dupEventName(err)
	}
	return nil
}

// FindEvent returns an active event by ID, or nil when absent.
func (r *Repository) FindEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, org_id, name, description, amount, price, reg_link,
		reg_start_at, reg_end_at, start_at, end_at, approved_at, published_at,
		creator_id, approver_id, social_id, created_at, updated_at
		FROM events WHERE id = $1 AND deleted_at IS NULL`
	var e models.Event
	err := r.db.QueryRow(ctx, q, id).Scan(&e.ID, &e.OrgID, &e.Name, &e.Description, &e.Amount,
		&e.Price, &e.RegLink, &e.RegStartAt, &e.RegEndAt, &e.StartAt, &e.EndAt, &e.ApprovedAt,
		&e.PublishedAt, &e.CreatorID, &e.ApproverID, &e.SocialID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEvent persists mutable event fields.
func (r *Repository) UpdateEvent(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events
		SET name = $2, description = $3, amount = $4, price = $5, reg_link = $6,
			reg_start_at = $7, reg_end_at = $8, start_at = $9, end_at = $10, social_id = $11,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, e.ID, e.Name, e.Description, e.Amount, e.Price, e.RegLink,
		e.RegStartAt, e.RegEndAt, e.StartAt, e.EndAt, e.SocialID)
	if err != nil {
		return dupEventName(err)
	}
	return nil
}

// SetEventApproved stamps the event's approval.
func (r *Repository) SetEventApproved(ctx context.Context, eventID, approverID uuid.UUID, at time.Time) error {
	const q = `UPDATE events SET approved_at = $2, approver_id = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, eventID, at, approverID)
	return err
}

// SetEventPublished sets or clears the event's published_at stamp.
func (r *Repository) SetEventPublished(ctx context.Context, eventID uuid.UUID, at *time.Time) error {
	const q = `UPDATE events SET published_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, eventID, at)
	return err
}

// SoftDeleteEvent marks the event deleted.
func (r *Repository) SoftDeleteEvent(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	const q = `UPDATE events SET deleted_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, eventID, at)
	return err
}

// ListByOrg returns the organization's active events, newest first.
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID, publishedOnly bool, limit, offset int) ([]models.Event, error) {
	q := `SELECT id, org_id, name, description, amount, price, reg_link,
		reg_start_at, reg_end_at, start_at, end_at, approved_at, published_at,
		creator_id, approver_id, social_id, created_at, updated_at
		FROM events WHERE org_id = $1 AND deleted_at IS NULL`
	if publishedOnly {
		q += ` AND published_at IS NOT NULL`
	}
	q += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, q, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Name, &e.Description, &e.Amount, &e.Price,
			&e.RegLink, &e.RegStartAt, &e.RegEndAt, &e.StartAt, &e.EndAt, &e.ApprovedAt,
			&e.PublishedAt, &e.CreatorID, &e.ApproverID, &e.SocialID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// CreateTicketFare inserts a ticket fare row.
func (r *Repository) CreateTicketFare(ctx context.Context, t *models.TicketFare) error {
	const q = `INSERT INTO ticket_fares (event_id, name, description, amount, price, reg_link,
		reg_start_at, reg_end_at, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, t.EventID, t.Name, t.Description, t.Amount, t.Price,
		t.RegLink, t.RegStartAt, t.RegEndAt, t.CreatorID).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// UpdateTicketFare persists mutable ticket fare fields.
func (r *Repository) UpdateTicketFare(ctx context.Context, t *models.TicketFare) error {
	const q = `UPDATE ticket_fares
		SET name = $2, description = $3, amount = $4, price = $5, reg_link = $6,
			reg_start_at = $7, reg_end_at = $8, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, t.ID, t.Name, t.Description, t.Amount, t.Price,
		t.RegLink, t.RegStartAt, t.RegEndAt)
	return err
}

// FindTicketFare returns an active ticket fare by ID, or nil when absent.
func (r *Repository) FindTicketFare(ctx context.Context, id uuid.UUID) (*models.TicketFare, error) {
	const q = `SELECT id, event_id, name, description, amount, price, reg_link,
		reg_start_at, reg_end_at, creator_id, created_at, updated_at
		FROM ticket_fares WHERE id = $1 AND deleted_at IS NULL`
	var t models.TicketFare
	err := r.db.QueryRow(ctx, q, id).Scan(&t.ID, &t.EventID, &t.Name, &t.Description, &t.Amount,
		&t.Price, &t.RegLink, &t.RegStartAt, &t.RegEndAt, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTicketFares returns the event's active fares in creation order.
func (r *Repository) ListTicketFares(ctx context.Context, eventID uuid.UUID) ([]models.TicketFare, error) {
	const q = `SELECT id, event_id, name, description, amount, price, reg_link,
		reg_start_at, reg_end_at, creator_id, created_at, updated_at
		FROM ticket_fares WHERE event_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`
	rows, err := r.db.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.TicketFare
	for rows.Next() {
		var t models.TicketFare
		if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.Description, &t.Amount, &t.Price,
			&t.RegLink, &t.RegStartAt, &t.RegEndAt, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SoftDeleteTicketFare marks one fare deleted.
func (r *Repository) SoftDeleteTicketFare(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE ticket_fares SET deleted_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, id, at)
	return err
}

// SoftDeleteTicketFares marks all the event's fares deleted.
func (r *Repository) SoftDeleteTicketFares(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	const q = `UPDATE ticket_fares SET deleted_at = $2, updated_at = NOW()
		WHERE event_id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, eventID, at)
	return err
}

// CreateSocial inserts a social row for an event.
func (r *Repository) CreateSocial(ctx context.Context, s *models.Social) error {
	const q = `INSERT INTO socials (address, email, fan_page, instagram, line, telephone, website, youtube)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, s.Address, s.Email, s.FanPage, s.Instagram, s.Line,
		s.Telephone, s.Website, s.Youtube).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// UpdateSocial persists mutable social fields.
func (r *Repository) UpdateSocial(ctx context.Context, s *models.Social) error {
	const q = `UPDATE socials
		SET address = $2, email = $3, fan_page = $4, instagram = $5, line = $6, telephone = $7, website = $8, youtube = $9, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, s.ID, s.Address, s.Email, s.FanPage, s.Instagram, s.Line,
		s.Telephone, s.Website, s.Youtube)
	return err
}

// SoftDeleteSocial marks the social row deleted.
func (r *Repository) SoftDeleteSocial(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE socials SET deleted_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, id, at)
	return err
}

// CreateEventRequest appends an event request-log row.
func (r *Repository) CreateEventRequest(ctx context.Context, log *models.RequestEventLog) error {
	const q = `INSERT INTO request_event_logs (req_type, event_id, applicant_id, approver_id, approve_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, log.ReqType, log.EventID, log.ApplicantID, log.ApproverID, log.ApproveAt).
		Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)
}

// FindPendingEventRequest returns the oldest pending request of the given
// type for the event, or nil when none exists.
func (r *Repository) FindPendingEventRequest(ctx context.Context, eventID uuid.UUID, reqType string) (*models.RequestEventLog, error) {
	const q = `SELECT id, req_type, event_id, applicant_id, approver_id, approve_at, created_at, updated_at
		FROM request_event_logs
		WHERE event_id = $1 AND req_type = $2 AND approve_at IS NULL AND deleted_at IS NULL
		ORDER BY created_at LIMIT 1`
	var log models.RequestEventLog
	err := r.db.QueryRow(ctx, q, eventID, reqType).Scan(&log.ID, &log.ReqType, &log.EventID,
		&log.ApplicantID, &log.ApproverID, &log.ApproveAt, &log.CreatedAt, &log.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ApproveEventRequest stamps the request approved.
func (r *Repository) ApproveEventRequest(ctx context.Context, requestID, approverID uuid.UUID, at time.Time) error {
	const q = `UPDATE request_event_logs SET approve_at = $2, approver_id = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, requestID, at, approverID)
	return err
}

// SoftDeleteEventRequests marks all the event's request logs deleted.
func (r *Repository) SoftDeleteEventRequests(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	const q = `UPDATE request_event_logs SET deleted_at = $2, updated_at = NOW()
		WHERE event_id = $1 AND deleted_at IS NULL`
	_, err := r.db.Exec(ctx, q, eventID, at)
	return err
}
