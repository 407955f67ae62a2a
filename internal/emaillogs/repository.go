package emaillogs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tsdip/backend/internal/models"
	"github.com/tsdip/backend/pkg/database"
)

// Repository handles email_logs persistence.
type Repository struct {
	db database.Querier
}

// NewRepository creates an email logs repository.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending email log row.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (org_id, request_id, template_key, recipient_email, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	if el.Status == "" {
		el.Status = models.EmailLogStatusPending
	}
	return r.db.QueryRow(ctx, q, el.OrgID, el.RequestID, el.TemplateKey, el.RecipientEmail, el.Status).
		Scan(&el.ID, &el.CreatedAt)
}

// MarkSent stamps the log as delivered.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE email_logs SET status = $2, sent_at = $3 WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id, models.EmailLogStatusSent, at)
	return err
}

// MarkFailed records the delivery error.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE email_logs SET status = $2, error_message = $3 WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id, models.EmailLogStatusFailed, errMsg)
	return err
}

// ListByOrg returns email logs for an organization, newest first.
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT id, org_id, request_id, template_key, recipient_email, status, sent_at, error_message, created_at
		FROM email_logs
		WHERE org_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var errMsg *string
		if err := rows.Scan(&el.ID, &el.OrgID, &el.RequestID, &el.TemplateKey, &el.RecipientEmail,
			&el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
