package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records invitation mail deliveries.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	OrgID          *uuid.UUID `json:"org_id,omitempty"`
	RequestID      *uuid.UUID `json:"request_id,omitempty"`
	TemplateKey    string     `json:"template_key"`
	RecipientEmail string     `json:"recipient_email"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
