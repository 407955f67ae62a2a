package models

import (
	"time"

	"github.com/google/uuid"
)

// Manager is a platform administrator. Managers bypass the organization
// permission check entirely; they are a distinct actor class from users.
type Manager struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Phone     *string    `json:"phone,omitempty"`
	Password  string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
