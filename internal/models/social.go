package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Social is a contact-info bag attachable to an organization or event.
// All string fields are lower-cased at write time.
type Social struct {
	ID        uuid.UUID  `json:"id"`
	Address   *string    `json:"address,omitempty"`
	Email     *string    `json:"email,omitempty"`
	FanPage   *string    `json:"fan_page,omitempty"`
	Instagram *string    `json:"instagram,omitempty"`
	Line      *string    `json:"line,omitempty"`
	Telephone *string    `json:"telephone,omitempty"`
	Website   *string    `json:"website,omitempty"`
	Youtube   *string    `json:"youtube,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Normalize lower-cases every set field.
func (s *Social) Normalize() {
	for _, f := range []**string{&s.Address, &s.Email, &s.FanPage, &s.Instagram, &s.Line, &s.Telephone, &s.Website, &s.Youtube} {
		if *f != nil {
			lowered := strings.ToLower(**f)
			*f = &lowered
		}
	}
}

// Empty reports whether no field is set.
func (s *Social) Empty() bool {
	return s.Address == nil && s.Email == nil && s.FanPage == nil && s.Instagram == nil &&
		s.Line == nil && s.Telephone == nil && s.Website == nil && s.Youtube == nil
}
