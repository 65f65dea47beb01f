package domain

import (
	"time"

	"github.com/google/uuid"
)

// Gym is a tenant: an isolated club/organization all business data is
// scoped to. Slug is unique among non-deleted gyms and regenerated only
// when the name changes.
type Gym struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Slug            string     `json:"slug" db:"slug"`
	Suspended       bool       `json:"suspended" db:"suspended"`
	SuspendedReason *string    `json:"suspended_reason,omitempty" db:"suspended_reason"`
	LogoURL         *string    `json:"logo_url,omitempty" db:"logo_url"`
	ContactEmail    *string    `json:"contact_email,omitempty" db:"contact_email"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time `json:"-" db:"deleted_at"`
}
