package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the application-owned profile describing a principal's roles,
// gym affiliation and status. The authentication credential record lives
// separately (see Account) so a deleted profile can leave a stranded
// credential behind; that case is surfaced as NeedsReregistration.
type User struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	Email                  string     `json:"email" db:"email"`
	Name                   string     `json:"name" db:"name"`
	Phone                  *string    `json:"phone,omitempty" db:"phone"`
	Roles                  RoleSet    `json:"roles" db:"roles"`
	LegacyRole             *string    `json:"-" db:"legacy_role"`
	GymID                  *uuid.UUID `json:"gym_id,omitempty" db:"gym_id"`
	IsBlocked              bool       `json:"is_blocked" db:"is_blocked"`
	IsActive               bool       `json:"is_active" db:"is_active"`
	RequiresPasswordChange bool       `json:"requires_password_change" db:"requires_password_change"`
	TemporaryPassword      *string    `json:"-" db:"temporary_password"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`

	// NeedsReregistration marks a synthesized placeholder for a principal
	// whose profile document no longer exists. Never persisted.
	NeedsReregistration bool `json:"needs_reregistration,omitempty" db:"-"`
}

// Normalize folds the legacy single-role column into the plural role set.
// Applied at every repository read boundary; no code path trusts the raw
// stored shape.
func (u *User) Normalize() {
	var legacy Role
	if u.LegacyRole != nil {
		legacy = Role(*u.LegacyRole)
	}
	u.Roles = NormalizeRoles(u.Roles, legacy)
}

// PlaceholderUser synthesizes a minimal profile for a principal that exists
// in the auth provider but has no backing profile record.
func PlaceholderUser(id uuid.UUID, email string) *User {
	return &User{
		ID:                  id,
		Email:               email,
		Roles:               NormalizeRoles(nil, ""),
		IsActive:            true,
		NeedsReregistration: true,
	}
}
