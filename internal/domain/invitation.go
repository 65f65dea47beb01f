package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RegisteredUser is the snapshot of who redeemed an invitation, stored on
// the invitation itself at redemption time.
type RegisteredUser struct {
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	GymID        uuid.UUID `json:"gym_id"`
	GymName      string    `json:"gym_name"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Scan implements sql.Scanner for the jsonb column.
func (r *RegisteredUser) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported registered_user type %T", src)
	}
}

// Value implements driver.Valuer.
func (r RegisteredUser) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Invitation is a single-use, optionally expiring, optionally email-bound
// code that grants gym affiliation and a role set upon redemption.
//
// Legacy records carry a used_count counter instead of the used flag; the
// Used pointer is NULL for those rows and readers derive the flag from
// UsedCount, migrating it back lazily.
type Invitation struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Code           string          `json:"code" db:"code"`
	GymID          uuid.UUID       `json:"gym_id" db:"gym_id"`
	Roles          RoleSet         `json:"roles" db:"roles"`
	Email          *string         `json:"email,omitempty" db:"email"`
	Description    *string         `json:"description,omitempty" db:"description"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
	Used           *bool           `json:"used" db:"used"`
	UsedCount      int             `json:"-" db:"used_count"`
	UsedAt         *time.Time      `json:"used_at,omitempty" db:"used_at"`
	RegisteredUser *RegisteredUser `json:"registered_user,omitempty" db:"registered_user"`
	CreatedBy      uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// IsUsed reports whether the invitation has been redeemed, reading both
// the current flag and the legacy counter.
func (i *Invitation) IsUsed() bool {
	if i.Used != nil {
		return *i.Used
	}
	return i.UsedCount > 0
}

// IsExpired reports whether the invitation has passed its expiry. A nil
// ExpiresAt means it never expires.
func (i *Invitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// NeedsMigration reports whether the record still carries only the legacy
// used_count shape.
func (i *Invitation) NeedsMigration() bool {
	return i.Used == nil
}
