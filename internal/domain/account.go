package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is the credential record held by the local auth provider. It is
// deliberately decoupled from User: deleting a profile does not delete the
// account, which is what makes the re-registration recovery path possible.
type Account struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Email        string           `json:"email" db:"email"`
	PasswordHash string           `json:"-" db:"password_hash"`
	Claims       *ProjectedClaims `json:"claims,omitempty" db:"claims"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// AuthSession is a refresh-token session tracked by the local provider.
type AuthSession struct {
	ID               uuid.UUID `json:"id" db:"id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	RefreshTokenHash string    `json:"-" db:"refresh_token_hash"`
	ExpiresAt        time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
