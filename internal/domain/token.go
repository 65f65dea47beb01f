package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// Claims are the JWT claims issued by the auth provider. The projected
// fields (roles, gym, superadmin flag) mirror the profile with bounded
// staleness: they are refreshed on token issuance, not on profile write.
type Claims struct {
	jwt.RegisteredClaims
	UserID       uuid.UUID  `json:"uid"`
	Email        string     `json:"email"`
	Roles        []string   `json:"roles,omitempty"`
	GymID        *uuid.UUID `json:"gym_id,omitempty"`
	IsSuperAdmin bool       `json:"is_superadmin,omitempty"`
	SessionID    *uuid.UUID `json:"sid,omitempty"`
	TokenType    string     `json:"type"`
}

// ProjectedClaims is the compact claims object the Claims Projector writes
// onto the principal's auth record: enough for downstream authorization to
// branch without re-querying the profile.
type ProjectedClaims struct {
	Roles        []string   `json:"roles"`
	GymID        *uuid.UUID `json:"gym_id,omitempty"`
	IsSuperAdmin bool       `json:"is_superadmin"`
}

// Scan implements sql.Scanner for the jsonb column on auth accounts.
func (p *ProjectedClaims) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported claims type %T", src)
	}
}

// Value implements driver.Valuer.
func (p ProjectedClaims) Value() (driver.Value, error) {
	return json.Marshal(p)
}
