// Package authn defines the authentication provider the identity layer
// consumes. The core never stores credentials or mints tokens itself; it
// calls through this interface and normalizes whatever the provider fails
// with into the closed error set below.
package authn

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/domain"
)

// Closed set of provider failures surfaced to callers. Raw provider errors
// never cross this boundary.
var (
	ErrUserNotFound    = errors.New("no account for this email")
	ErrWrongCredential = errors.New("wrong email or password")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrEmailInUse      = errors.New("email already in use")
	ErrAuthUnavailable = errors.New("authentication service unavailable")
)

// Principal is the authenticated identity issued by the provider.
type Principal struct {
	ID    uuid.UUID
	Email string
}

// Provider is the consumed surface of the authentication system: credential
// verification, account creation, revocation, and the administrative
// custom-claims channel the Claims Projector writes through.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Principal, *domain.TokenPair, error)
	SignUp(ctx context.Context, email, password string) (*Principal, *domain.TokenPair, error)
	SignOut(ctx context.Context, accessToken, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	VerifyToken(ctx context.Context, accessToken string) (*domain.Claims, error)

	SendPasswordReset(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error

	// Administrative surface.
	AdminSetPassword(ctx context.Context, userID uuid.UUID, password string) error
	SetCustomClaims(ctx context.Context, userID uuid.UUID, claims domain.ProjectedClaims) error
	RevokeSessions(ctx context.Context, userID uuid.UUID) error
}
