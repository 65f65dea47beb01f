package email

import (
	"context"
	"time"
)

// Service sends the notification mail the identity layer produces. All
// sends are best-effort: a failed mail never fails the operation that
// triggered it.
type Service interface {
	// SendInvitation delivers an invitation code to a prospective member.
	SendInvitation(ctx context.Context, to, gymName, code string, expiresAt *time.Time) error

	// SendTemporaryPassword delivers an admin-issued temporary password.
	SendTemporaryPassword(ctx context.Context, to, name, tempPassword string) error

	// SendPasswordReset delivers a password reset link.
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// Config holds mail relay settings.
type Config struct {
	BaseURL string        // relay API endpoint
	Timeout time.Duration // HTTP request timeout
}
