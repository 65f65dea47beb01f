package repository

import (
	"context"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/google/uuid"
)

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	// GetByCode is a targeted indexed lookup, never a collection scan.
	GetByCode(ctx context.Context, code string) (*domain.Invitation, error)
	Update(ctx context.Context, inv *domain.Invitation) error
	// MarkUsed flips used false->true exactly once; a second call returns
	// ErrNotFound because the guarded update matches no row.
	MarkUsed(ctx context.Context, id uuid.UUID, registered domain.RegisteredUser) error
	ListByGym(ctx context.Context, gymID uuid.UUID, limit, offset int) ([]*domain.Invitation, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
