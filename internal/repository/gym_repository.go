package repository

import (
	"context"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/google/uuid"
)

type GymRepository interface {
	Create(ctx context.Context, gym *domain.Gym) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Gym, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Gym, error)
	Update(ctx context.Context, gym *domain.Gym) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// List returns all non-deleted gyms ordered by name.
	List(ctx context.Context) ([]*domain.Gym, error)
}
