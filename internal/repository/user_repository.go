package repository

import (
	"context"
	"errors"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned by any repository when the requested record does
// not exist.
var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByGym(ctx context.Context, gymID uuid.UUID, limit, offset int) ([]*domain.User, int, error)
	List(ctx context.Context, limit, offset int, search string) ([]*domain.User, int, error)
}
