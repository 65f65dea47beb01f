package repository

import (
	"context"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository stores the local auth provider's credential records.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateClaims(ctx context.Context, id uuid.UUID, claims domain.ProjectedClaims) error
}

// AuthSessionRepository stores refresh-token sessions for the local provider.
type AuthSessionRepository interface {
	Create(ctx context.Context, session *domain.AuthSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.AuthSession, error)
	Update(ctx context.Context, session *domain.AuthSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
