package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/repository"
)

type authSessionRepository struct {
	db *sqlx.DB
}

// NewAuthSessionRepository creates a new PostgreSQL auth session repository.
func NewAuthSessionRepository(db *sqlx.DB) repository.AuthSessionRepository {
	return &authSessionRepository{db: db}
}

func (r *authSessionRepository) Create(ctx context.Context, session *domain.AuthSession) error {
	query := `
		INSERT INTO auth_sessions (id, user_id, refresh_token_hash, expires_at, created_at)
		VALUES (:id, :user_id, :refresh_token_hash, :expires_at, :created_at)`

	_, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("failed to create auth session: %w", err)
	}

	return nil
}

func (r *authSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.AuthSession, error) {
	query := `
		SELECT id, user_id, refresh_token_hash, expires_at, created_at
		FROM auth_sessions
		WHERE refresh_token_hash = $1`

	var session domain.AuthSession
	err := r.db.GetContext(ctx, &session, query, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get auth session: %w", err)
	}

	return &session, nil
}

func (r *authSessionRepository) Update(ctx context.Context, session *domain.AuthSession) error {
	query := `
		UPDATE auth_sessions
		SET refresh_token_hash = :refresh_token_hash,
			expires_at = :expires_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("failed to update auth session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *authSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete auth session: %w", err)
	}
	return nil
}

func (r *authSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE refresh_token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete auth session by token: %w", err)
	}
	return nil
}

func (r *authSessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete auth sessions for user: %w", err)
	}
	return nil
}
