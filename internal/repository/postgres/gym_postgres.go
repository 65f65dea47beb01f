package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/repository"
)

const gymColumns = `id, name, slug, suspended, suspended_reason, logo_url,
	   contact_email, created_at, updated_at, deleted_at`

type gymRepository struct {
	db *sqlx.DB
}

// NewGymRepository creates a new PostgreSQL gym repository.
func NewGymRepository(db *sqlx.DB) repository.GymRepository {
	return &gymRepository{db: db}
}

func (r *gymRepository) Create(ctx context.Context, gym *domain.Gym) error {
	query := `
		INSERT INTO gyms (
			id, name, slug, suspended, suspended_reason, logo_url,
			contact_email, created_at, updated_at, deleted_at
		) VALUES (
			:id, :name, :slug, :suspended, :suspended_reason, :logo_url,
			:contact_email, :created_at, :updated_at, :deleted_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, gym)
	if err != nil {
		return fmt.Errorf("failed to create gym: %w", err)
	}

	return nil
}

func (r *gymRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Gym, error) {
	query := `SELECT ` + gymColumns + ` FROM gyms WHERE id = $1 AND deleted_at IS NULL`

	var gym domain.Gym
	err := r.db.GetContext(ctx, &gym, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get gym by id: %w", err)
	}

	return &gym, nil
}

func (r *gymRepository) GetBySlug(ctx context.Context, slug string) (*domain.Gym, error) {
	query := `SELECT ` + gymColumns + ` FROM gyms WHERE slug = $1 AND deleted_at IS NULL`

	var gym domain.Gym
	err := r.db.GetContext(ctx, &gym, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get gym by slug: %w", err)
	}

	return &gym, nil
}

func (r *gymRepository) Update(ctx context.Context, gym *domain.Gym) error {
	gym.UpdatedAt = time.Now()

	query := `
		UPDATE gyms
		SET name = :name,
			slug = :slug,
			suspended = :suspended,
			suspended_reason = :suspended_reason,
			logo_url = :logo_url,
			contact_email = :contact_email,
			updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`

	result, err := r.db.NamedExecContext(ctx, query, gym)
	if err != nil {
		return fmt.Errorf("failed to update gym: %w", err)
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

func (r *gymRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE gyms SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete gym: %w", err)
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

func (r *gymRepository) List(ctx context.Context) ([]*domain.Gym, error) {
	query := `SELECT ` + gymColumns + ` FROM gyms WHERE deleted_at IS NULL ORDER BY name`

	var gyms []*domain.Gym
	err := r.db.SelectContext(ctx, &gyms, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list gyms: %w", err)
	}

	return gyms, nil
}
