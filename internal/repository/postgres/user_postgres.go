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

const userColumns = `id, email, name, phone, roles, legacy_role, gym_id,
	   is_blocked, is_active, requires_password_change, temporary_password,
	   created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	user.Normalize()

	query := `
		INSERT INTO users (
			id, email, name, phone, roles, legacy_role, gym_id,
			is_blocked, is_active, requires_password_change, temporary_password,
			created_at, updated_at
		) VALUES (
			:id, :email, :name, :phone, :roles, :legacy_role, :gym_id,
			:is_blocked, :is_active, :requires_password_change, :temporary_password,
			:created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	user.Normalize()
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	user.Normalize()
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.Normalize()
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET email = :email,
			name = :name,
			phone = :phone,
			roles = :roles,
			legacy_role = NULL,
			gym_id = :gym_id,
			is_blocked = :is_blocked,
			is_active = :is_active,
			requires_password_change = :requires_password_change,
			temporary_password = :temporary_password,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
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

func (r *userRepository) ListByGym(ctx context.Context, gymID uuid.UUID, limit, offset int) ([]*domain.User, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE gym_id = $1`, gymID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + `
		FROM users
		WHERE gym_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3`

	var users []*domain.User
	err = r.db.SelectContext(ctx, &users, query, gymID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users by gym: %w", err)
	}

	for _, u := range users {
		u.Normalize()
	}
	return users, total, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int, search string) ([]*domain.User, int, error) {
	var users []*domain.User
	var total int

	countQuery := `SELECT COUNT(*) FROM users WHERE 1=1`
	if search != "" {
		countQuery += ` AND (email ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')`
		if err := r.db.GetContext(ctx, &total, countQuery, search); err != nil {
			return nil, 0, fmt.Errorf("failed to count users: %w", err)
		}
	} else {
		if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count users: %w", err)
		}
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	if search != "" {
		query += ` AND (email ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')`
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		if err := r.db.SelectContext(ctx, &users, query, search, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to list users: %w", err)
		}
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to list users: %w", err)
		}
	}

	for _, u := range users {
		u.Normalize()
	}
	return users, total, nil
}
