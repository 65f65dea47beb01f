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

const invitationColumns = `id, code, gym_id, roles, email, description,
	   expires_at, used, used_count, used_at, registered_user, created_by,
	   created_at, updated_at`

type invitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository creates a new PostgreSQL invitation repository.
func NewInvitationRepository(db *sqlx.DB) repository.InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (
			id, code, gym_id, roles, email, description,
			expires_at, used, used_count, used_at, registered_user, created_by,
			created_at, updated_at
		) VALUES (
			:id, :code, :gym_id, :roles, :email, :description,
			:expires_at, :used, :used_count, :used_at, :registered_user, :created_by,
			:created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, inv)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// GetByCode looks up a single invitation by its uppercase code, using the
// unique index on code.
func (r *invitationRepository) GetByCode(ctx context.Context, code string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE code = $1 LIMIT 1`

	var inv domain.Invitation
	err := r.db.GetContext(ctx, &inv, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invitation by code: %w", err)
	}

	return &inv, nil
}

func (r *invitationRepository) Update(ctx context.Context, inv *domain.Invitation) error {
	inv.UpdatedAt = time.Now()

	query := `
		UPDATE invitations
		SET roles = :roles,
			email = :email,
			description = :description,
			expires_at = :expires_at,
			used = :used,
			used_count = :used_count,
			used_at = :used_at,
			registered_user = :registered_user,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, inv)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
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

// MarkUsed performs the single allowed false->true transition. The WHERE
// clause excludes already-redeemed rows (current flag or legacy counter),
// so a concurrent second redemption matches nothing and gets ErrNotFound.
func (r *invitationRepository) MarkUsed(ctx context.Context, id uuid.UUID, registered domain.RegisteredUser) error {
	query := `
		UPDATE invitations
		SET used = true,
			used_count = used_count + 1,
			used_at = $2,
			registered_user = $3,
			updated_at = $2
		WHERE id = $1
		  AND (used IS NULL OR used = false)
		  AND used_count = 0`

	result, err := r.db.ExecContext(ctx, query, id, time.Now(), registered)
	if err != nil {
		return fmt.Errorf("failed to mark invitation used: %w", err)
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

func (r *invitationRepository) ListByGym(ctx context.Context, gymID uuid.UUID, limit, offset int) ([]*domain.Invitation, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM invitations WHERE gym_id = $1`, gymID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count invitations: %w", err)
	}

	query := `SELECT ` + invitationColumns + `
		FROM invitations
		WHERE gym_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var invitations []*domain.Invitation
	err = r.db.SelectContext(ctx, &invitations, query, gymID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invitations: %w", err)
	}

	return invitations, total, nil
}

func (r *invitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
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
