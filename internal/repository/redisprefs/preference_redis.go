// Package redisprefs stores per-installation UI preferences in Redis.
// Losing a key is harmless: the tenant resolver just falls back to its
// default selection.
package redisprefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fitclub/club-service/internal/repository"
)

type preferenceRepository struct {
	redis *redis.Client
}

// NewPreferenceRepository creates a Redis-backed preference repository.
func NewPreferenceRepository(client *redis.Client) repository.PreferenceRepository {
	return &preferenceRepository{redis: client}
}

func selectedGymKey(installationID string) string {
	return fmt.Sprintf("prefs:selected_gym:%s", installationID)
}

func (r *preferenceRepository) GetSelectedGym(ctx context.Context, installationID string) (string, error) {
	value, err := r.redis.Get(ctx, selectedGymKey(installationID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get selected gym preference: %w", err)
	}
	return value, nil
}

func (r *preferenceRepository) SetSelectedGym(ctx context.Context, installationID, value string) error {
	if err := r.redis.Set(ctx, selectedGymKey(installationID), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist selected gym preference: %w", err)
	}
	return nil
}
