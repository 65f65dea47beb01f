// Package blacklist tracks revoked access tokens and per-user invalidation
// markers in Redis. A user marker invalidates every token issued before it,
// which is how a block or password change forces live sessions out.
package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type TokenBlacklist struct {
	redis *redis.Client
}

func NewTokenBlacklist(redisClient *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{redis: redisClient}
}

func tokenKey(token string) string {
	return fmt.Sprintf("blacklist:token:%s", token)
}

func userKey(userID string) string {
	return fmt.Sprintf("blacklist:user:%s", userID)
}

// Add blacklists a single token until ttl elapses.
func (b *TokenBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if err := b.redis.Set(ctx, tokenKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// AddAccessToken blacklists an access token for its remaining lifetime.
// An already-expired token needs no entry.
func (b *TokenBlacklist) AddAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.Add(ctx, token, ttl)
}

func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	exists, err := b.redis.Exists(ctx, tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

// BlacklistUser invalidates every token issued before now. The marker must
// outlive the longest token lifetime.
func (b *TokenBlacklist) BlacklistUser(ctx context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return b.redis.Set(ctx, userKey(userID), time.Now().Unix(), ttl).Err()
}

// IsUserBlacklisted reports whether a token issued at the given time
// predates the user's invalidation marker.
func (b *TokenBlacklist) IsUserBlacklisted(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	timestamp, err := b.redis.Get(ctx, userKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tokenIssuedAt.Before(time.Unix(timestamp, 0)), nil
}
