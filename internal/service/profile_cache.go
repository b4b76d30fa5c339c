package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// ProfileCache stores sanitized users in Redis
type ProfileCache struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewProfileCache creates a new profile cache
func NewProfileCache(redis *database.Redis, ttl time.Duration) *ProfileCache {
	return &ProfileCache{redis: redis, ttl: ttl}
}

func profileKey(userID string) string {
	return fmt.Sprintf("account:user:%s", userID)
}

// Get returns the cached user, or nil when there is no entry
func (c *ProfileCache) Get(ctx context.Context, userID string) (*domain.PublicUser, error) {
	raw, err := c.redis.Client.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached user: %w", err)
	}

	var user domain.PublicUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &user, nil
}

// Set caches the user until the TTL elapses
func (c *ProfileCache) Set(ctx context.Context, user *domain.PublicUser) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := c.redis.Client.Set(ctx, profileKey(user.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}
	return nil
}

// Delete drops the cached user
func (c *ProfileCache) Delete(ctx context.Context, userID string) error {
	if err := c.redis.Client.Del(ctx, profileKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to evict cached user: %w", err)
	}
	return nil
}
