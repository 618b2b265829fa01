package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moneytrail/moneytrail/internal/model"
)

// identityCachePrefix is the key prefix for cached identities.
const identityCachePrefix = "identity:"

func identityKey(userID string) string {
	return identityCachePrefix + userID
}

// GetIdentity retrieves a cached identity by user ID.
// Returns nil, nil on a miss or a corrupted entry.
func (c *Cache) GetIdentity(ctx context.Context, userID string) (*model.Identity, error) {
	data, err := c.client.Get(ctx, identityKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached identity: %w", err)
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &identity, nil
}

// SetIdentity caches an identity for ttl.
func (c *Cache) SetIdentity(ctx context.Context, identity *model.Identity, ttl time.Duration) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return c.client.Set(ctx, identityKey(identity.ID), data, ttl).Err()
}

// DeleteIdentity removes a cached identity.
// Used when the user's transactions change or the user is deleted.
func (c *Cache) DeleteIdentity(ctx context.Context, userID string) error {
	return c.client.Del(ctx, identityKey(userID)).Err()
}
