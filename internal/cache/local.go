package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/moneytrail/moneytrail/internal/model"
)

// Local is an in-process identity cache for single-node deployments without Redis.
// Entries carry their own expiry so per-call TTLs shorter than the life window hold.
type Local struct {
	cache *bigcache.BigCache
	now   func() time.Time
}

type localEntry struct {
	ExpiresAt int64           `json:"exp"`
	Identity  *model.Identity `json:"identity"`
}

// NewLocal creates a Local cache whose entries never outlive maxTTL.
func NewLocal(maxTTL time.Duration) (*Local, error) {
	if maxTTL <= 0 {
		maxTTL = time.Minute
	}

	config := bigcache.DefaultConfig(maxTTL)
	config.CleanWindow = maxTTL
	config.Shards = 64
	config.HardMaxCacheSize = 64 // MB

	bc, err := bigcache.NewBigCache(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}

	return &Local{cache: bc, now: time.Now}, nil
}

// Ping always succeeds; the cache lives in process.
func (l *Local) Ping(ctx context.Context) error {
	return nil
}

// Close releases the cache's background cleaner.
func (l *Local) Close() error {
	return l.cache.Close()
}

// GetIdentity retrieves a cached identity. Returns nil, nil on a miss.
func (l *Local) GetIdentity(ctx context.Context, userID string) (*model.Identity, error) {
	data, err := l.cache.Get(identityKey(userID))
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached identity: %w", err)
	}

	var entry localEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Identity == nil {
		return nil, nil //nolint:nilerr
	}
	if l.now().UnixNano() >= entry.ExpiresAt {
		_ = l.cache.Delete(identityKey(userID))
		return nil, nil
	}

	return entry.Identity, nil
}

// SetIdentity caches an identity for ttl.
func (l *Local) SetIdentity(ctx context.Context, identity *model.Identity, ttl time.Duration) error {
	data, err := json.Marshal(localEntry{
		ExpiresAt: l.now().Add(ttl).UnixNano(),
		Identity:  identity,
	})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return l.cache.Set(identityKey(identity.ID), data)
}

// DeleteIdentity removes a cached identity. Missing entries are not an error.
func (l *Local) DeleteIdentity(ctx context.Context, userID string) error {
	err := l.cache.Delete(identityKey(userID))
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("delete cached identity: %w", err)
	}
	return nil
}
