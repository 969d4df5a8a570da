package redis

import (
	"context"
	"errors"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/progress"
	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ProgressCache caches progress snapshots so session starts don't hit
// PostgreSQL on the hot path. Snapshots are invalidated on every write,
// the write-behind store is the source of truth between flushes.
type ProgressCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(cache *Cache) *ProgressCache {
	return &ProgressCache{
		cache: cache,
		ttl:   TTLProgressCache,
	}
}

// Get retrieves a cached snapshot.
// Returns shared.ErrStateNotFound on a cache miss.
func (c *ProgressCache) Get(ctx context.Context, userID shared.UserID) (progress.Snapshot, error) {
	var snap progress.Snapshot
	err := c.cache.Get(ctx, ProgressKey(userID.String()), &snap)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return progress.Snapshot{}, shared.ErrStateNotFound
		}
		return progress.Snapshot{}, err
	}
	return snap, nil
}

// Set stores a snapshot with the default TTL.
func (c *ProgressCache) Set(ctx context.Context, userID shared.UserID, snap progress.Snapshot) error {
	return c.cache.Set(ctx, ProgressKey(userID.String()), snap, c.ttl)
}

// Invalidate removes a user's cached snapshot.
func (c *ProgressCache) Invalidate(ctx context.Context, userID shared.UserID) error {
	return c.cache.Delete(ctx, ProgressKey(userID.String()))
}

// InvalidateAll clears all cached snapshots.
func (c *ProgressCache) InvalidateAll(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixProgress+"*")
}
