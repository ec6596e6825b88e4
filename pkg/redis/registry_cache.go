package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// Commands is the subset of redis.UniversalClient used by RegistryCache.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RegistryCache stores registry records in Redis so that every replica
// shares one cache. It implements tenant.RegistryCache.
type RegistryCache struct {
	db     Commands
	prefix string
}

// NewRegistryCache wraps db. Keys are namespaced with prefix.
func NewRegistryCache(db Commands, prefix string) *RegistryCache {
	return &RegistryCache{db: db, prefix: prefix}
}

// Get reports ok=false for missing keys.
func (c *RegistryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.db.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(ErrCacheOperation, err)
	}
	return val, true, nil
}

// Set stores value. A zero ttl means no expiration.
func (c *RegistryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.db.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return errors.Join(ErrCacheOperation, err)
	}
	return nil
}

func (c *RegistryCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.db.Del(ctx, full...).Err(); err != nil {
		return errors.Join(ErrCacheOperation, err)
	}
	return nil
}

var _ tenant.RegistryCache = (*RegistryCache)(nil)
