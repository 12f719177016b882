package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const accessVersionKey = "acl:access:version"

// AccessCache memoizes per-role accessible-feature lists in Redis.
// Invalidation is a version bump: every mutation increments one counter and
// all cached entries under the old version simply expire. Concurrent misses
// for the same role collapse into a single computation.
type AccessCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewAccessCache builds an access cache with the given entry TTL.
func NewAccessCache(client *redis.Client, ttl time.Duration) *AccessCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AccessCache{client: client, ttl: ttl}
}

// Invalidate bumps the cache version, orphaning every cached entry.
func (c *AccessCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, accessVersionKey).Err()
}

// Access returns the cached list for the role or computes and stores it.
// Redis trouble degrades to a plain computation, never to an error.
func (c *AccessCache) Access(ctx context.Context, roleID int64, compute func() ([]FeatureAccess, error)) ([]FeatureAccess, error) {
	version, err := c.client.Get(ctx, accessVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return compute()
	}
	key := fmt.Sprintf("acl:access:%d:role:%d", version, roleID)

	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached []FeatureAccess
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		list, err := compute()
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(list); err == nil {
			_ = c.client.Set(ctx, key, payload, c.ttl).Err()
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]FeatureAccess), nil
}
