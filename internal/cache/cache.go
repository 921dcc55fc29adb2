// Package cache provides a small read-side cache for fund views backed
// by Redis. Every value is stored as JSON with a short TTL and dropped
// eagerly whenever the fund mutates, so stale reads are bounded by the
// TTL even if an invalidation is missed.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client. A nil *Cache (or one built from a nil
// client) is valid and turns every operation into a miss, so callers
// never branch on whether caching is configured.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a Cache around rdb. rdb may be nil.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get retrieves a value and unmarshals it into dest. The bool reports
// whether the key was present.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(val), dest)
}

// Set stores a value as JSON under the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Delete drops keys, ignoring ones that do not exist.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// FundStatusKey is the cache key for one member's view of a fund.
func FundStatusKey(fundID, userID string) string {
	return "chitfund:status:" + fundID + ":" + userID
}

// WinningInfoKey is the cache key for a completed round's outcome.
func WinningInfoKey(roundID string) string {
	return "chitfund:winning:" + roundID
}
