package persistence

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RedisUnreadCache caches per-user unread notification counts. Writes to the
// underlying rows must invalidate the key in the same request so polling
// clients never see a badge count older than their poll interval.
type RedisUnreadCache struct {
	redis  *Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisUnreadCache builds the cache. A nil or unreachable redis client
// degrades to cache misses.
func NewRedisUnreadCache(redis *Redis, ttl time.Duration, logger *zap.Logger) *RedisUnreadCache {
	return &RedisUnreadCache{redis: redis, ttl: ttl, logger: logger}
}

func unreadKey(userID string) string {
	return "notif:unread:" + userID
}

// Get returns the cached count and whether it was present.
func (c *RedisUnreadCache) Get(ctx context.Context, userID string) (int, bool) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return 0, false
	}
	val, err := c.redis.Client.Get(ctx, unreadKey(userID)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return count, true
}

// Set stores the count with the configured TTL.
func (c *RedisUnreadCache) Set(ctx context.Context, userID string, count int) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	if err := c.redis.Client.Set(ctx, unreadKey(userID), strconv.Itoa(count), c.ttl).Err(); err != nil {
		c.logger.Warn("unread cache set failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Invalidate drops the cached count. Called synchronously with every write
// that changes the user's unread set.
func (c *RedisUnreadCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	if err := c.redis.Client.Del(ctx, unreadKey(userID)).Err(); err != nil {
		c.logger.Warn("unread cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
