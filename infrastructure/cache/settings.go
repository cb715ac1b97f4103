// Package cache holds read-through caches in front of the stores.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/infrastructure/observability"
)

const settingsPrefix = "dreamcatcher:settings:"

// RedisSettings caches merged user settings in Redis. Cache failures are
// logged and treated as misses.
type RedisSettings struct {
	client  redis.UniversalClient
	ttl     time.Duration
	metrics *observability.Collector
	logger  *zap.Logger
}

var _ ports.SettingsCache = (*RedisSettings)(nil)

// NewRedisSettings creates a settings cache with the given TTL.
func NewRedisSettings(client redis.UniversalClient, ttl time.Duration, metrics *observability.Collector, logger *zap.Logger) *RedisSettings {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSettings{client: client, ttl: ttl, metrics: metrics, logger: logger}
}

func (c *RedisSettings) GetSettings(ctx context.Context, userID string) (map[string]interface{}, bool) {
	data, err := c.client.Get(ctx, settingsPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Settings cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		c.metrics.RecordCache(false)
		return nil, false
	}
	var values map[string]interface{}
	if err := json.Unmarshal(data, &values); err != nil {
		c.logger.Warn("Discarding corrupt cached settings", zap.String("user_id", userID), zap.Error(err))
		c.InvalidateSettings(ctx, userID)
		c.metrics.RecordCache(false)
		return nil, false
	}
	c.metrics.RecordCache(true)
	return values, true
}

func (c *RedisSettings) SetSettings(ctx context.Context, userID string, values map[string]interface{}) {
	data, err := json.Marshal(values)
	if err != nil {
		c.logger.Warn("Failed to encode settings for cache", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, settingsPrefix+userID, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Settings cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (c *RedisSettings) InvalidateSettings(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, settingsPrefix+userID).Err(); err != nil {
		c.logger.Warn("Settings cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
