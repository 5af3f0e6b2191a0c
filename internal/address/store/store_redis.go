package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"formcheck/internal/address/metrics"
	"formcheck/internal/address/models"
	"formcheck/pkg/domain"
)

const redisKeyPrefix = "formcheck:address:"

// RedisCache stores addresses as JSON values with a Redis-side TTL.
type RedisCache struct {
	client   *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// NewRedisCache constructs a Redis-backed address cache.
func NewRedisCache(client *redis.Client, cacheTTL time.Duration, metrics *metrics.Metrics) *RedisCache {
	return &RedisCache{
		client:   client,
		cacheTTL: cacheTTL,
		metrics:  metrics,
	}
}

func redisKey(code domain.PostalCode) string {
	return redisKeyPrefix + code.String()
}

func (c *RedisCache) FindAddress(ctx context.Context, code domain.PostalCode) (*models.Address, error) {
	payload, err := c.client.Get(ctx, redisKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.RecordCacheMiss()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find address cache: %w", err)
	}
	var record models.Address
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode address cache: %w", err)
	}
	c.metrics.RecordCacheHit()
	return &record, nil
}

func (c *RedisCache) SaveAddress(ctx context.Context, code domain.PostalCode, record *models.Address) error {
	if record == nil {
		return fmt.Errorf("address record is required")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode address cache: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(code), payload, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("save address cache: %w", err)
	}
	return nil
}
