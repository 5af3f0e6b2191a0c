//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"formcheck/internal/platform/config"
	platformredis "formcheck/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a Redis server reached through the same client the
// formcheck binary builds from its configuration.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	Config    config.RedisConfig
	Client    *platformredis.Client
}

// NewRedisContainer starts Redis and connects with the default pool settings.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(context.Background())
		t.Fatalf("redis connection string: %v", err)
	}

	cfg := config.RedisConfig{URL: url, PoolSize: 4, DialTimeout: 5 * time.Second}
	client, err := platformredis.New(ctx, cfg)
	if err != nil {
		_ = container.Terminate(context.Background())
		t.Fatalf("connect to redis: %v", err)
	}

	// Shared by the Manager across suites; Ryuk reaps the container.
	return &RedisContainer{
		Container: container,
		Config:    cfg,
		Client:    client,
	}
}

// ClearKeys deletes every key matching pattern, e.g. "formcheck:address:*".
func (r *RedisContainer) ClearKeys(ctx context.Context, pattern string) error {
	iter := r.Client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}
