//go:build integration

package containers

import (
	"context"
	"testing"

	"vatgate/internal/platform/config"
	redisclient "vatgate/internal/platform/redis"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer is a Redis instance reached through the same client wrapper
// the server uses.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *redisclient.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fail(t, nil, "start redis: %v", err)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		fail(t, container, "redis connection string: %v", err)
	}
	client, err := redisclient.New(ctx, config.RedisConfig{URL: url, PoolSize: 4})
	if err != nil {
		fail(t, container, "connect redis: %v", err)
	}

	terminateOnCleanup(t, container)
	t.Cleanup(func() { _ = client.Close() })
	return &RedisContainer{Container: container, URL: url, Client: client}
}

// FlushAll drops every key between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
