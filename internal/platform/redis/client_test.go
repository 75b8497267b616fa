package redis

import (
	"context"
	"testing"
	"time"

	"vatgate/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutURLIsDisabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestOptions(t *testing.T) {
	t.Run("overrides pool settings", func(t *testing.T) {
		opts, err := options(config.RedisConfig{
			URL:          "redis://:pw@cache:6380/2",
			PoolSize:     20,
			MinIdleConns: 4,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 20, opts.PoolSize)
		assert.Equal(t, 4, opts.MinIdleConns)
		assert.Equal(t, 2*time.Second, opts.DialTimeout)
		assert.Equal(t, 500*time.Millisecond, opts.ReadTimeout)
	})

	t.Run("keeps library defaults for zero values", func(t *testing.T) {
		opts, err := options(config.RedisConfig{URL: "redis://localhost:6379"})
		require.NoError(t, err)
		assert.Zero(t, opts.PoolSize)
		assert.Zero(t, opts.WriteTimeout)
	})

	t.Run("rejects malformed URL", func(t *testing.T) {
		_, err := options(config.RedisConfig{URL: "http://localhost"})
		require.Error(t, err)
	})
}
