package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/lightcheck/internal/vec"
	"github.com/annel0/lightcheck/internal/world"
)

func TestChunkKey(t *testing.T) {
	coords := vec.Vec3{X: -1, Y: 2, Z: 3}

	assert.Equal(t, "lightcheck:w:audit:-1:2:3:sky,block", ChunkKey("w", coords, nil))
	assert.Equal(t, "lightcheck:w:audit:-1:2:3:block", ChunkKey("w", coords, []world.LightChannel{world.BlockLight}))
	assert.Equal(t, ChunkKey("w", coords, nil), ChunkKey("w", coords, []world.LightChannel{world.SkyLight, world.BlockLight}))
	assert.Contains(t, ChunkKey("w", coords, nil), WorldPrefix("w"))
	assert.NotContains(t, ChunkKey("other", coords, nil), WorldPrefix("w"))
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	c := NewMemoryCache(nil)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Возвращаемый срез не разделяет память с кешем
	got[0] = 'x'
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))

	m := c.GetMetrics()
	assert.Equal(t, int64(4), m.TotalRequests)
	assert.Equal(t, int64(2), m.CacheHits)
	assert.Equal(t, int64(2), m.CacheMisses)
	assert.InDelta(t, 0.5, m.HitRatio, 1e-9)
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(&CacheConfig{DefaultTTL: time.Minute, MaxTTL: 2 * time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "default", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "capped", []byte("b"), time.Hour))

	now = now.Add(59 * time.Second)
	_, err := c.Get(ctx, "default")
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "default")
	assert.True(t, IsCacheMiss(err), "истёк DefaultTTL")

	_, err = c.Get(ctx, "capped")
	assert.NoError(t, err)
	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "capped")
	assert.True(t, IsCacheMiss(err), "TTL ограничен MaxTTL")
}

func TestMemoryCache_InvalidatePrefix(t *testing.T) {
	c := NewMemoryCache(nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, ChunkKey("a", vec.Vec3{X: i}, nil), []byte("{}"), 0))
	}
	require.NoError(t, c.Set(ctx, ChunkKey("b", vec.Vec3{}, nil), []byte("{}"), 0))

	n, err := c.InvalidatePrefix(ctx, WorldPrefix("a"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = c.Get(ctx, ChunkKey("b", vec.Vec3{}, nil))
	assert.NoError(t, err)
}

func TestMemoryCache_Closed(t *testing.T) {
	c := NewMemoryCache(nil)
	require.NoError(t, c.Close())

	ctx := context.Background()
	_, err := c.Get(ctx, "k")
	assert.Equal(t, ErrCacheClose, err)
	assert.Equal(t, ErrCacheClose, c.Set(ctx, "k", nil, 0))
}

func TestNew_WithoutRedis(t *testing.T) {
	c, err := New(&CacheConfig{})
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &MemoryCache{}, c)
}

func TestRedisCache_BasicOperations(t *testing.T) {
	addr := os.Getenv("LIGHTCHECK_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	redisCache, err := NewRedisCache(&CacheConfig{RedisURL: addr, DefaultTTL: 10 * time.Second})
	if err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
		return
	}
	defer redisCache.Close()

	ctx := context.Background()
	prefix := WorldPrefix("cache-test")
	_, err = redisCache.InvalidatePrefix(ctx, prefix)
	require.NoError(t, err)

	key := ChunkKey("cache-test", vec.Vec3{X: 1}, nil)
	require.NoError(t, redisCache.Set(ctx, key, []byte("value"), 5*time.Second))

	got, err := redisCache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	require.NoError(t, redisCache.Set(ctx, ChunkKey("cache-test", vec.Vec3{X: 2}, nil), []byte("v2"), 0))
	n, err := redisCache.InvalidatePrefix(ctx, prefix)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = redisCache.Get(ctx, key)
	assert.True(t, IsCacheMiss(err))
	assert.Equal(t, int64(1), redisCache.GetMetrics().CacheHits)
}
