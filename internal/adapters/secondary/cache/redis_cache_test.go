package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisPostCache_RoundTripAndInvalidate(t *testing.T) {
	rdb := setupRedis(t)
	c := NewRedisPostCache(rdb, time.Minute)
	ctx := context.Background()
	post := &domain.Post{
		ID:       uuid.NewString(),
		UserID:   "u1",
		Content:  "cached ✨",
		PostedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}

	miss, err := c.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Set(ctx, post))
	hit, err := c.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post, hit)

	ttl, err := rdb.TTL(ctx, keyPrefix+post.ID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx, post.ID))
	gone, err := c.Get(ctx, post.ID)
	require.Error(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestRedisPostCache_LateFillDoesNotOverwriteTombstone(t *testing.T) {
	rdb := setupRedis(t)
	c := NewRedisPostCache(rdb, time.Minute)
	ctx := context.Background()
	post := &domain.Post{ID: uuid.NewString(), UserID: "u1", Content: "bientôt supprimé"}

	// Lecture DB faite, suppression committée, puis remplissage tardif
	require.NoError(t, c.Invalidate(ctx, post.ID))
	require.NoError(t, c.Set(ctx, post))

	got, err := c.Get(ctx, post.ID)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	ttl, err := rdb.TTL(ctx, keyPrefix+post.ID).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, TombstoneTTL)
}

func TestNoopCache_AlwaysMisses(t *testing.T) {
	var c NoopCache
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &domain.Post{ID: "p1"}))
	got, err := c.Get(ctx, "p1")

	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.Invalidate(ctx, "p1"))
}
