package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

const (
	keyPrefix = "post:"
	tombstone = "deleted"
	// TombstoneTTL doit couvrir la fenêtre lecture DB -> remplissage du cache.
	TombstoneTTL = time.Minute
)

// cachedPost : DTO interne, le domaine ne porte pas de tags JSON de cache.
type cachedPost struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Content  string    `json:"content"`
	PostedAt time.Time `json:"posted_at"`
}

// RedisPostCache : cache read-through pour GetPostByID.
// Un post n'est jamais modifié en place. La suppression pose une tombe que Set
// (SETNX) ne peut pas écraser : un remplissage tardif ne ressuscite pas le post.
type RedisPostCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisPostCache(client redis.Cmdable, ttl time.Duration) *RedisPostCache {
	return &RedisPostCache{client: client, ttl: ttl}
}

func (c *RedisPostCache) Get(ctx context.Context, postID string) (*domain.Post, error) {
	raw, err := c.client.Get(ctx, keyPrefix+postID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if string(raw) == tombstone {
		return nil, domain.NotFound("post %s was not found.", postID)
	}

	var cp cachedPost
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("decode cached post: %w", err)
	}
	return &domain.Post{ID: cp.ID, UserID: cp.UserID, Content: cp.Content, PostedAt: cp.PostedAt.UTC()}, nil
}

func (c *RedisPostCache) Set(ctx context.Context, post *domain.Post) error {
	raw, err := json.Marshal(cachedPost{ID: post.ID, UserID: post.UserID, Content: post.Content, PostedAt: post.PostedAt})
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, keyPrefix+post.ID, raw, c.ttl).Err()
}

// Invalidate remplace l'entrée par une tombe de courte durée.
func (c *RedisPostCache) Invalidate(ctx context.Context, postID string) error {
	return c.client.Set(ctx, keyPrefix+postID, tombstone, TombstoneTTL).Err()
}

// NoopCache est utilisé quand REDIS_ADDR est vide.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*domain.Post, error) { return nil, nil }
func (NoopCache) Set(context.Context, *domain.Post) error           { return nil }
func (NoopCache) Invalidate(context.Context, string) error          { return nil }
