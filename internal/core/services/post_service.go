package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/post-service/internal/core/domain"
	"github.com/jupiterclapton/post-service/internal/core/ports"
)

const (
	MinPageSize = 1
	MaxPageSize = 10
)

// PostService implémente ports.PostService.
// Règle d'or : on valide TOUT avant d'agir. Aucune écriture, aucun événement, aucun
// commit sur un échec de précondition.
type PostService struct {
	uow   ports.UnitOfWorkFactory
	cache ports.PostCache
	now   func() time.Time
}

func NewPostService(uow ports.UnitOfWorkFactory, cache ports.PostCache) *PostService {
	return &PostService{uow: uow, cache: cache, now: time.Now}
}

func (s *PostService) AddPost(ctx context.Context, callerID, content string) (*domain.Post, error) {
	// 1. Fail fast : contenu vide, puis trop long
	if err := domain.ValidateContent(content); err != nil {
		return nil, err
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	// 2. L'auteur doit exister dans la réplique. Le retard de réplication est le
	// problème de l'appelant, d'où un 400 et pas un 500.
	user, err := uow.Users().FindByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", callerID, err)
	}
	if user == nil {
		return nil, domain.BadRequest("user %s does not exist.", callerID)
	}

	post, err := domain.NewPost(user.ID, content, s.now())
	if err != nil {
		return nil, err
	}

	// 3. Entité + événement dans la MÊME transaction (outbox)
	if err := uow.Posts().Add(ctx, post); err != nil {
		return nil, fmt.Errorf("add post: %w", err)
	}
	if err := uow.Events().Publish(ctx, domain.NewAddPostEvent(post)); err != nil {
		return nil, fmt.Errorf("stage post-added event: %w", err)
	}

	// 4. Commit
	affected, err := uow.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("commit post %s: %w", post.ID, err)
	}
	if affected == 0 {
		return nil, domain.InternalServer("failed to persist post %s.", post.ID)
	}

	return post, nil
}

// GetPostByID ne vérifie aucune autorisation : tout le monde peut lire un post.
func (s *PostService) GetPostByID(ctx context.Context, postID string) (*domain.Post, error) {
	cached, err := s.cache.Get(ctx, postID)
	switch {
	case domain.IsKind(err, domain.KindNotFound):
		// Tombe posée par DeletePost
		return nil, err
	case err != nil:
		slog.Warn("Post cache read failed", "post_id", postID, "error", err)
	case cached != nil:
		return cached, nil
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	post, err := uow.Posts().FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("find post %s: %w", postID, err)
	}
	if post == nil {
		return nil, domain.NotFound("post %s was not found.", postID)
	}

	if err := s.cache.Set(ctx, post); err != nil {
		slog.Warn("Post cache write failed", "post_id", postID, "error", err)
	}
	return post, nil
}

// GetPosts : pagination offset/count simple (pas de curseur).
// Ordre stable : posted_at DESC, puis id DESC.
func (s *PostService) GetPosts(ctx context.Context, userID string, count, offset int) ([]*domain.Post, error) {
	if offset < 0 {
		return nil, domain.BadRequest("offset may not be negative.")
	}
	if count < MinPageSize || count > MaxPageSize {
		return nil, domain.BadRequest("count must be between %d and %d.", MinPageSize, MaxPageSize)
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	user, err := uow.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", userID, err)
	}
	if user == nil {
		return nil, domain.BadRequest("user %s does not exist.", userID)
	}

	posts, err := uow.Posts().ListByUser(ctx, userID, count, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts of %s: %w", userID, err)
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	return posts, nil
}

func (s *PostService) DeletePost(ctx context.Context, postID, callerID string) error {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	// 1. Récupérer l'existant
	post, err := uow.Posts().FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("find post %s: %w", postID, err)
	}
	if post == nil {
		return domain.NotFound("post %s was not found.", postID)
	}

	// 2. Vérification de propriété
	if !post.IsOwnedBy(callerID) {
		return domain.Forbidden("user %s is not allowed to delete post %s.", callerID, postID)
	}

	// 3. Suppression + événement
	if err := uow.Posts().Remove(ctx, postID); err != nil {
		return fmt.Errorf("remove post %s: %w", postID, err)
	}
	if err := uow.Events().Publish(ctx, domain.DeletePostEvent{ID: postID}); err != nil {
		return fmt.Errorf("stage post-deleted event: %w", err)
	}

	affected, err := uow.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit delete of post %s: %w", postID, err)
	}
	if affected == 0 {
		return domain.InternalServer("failed to delete post %s.", postID)
	}

	if err := s.cache.Invalidate(ctx, postID); err != nil {
		slog.Warn("Post cache invalidation failed", "post_id", postID, "error", err)
	}
	return nil
}
