package ports

import (
	"context"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

type PostService interface {
	AddPost(ctx context.Context, callerID, content string) (*domain.Post, error)
	GetPostByID(ctx context.Context, postID string) (*domain.Post, error)
	GetPosts(ctx context.Context, userID string, count, offset int) ([]*domain.Post, error)
	DeletePost(ctx context.Context, postID, callerID string) error
}

// UserSyncService maintient la réplique User à partir des événements consommés.
type UserSyncService interface {
	AddUser(ctx context.Context, event domain.AddUserEvent) error
	UpdateUser(ctx context.Context, event domain.UpdateUserEvent) error
}
