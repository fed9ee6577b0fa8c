package rest

import (
	"time"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

type PostDTO struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	UserID   string    `json:"userId"`
	PostedAt time.Time `json:"postedAt"`
}

type CreatePostRequest struct {
	Content string `json:"content"`
}

func toPostDTO(p *domain.Post) PostDTO {
	return PostDTO{ID: p.ID, Content: p.Content, UserID: p.UserID, PostedAt: p.PostedAt}
}

func toPostDTOs(posts []*domain.Post) []PostDTO {
	out := make([]PostDTO, len(posts))
	for i, p := range posts {
		out[i] = toPostDTO(p)
	}
	return out
}
