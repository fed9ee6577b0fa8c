package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

const postColumns = `id, user_id, content, posted_at`

type PostRepo struct {
	uow *unitOfWork
}

func (r *PostRepo) Add(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (id, user_id, content, posted_at)
		VALUES ($1, $2, $3, $4)
	`
	return r.uow.execCounted(ctx, query, post.ID, post.UserID, post.Content, post.PostedAt)
}

// FindByID retourne (nil, nil) si le post n'existe pas.
func (r *PostRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	p, err := scanPost(r.uow.tx.QueryRow(ctx, query, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListByUser : fenêtre offset/limit. L'ordre (posted_at DESC, id DESC) est stable,
// l'index posts_user_posted_idx le couvre.
func (r *PostRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE user_id = $1
		ORDER BY posted_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.uow.tx.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostRepo) Remove(ctx context.Context, postID string) error {
	return r.uow.execCounted(ctx, `DELETE FROM posts WHERE id = $1`, postID)
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.UserID, &p.Content, &p.PostedAt); err != nil {
		return nil, err
	}
	p.PostedAt = p.PostedAt.UTC()
	return &p, nil
}
