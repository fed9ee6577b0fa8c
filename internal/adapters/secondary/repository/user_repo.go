package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

// UserRepo écrit la réplique locale. Seul UserSyncService l'utilise en écriture.
type UserRepo struct {
	uow *unitOfWork
}

// Add n'écrase jamais une ligne existante : un conflit donne 0 ligne affectée,
// que le service traite comme une erreur serveur.
func (r *UserRepo) Add(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`
	return r.uow.execCounted(ctx, query, user.ID, user.DisplayName)
}

func (r *UserRepo) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := r.uow.tx.QueryRow(ctx, `SELECT id, display_name FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, user *domain.User) error {
	return r.uow.execCounted(ctx, `UPDATE users SET display_name = $2 WHERE id = $1`, user.ID, user.DisplayName)
}
