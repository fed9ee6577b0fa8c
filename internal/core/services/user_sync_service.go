package services

import (
	"context"
	"fmt"

	"github.com/jupiterclapton/post-service/internal/core/domain"
	"github.com/jupiterclapton/post-service/internal/core/ports"
)

// UserSyncService est le SEUL composant qui écrit dans la réplique User.
// Chaque événement est traité dans sa propre UnitOfWork, jamais partagée avec
// une requête HTTP.
type UserSyncService struct {
	uow ports.UnitOfWorkFactory
}

func NewUserSyncService(uow ports.UnitOfWorkFactory) *UserSyncService {
	return &UserSyncService{uow: uow}
}

func (s *UserSyncService) AddUser(ctx context.Context, event domain.AddUserEvent) error {
	if event.ID == "" {
		return domain.BadRequest("user id may not be empty.")
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	// Garde d'existence : une redélivrance ne doit pas casser la réplique.
	existing, err := uow.Users().FindByID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("find user %s: %w", event.ID, err)
	}
	if existing != nil {
		return domain.ErrUserAlreadyExists
	}

	user := &domain.User{ID: event.ID, DisplayName: event.DisplayName}
	if err := uow.Users().Add(ctx, user); err != nil {
		return fmt.Errorf("add user %s: %w", event.ID, err)
	}

	affected, err := uow.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit user %s: %w", event.ID, err)
	}
	if affected == 0 {
		return domain.InternalServer("failed to add user %s.", event.ID)
	}
	return nil
}

func (s *UserSyncService) UpdateUser(ctx context.Context, event domain.UpdateUserEvent) error {
	if event.ID == "" {
		return domain.BadRequest("user id may not be empty.")
	}

	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	user, err := uow.Users().FindByID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("find user %s: %w", event.ID, err)
	}
	if user == nil {
		return domain.NotFound("user %s was not found.", event.ID)
	}

	user.Rename(event.DisplayName)
	if err := uow.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("update user %s: %w", event.ID, err)
	}

	affected, err := uow.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit user %s: %w", event.ID, err)
	}
	if affected == 0 {
		return domain.InternalServer("failed to update user %s.", event.ID)
	}
	return nil
}
