package ports

import (
	"context"
	"time"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

// Les repositories écrivent dans la transaction de leur UnitOfWork.
// Les lectures absentes retournent (nil, nil) : c'est au service de décider de l'erreur.
type PostRepository interface {
	Add(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, postID string) (*domain.Post, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Post, error)
	Remove(ctx context.Context, postID string) error
}

type UserRepository interface {
	Add(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// EventPublisher est le côté "publish" de l'Event Channel vu par le domaine.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// OutboxRepository : les événements sont écrits dans la même transaction que l'entité,
// puis relayés vers le broker après commit.
type OutboxRepository interface {
	EventPublisher
	ClaimPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// UnitOfWork regroupe des écritures derrière un seul Commit.
// Commit retourne le nombre de lignes affectées (0 = rien n'a été persisté).
// Rollback est sûr à différer et sans effet après Commit.
type UnitOfWork interface {
	Posts() PostRepository
	Users() UserRepository
	Events() OutboxRepository
	Commit(ctx context.Context) (int64, error)
	Rollback(ctx context.Context) error
}

type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// BrokerPublisher publie un message déjà sérialisé. key sert de clé d'idempotence.
type BrokerPublisher interface {
	PublishRaw(ctx context.Context, topic, key string, payload []byte) error
}

// PostCache est un cache de lecture. Un miss retourne (nil, nil).
// Après Invalidate, Get retourne une erreur NotFound et Set n'a plus d'effet
// tant que la tombe n'a pas expiré.
type PostCache interface {
	Get(ctx context.Context, postID string) (*domain.Post, error)
	Set(ctx context.Context, post *domain.Post) error
	Invalidate(ctx context.Context, postID string) error
}

// TokenValidator vérifie un jeton d'accès et retourne l'identité de l'appelant (claim sub).
type TokenValidator interface {
	Validate(token string) (string, error)
}
