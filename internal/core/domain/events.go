package domain

import "time"

// Topics (contrat logique). Le nommage stream/queue relève du déploiement.
const (
	TopicPostAdded   = "post-added"
	TopicPostDeleted = "post-deleted"
	TopicUserAdded   = "user-added"
	TopicUserUpdated = "user-updated"
)

// Event est un payload émis par ce service.
type Event interface {
	Topic() string
}

type AddPostEvent struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	UserID   string    `json:"userId"`
	PostedAt time.Time `json:"postedAt"`
}

func (AddPostEvent) Topic() string { return TopicPostAdded }

func NewAddPostEvent(p *Post) AddPostEvent {
	return AddPostEvent{ID: p.ID, Content: p.Content, UserID: p.UserID, PostedAt: p.PostedAt}
}

type DeletePostEvent struct {
	ID string `json:"id"`
}

func (DeletePostEvent) Topic() string { return TopicPostDeleted }

// Événements consommés depuis l'identity-service.
type AddUserEvent struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type UpdateUserEvent struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// OutboxMessage est un événement sérialisé, en attente de relais vers le broker.
type OutboxMessage struct {
	ID        string
	Topic     string
	Payload   []byte
	CreatedAt time.Time
}
