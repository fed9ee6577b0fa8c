package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

// OutboxRepo : les événements partent dans la même transaction que l'entité.
// Le relais (services.OutboxRelay) les publie après commit.
type OutboxRepo struct {
	uow *unitOfWork
}

func (r *OutboxRepo) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Topic(), err)
	}

	query := `
		INSERT INTO outbox (id, topic, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	return r.uow.exec(ctx, query, uuid.NewString(), event.Topic(), payload, time.Now().UTC())
}

// ClaimPending verrouille les plus anciennes lignes non publiées.
// SKIP LOCKED permet plusieurs relais en parallèle sans double traitement.
func (r *OutboxRepo) ClaimPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	query := `
		SELECT id, topic, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.uow.tx.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.OutboxMessage
	for rows.Next() {
		var m domain.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	return r.uow.exec(ctx, `UPDATE outbox SET published_at = $2 WHERE id = ANY($1)`, ids, at)
}
