package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/post-service/internal/core/ports"
)

// OutboxRelay transfère les lignes outbox committées vers le broker.
// Garantie : aucune notification pour une donnée jamais persistée. La publication est
// at-least-once ; l'id de la ligne sert de clé d'idempotence côté broker.
type OutboxRelay struct {
	uow       ports.UnitOfWorkFactory
	broker    ports.BrokerPublisher
	batchSize int
	interval  time.Duration
	now       func() time.Time
}

func NewOutboxRelay(uow ports.UnitOfWorkFactory, broker ports.BrokerPublisher, batchSize int, interval time.Duration) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelay{
		uow:       uow,
		broker:    broker,
		batchSize: batchSize,
		interval:  interval,
		now:       time.Now,
	}
}

// Run tourne jusqu'à l'annulation du contexte.
func (r *OutboxRelay) Run(ctx context.Context) error {
	slog.Info("📤 Outbox relay started", "interval", r.interval, "batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain enchaîne les lots tant qu'ils sont pleins.
func (r *OutboxRelay) drain(ctx context.Context) {
	for {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			slog.Error("❌ Outbox relay failed", "relayed", n, "error", err)
			return
		}
		if n < r.batchSize {
			return
		}
	}
}

// RelayOnce traite un lot et retourne le nombre de messages publiés.
// Un échec de publication arrête le lot, mais les messages déjà publiés sont marqués.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	uow, err := r.uow.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	pending, err := uow.Events().ClaimPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	published := make([]string, 0, len(pending))
	var publishErr error
	for _, msg := range pending {
		if err := r.broker.PublishRaw(ctx, msg.Topic, msg.ID, msg.Payload); err != nil {
			publishErr = fmt.Errorf("publish %s on %s: %w", msg.ID, msg.Topic, err)
			break
		}
		published = append(published, msg.ID)
	}

	if len(published) > 0 {
		if err := uow.Events().MarkPublished(ctx, published, r.now().UTC()); err != nil {
			return 0, fmt.Errorf("mark outbox published: %w", err)
		}
		if _, err := uow.Commit(ctx); err != nil {
			return 0, fmt.Errorf("commit outbox: %w", err)
		}
		slog.Debug("Outbox relayed", "count", len(published))
	}

	return len(published), publishErr
}
