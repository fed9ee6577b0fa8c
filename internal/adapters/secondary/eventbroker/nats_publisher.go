package eventbroker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// DedupWindow : fenêtre pendant laquelle JetStream ignore un Nats-Msg-Id déjà vu.
// Le relais outbox peut republier un message, la clé rend la publication idempotente.
const DedupWindow = 2 * time.Minute

type NatsPublisher struct {
	js jetstream.JetStream
}

func NewNatsPublisher(js jetstream.JetStream) *NatsPublisher {
	return &NatsPublisher{js: js}
}

// PublishRaw publie un payload déjà sérialisé (ligne outbox).
// key devient l'en-tête Nats-Msg-Id.
func (p *NatsPublisher) PublishRaw(ctx context.Context, topic, key string, payload []byte) error {
	msg := newMessage(ctx, topic, key, payload)

	ack, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}

	slog.Debug("📢 Event published", "topic", topic, "key", key, "seq", ack.Sequence, "duplicate", ack.Duplicate)
	return nil
}

// newMessage prépare le message et y injecte le contexte de trace courant.
func newMessage(ctx context.Context, topic, key string, payload []byte) *nats.Msg {
	msg := &nats.Msg{
		Subject: topic,
		Data:    payload,
		Header:  nats.Header{},
	}
	if key != "" {
		msg.Header.Set(nats.MsgIdHdr, key)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg
}

// EnsureOwnedStream crée ou met à jour un stream dont ce service est propriétaire (idempotent).
func EnsureOwnedStream(ctx context.Context, js jetstream.JetStream, name string, subjects []string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   subjects,
		Storage:    jetstream.FileStorage,
		Replicas:   1, // 3 en cluster
		Duplicates: DedupWindow,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

// EnsureForeignStream vérifie qu'un stream appartenant à un autre service existe,
// et ne le crée que s'il est absent (sans jamais écraser sa configuration).
func EnsureForeignStream(ctx context.Context, js jetstream.JetStream, name string, subjects []string) error {
	_, err := js.Stream(ctx, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("lookup stream %s: %w", name, err)
	}

	slog.Warn("Stream not found, creating it", "stream", name, "subjects", subjects)
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if err != nil && !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}
