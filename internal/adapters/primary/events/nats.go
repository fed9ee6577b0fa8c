package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ackMsg est le sous-ensemble de jetstream.Msg utilisé ici.
type ackMsg interface {
	Data() []byte
	Headers() nats.Header
	Subject() string
	Ack() error
	Nak() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

type SubscriberConfig struct {
	Stream        string
	ConsumerGroup string // préfixe des noms durables, ex: "post-service"
	MaxDeliver    int
	AckWait       time.Duration
	RetryDelay    time.Duration
	Concurrency   int // messages traités en parallèle par topic
}

// Subscriber : un consumer JetStream durable par topic. Un topic en échec ne bloque
// jamais les autres.
type Subscriber struct {
	js       jetstream.JetStream
	cfg      SubscriberConfig
	tracer   trace.Tracer
	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
	inflight sync.WaitGroup
}

func NewSubscriber(js jetstream.JetStream, cfg SubscriberConfig) *Subscriber {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Subscriber{js: js, cfg: cfg, tracer: otel.Tracer("post-service")}
}

// SubscribeAll enregistre toute la table de routage.
func (s *Subscriber) SubscribeAll(ctx context.Context, routes map[string]HandlerFunc) error {
	topics := make([]string, 0, len(routes))
	for topic := range routes {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		if err := s.Subscribe(ctx, topic, routes[topic]); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe crée (ou reprend) le consumer durable du topic et démarre la consommation.
// ctx vit aussi longtemps que le process.
func (s *Subscriber) Subscribe(ctx context.Context, topic string, handler HandlerFunc) error {
	durable := s.cfg.ConsumerGroup + "-" + topic
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, s.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: topic,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       s.cfg.AckWait,
		MaxDeliver:    s.cfg.MaxDeliver,
		MaxAckPending: s.cfg.Concurrency * 4,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", durable, err)
	}

	slots := make(chan struct{}, s.cfg.Concurrency)
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		slots <- struct{}{}
		s.inflight.Add(1)
		go func() {
			defer func() {
				<-slots
				s.inflight.Done()
			}()
			s.handle(ctx, topic, handler, msg)
		}()
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", durable, err)
	}

	s.mu.Lock()
	s.consumes = append(s.consumes, cc)
	s.mu.Unlock()

	slog.Info("👂 Listening for events", "topic", topic, "durable", durable)
	return nil
}

// Stop arrête la consommation et attend les messages en cours.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	for _, cc := range s.consumes {
		cc.Stop()
	}
	s.consumes = nil
	s.mu.Unlock()

	s.inflight.Wait()
}

func (s *Subscriber) handle(ctx context.Context, topic string, handler HandlerFunc, msg ackMsg) {
	// 1. Extraction du contexte de trace (lien avec le producteur)
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(msg.Headers()))
	ctx, span := s.tracer.Start(ctx, "consume "+topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination.name", msg.Subject())),
	)
	defer span.End()

	// 2. Traitement puis décision d'acquittement
	err := handler(ctx, msg.Data())
	disposition := Classify(err)
	if err != nil {
		span.RecordError(err)
		if disposition != Ack {
			span.SetStatus(codes.Error, err.Error())
		}
	}

	var ackErr error
	switch disposition {
	case Ack:
		ackErr = msg.Ack()
	case Retry:
		ackErr = msg.NakWithDelay(s.cfg.RetryDelay)
	case Redeliver:
		ackErr = msg.Nak()
	case Drop:
		ackErr = msg.Term()
	}

	switch {
	case err == nil:
		slog.Debug("✅ Event handled", "topic", topic)
	case disposition == Ack:
		slog.Info("Duplicate event acknowledged", "topic", topic, "reason", err)
	default:
		slog.Error("❌ Event handling failed", "topic", topic, "disposition", disposition.String(), "error", err)
	}
	if ackErr != nil {
		slog.Error("Failed to settle message", "topic", topic, "disposition", disposition.String(), "error", ackErr)
	}
}
