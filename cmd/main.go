package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Drivers
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	// Instrumentation
	"github.com/exaring/otelpgx"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Interne
	"github.com/jupiterclapton/post-service/config"
	"github.com/jupiterclapton/post-service/internal/adapters/primary/events"
	"github.com/jupiterclapton/post-service/internal/adapters/primary/rest"
	"github.com/jupiterclapton/post-service/internal/adapters/secondary/cache"
	"github.com/jupiterclapton/post-service/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/post-service/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/post-service/internal/adapters/secondary/security"
	"github.com/jupiterclapton/post-service/internal/core/domain"
	"github.com/jupiterclapton/post-service/internal/core/ports"
	"github.com/jupiterclapton/post-service/internal/core/services"
)

const serviceName = "post-service"

func main() {
	// 1. Config & Logger
	cfg := config.Load()
	initLogger(cfg)
	slog.Info("🚀 Starting Post Service", "port", cfg.HTTPPort, "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Télémétrie (Tracing)
	shutdownTracer, err := initTracer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	// 3. Infrastructure: Base de données (Postgres)
	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		slog.Error("Unable to parse DB config", "error", err)
		os.Exit(1)
	}
	dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := repository.Migrate(ctx, dbPool); err != nil {
		slog.Error("Migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to Postgres")

	// 4. Infrastructure: Event Broker (NATS JetStream)
	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		slog.Error("Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		slog.Error("Unable to init JetStream", "error", err)
		os.Exit(1)
	}
	if err := eventbroker.EnsureOwnedStream(ctx, js, cfg.PostStream, []string{domain.TopicPostAdded, domain.TopicPostDeleted}); err != nil {
		slog.Error("Unable to ensure post stream", "error", err)
		os.Exit(1)
	}
	if err := eventbroker.EnsureForeignStream(ctx, js, cfg.UserStream, []string{domain.TopicUserAdded, domain.TopicUserUpdated}); err != nil {
		slog.Error("Unable to ensure user stream", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to NATS")

	// 5. Cache (optionnel)
	var postCache ports.PostCache = cache.NoopCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			slog.Warn("Redis tracing disabled", "error", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("Unable to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		postCache = cache.NewRedisPostCache(rdb, cfg.CacheTTL)
		slog.Info("✅ Connected to Redis")
	}

	// 6. Sécurité
	pemBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		slog.Error("Unable to read JWT public key", "path", cfg.JWTPublicKeyPath, "error", err)
		os.Exit(1)
	}
	validator, err := security.NewJWTValidator(pemBytes, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		slog.Error("Invalid JWT public key", "error", err)
		os.Exit(1)
	}

	// 7. Core
	uowFactory := repository.NewUnitOfWorkFactory(dbPool)
	postService := services.NewPostService(uowFactory, postCache)
	userSync := services.NewUserSyncService(uowFactory)
	relay := services.NewOutboxRelay(uowFactory, eventbroker.NewNatsPublisher(js), cfg.OutboxBatchSize, cfg.OutboxInterval)

	// 8. Workers: relais outbox + consumers
	go func() {
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Outbox relay stopped", "error", err)
		}
	}()

	subscriber := events.NewSubscriber(js, events.SubscriberConfig{
		Stream:        cfg.UserStream,
		ConsumerGroup: cfg.ConsumerGroup,
		MaxDeliver:    cfg.MaxDeliver,
		Concurrency:   cfg.ConsumerWorker,
	})
	if err := subscriber.SubscribeAll(ctx, events.Routes(userSync)); err != nil {
		slog.Error("Unable to subscribe", "error", err)
		os.Exit(1)
	}

	// 9. Primary Adapter (HTTP)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           rest.NewRouter(postService, validator, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("📡 Post Service listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	subscriber.Stop()
	cancel()
	slog.Info("👋 Server exited")
}

// --- Helpers ---

// initLogger : texte en local, JSON ailleurs. LOG_LEVEL prime sur le niveau par défaut.
func initLogger(cfg config.Config) {
	level := logLevel(cfg)

	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: true})
	}
	slog.SetDefault(slog.New(handler).With("service", serviceName, "env", cfg.Env))
}

func logLevel(cfg config.Config) slog.Level {
	var level slog.Level
	if cfg.LogLevel != "" && level.UnmarshalText([]byte(cfg.LogLevel)) == nil {
		return level
	}
	if cfg.Env == "local" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// initTracer installe le provider OTLP et les propagateurs utilisés par les en-têtes NATS.
func initTracer(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)
	if err != nil {
		slog.Warn("Partial telemetry resource", "error", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TraceSampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
