package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "REDIS_ADDR", "OUTBOX_INTERVAL", "OUTBOX_BATCH_SIZE", "CORS_ALLOWED_ORIGINS", "JWT_AUDIENCE", "OTEL_TRACES_SAMPLE_RATIO"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8083", cfg.HTTPPort)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.JWTAudience)
	assert.Equal(t, 1.0, cfg.TraceSampleRatio)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", " 9000 ")
	t.Setenv("OUTBOX_INTERVAL", "2s")
	t.Setenv("OUTBOX_BATCH_SIZE", "25")
	t.Setenv("CONSUMER_MAX_DELIVER", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("JWT_AUDIENCE", "post-service")

	cfg := Load()

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, 2*time.Second, cfg.OutboxInterval)
	assert.Equal(t, 25, cfg.OutboxBatchSize)
	assert.Equal(t, 20, cfg.MaxDeliver)
	assert.Equal(t, "post-service", cfg.JWTAudience)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_SampleRatioOutOfRangeFallsBack(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "0.25")
	assert.Equal(t, 0.25, Load().TraceSampleRatio)

	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "3")
	assert.Equal(t, 1.0, Load().TraceSampleRatio)
}
