package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "DATABASE_URL", "REDIS_ADDR", "EVENTS_CHANNEL",
		"RATE_LIMIT_PER_SEC", "ALLOWED_ORIGINS", "SEND_QUEUE_SIZE"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.Local())
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "blackjack:events", cfg.EventsChannel)
	assert.Equal(t, 10, cfg.RateLimit)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 32, cfg.SendQueueSize)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/bj")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("ALLOWED_ORIGINS", "localhost:3000, example.com ,")
	t.Setenv("RATE_LIMIT_PER_SEC", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.Local())
	assert.Equal(t, "postgres://u:p@db:5432/bj", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"localhost:3000", "example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 25, cfg.RateLimit)
}

func TestLoad_RejectsBadNumbers(t *testing.T) {
	for _, key := range []string{"PORT", "RATE_LIMIT_PER_SEC", "SEND_QUEUE_SIZE"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "zero")

			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}

	clearEnv(t)
	t.Setenv("SEND_QUEUE_SIZE", "0")
	_, err := Load()
	assert.Error(t, err)
}
