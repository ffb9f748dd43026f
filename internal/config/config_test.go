package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, StorageRedis, cfg.StorageBackend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, time.Duration(0), cfg.StateTTL)
	assert.Equal(t, 60*time.Second, cfg.LockTTL)
	assert.Equal(t, ProviderOpenAI, cfg.NarrationProvider)
	assert.InDelta(t, 0.8, cfg.NarrationTemperature, 0.0001)
	assert.Equal(t, 500, cfg.NarrationMaxTokens)
	assert.Equal(t, 30*time.Second, cfg.NarrationTimeout)
	assert.Empty(t, cfg.NarrationAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("STORAGE_BACKEND", " SQLite ")
	t.Setenv("STATE_TTL", "72h")
	t.Setenv("NARRATION_PROVIDER", "gemini")
	t.Setenv("NARRATION_TIMEOUT", "5s")
	t.Setenv("NARRATION_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, StorageSQLite, cfg.StorageBackend)
	assert.Equal(t, 72*time.Hour, cfg.StateTTL)
	assert.Equal(t, ProviderGemini, cfg.NarrationProvider)
	assert.Equal(t, 5*time.Second, cfg.NarrationTimeout)
	assert.Equal(t, "secret", cfg.NarrationAPIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "STORAGE_BACKEND", "postgres"},
		{"unknown provider", "NARRATION_PROVIDER", "ollama"},
		{"bad duration", "LOCK_TTL", "soon"},
		{"zero tokens", "NARRATION_MAX_TOKENS", "0"},
		{"zero lock ttl", "LOCK_TTL", "0s"},
		{"negative state ttl", "STATE_TTL", "-1h"},
		{"lock shorter than narration", "LOCK_TTL", "30s"},
		{"narration outlives lock", "NARRATION_TIMEOUT", "55s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_LockTTLFollowsNarrationTimeout(t *testing.T) {
	t.Setenv("NARRATION_TIMEOUT", "2m")
	t.Setenv("LOCK_TTL", "2m10s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 130*time.Second, cfg.LockTTL)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("chatty"))
}
