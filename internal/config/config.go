package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends.
const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Narration providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderVenice    = "venice"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// lockHeadroom covers the load and save around a narration call.
const lockHeadroom = 10 * time.Second

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"redis"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"./data/pangaea.db"`
	StateTTL       time.Duration `env:"STATE_TTL" envDefault:"0s"` // 0 keeps saves forever
	LockTTL        time.Duration `env:"LOCK_TTL" envDefault:"60s"`

	NarrationProvider    string        `env:"NARRATION_PROVIDER" envDefault:"openai"`
	NarrationBaseURL     string        `env:"NARRATION_BASE_URL"`
	NarrationModel       string        `env:"NARRATION_MODEL"`
	NarrationTemperature float64       `env:"NARRATION_TEMPERATURE" envDefault:"0.8"`
	NarrationMaxTokens   int           `env:"NARRATION_MAX_TOKENS" envDefault:"500"`
	NarrationTimeout     time.Duration `env:"NARRATION_TIMEOUT" envDefault:"30s"`
	NarrationAPIKey      string        `env:"NARRATION_API_KEY"` // seeds the credential store when set
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.NarrationProvider = strings.ToLower(strings.TrimSpace(cfg.NarrationProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backends and nonsensical narration settings.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageRedis, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.NarrationProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderVenice, ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("unknown NARRATION_PROVIDER %q", c.NarrationProvider)
	}

	if c.NarrationMaxTokens <= 0 {
		return fmt.Errorf("NARRATION_MAX_TOKENS must be positive, got %d", c.NarrationMaxTokens)
	}
	if c.NarrationTimeout <= 0 {
		return fmt.Errorf("NARRATION_TIMEOUT must be positive, got %s", c.NarrationTimeout)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL)
	}
	// The session lock has to outlive a narration call that runs to its timeout.
	if c.LockTTL < c.NarrationTimeout+lockHeadroom {
		return fmt.Errorf("LOCK_TTL (%s) must exceed NARRATION_TIMEOUT (%s) by at least %s",
			c.LockTTL, c.NarrationTimeout, lockHeadroom)
	}
	if c.StateTTL < 0 {
		return fmt.Errorf("STATE_TTL cannot be negative")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
