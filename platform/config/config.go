// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides redis connection settings for the task queue.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// WorkerConfig provides settings for the claims-sync worker.
type WorkerConfig interface {
	RedisConfig
	GetQueueName() string
	GetConcurrency() int
	GetMaxRetry() int
}

// FirebaseConfig provides settings for the Firebase Auth provider adapter.
type FirebaseConfig interface {
	GetFirebaseProjectID() string
	GetFirebaseCredentialsFile() string
}

// ReplyStoreConfig provides settings for the command reply store.
type ReplyStoreConfig interface {
	RedisConfig
	GetReplyTTL() time.Duration
}

// SearchConfig provides settings for user search pagination.
type SearchConfig interface {
	GetSearchPageSize() int
	GetListRateLimit() float64
}

// SyncConfig aggregates everything the claims-sync worker needs.
type SyncConfig interface {
	WorkerConfig
	ReplyStoreConfig
	SearchConfig
}

// =============================================================================
// Config
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env string

	DatabaseURL string

	RedisURL         string
	RedisTLSInsecure bool
	QueueName        string
	Concurrency      int
	MaxRetry         int

	FirebaseProjectID       string
	FirebaseCredentialsFile string

	ReplyTTL time.Duration

	SearchPageSize int
	ListRateLimit  float64
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be fully populated already.
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure: getBoolEnv("REDIS_TLS_INSECURE", false),
		QueueName:        getEnv("CLAIMS_SYNC_QUEUE", "claims-sync"),
		Concurrency:      getIntEnv("CLAIMS_SYNC_CONCURRENCY", 10),
		MaxRetry:         getIntEnv("CLAIMS_SYNC_MAX_RETRY", 10),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),

		ReplyTTL: getDurationEnv("COMMAND_REPLY_TTL", 5*time.Minute),

		SearchPageSize: getIntEnv("USER_SEARCH_PAGE_SIZE", 100),
		ListRateLimit:  getFloatEnv("USER_LIST_RATE_LIMIT", 5),
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetQueueName() string      { return c.QueueName }
func (c *Config) GetConcurrency() int       { return c.Concurrency }
func (c *Config) GetMaxRetry() int          { return c.MaxRetry }

func (c *Config) GetFirebaseProjectID() string       { return c.FirebaseProjectID }
func (c *Config) GetFirebaseCredentialsFile() string { return c.FirebaseCredentialsFile }

func (c *Config) GetReplyTTL() time.Duration { return c.ReplyTTL }

func (c *Config) GetSearchPageSize() int    { return c.SearchPageSize }
func (c *Config) GetListRateLimit() float64 { return c.ListRateLimit }

// =============================================================================
// Env helpers
// =============================================================================

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func getFloatEnv(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func getBoolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
