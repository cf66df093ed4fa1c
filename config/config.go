package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Search   SearchConfig
	Sentry   SentryConfig
	Log      LogConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Name      string
	Env       string
	Version   string
	Port      string
	GinMode   string
	StaticDir string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	CacheTTL time.Duration
}

// Enabled reports whether the inquiry list cache should be used.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type KafkaConfig struct {
	Broker  string
	Topic   string
	GroupID string
}

func (c KafkaConfig) Enabled() bool {
	return c.Broker != ""
}

type SearchConfig struct {
	URL   string
	Index string
}

type SentryConfig struct {
	DSN string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig bounds every call to the storage collaborator.
type StorageConfig struct {
	Timeout      time.Duration
	ListAttempts int
	RetryBackoff time.Duration
}

// Load loads configuration from a .env file, if any, and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var parseErrs []error
	envInt := func(key string, defaultValue int) int {
		value, err := getEnvAsInt(key, defaultValue)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		return value
	}

	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "ziwuxx-api"),
			Env:       getEnv("APP_ENV", "development"),
			Version:   getEnv("APP_VERSION", "dev"),
			Port:      getEnv("PORT", "3000"),
			GinMode:   getEnv("GIN_MODE", "release"),
			StaticDir: getEnv("STATIC_DIR", ""),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "sqlite:///./inquiries.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			CacheTTL: time.Duration(envInt("CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Kafka: KafkaConfig{
			Broker:  getEnv("KAFKA_BROKER", ""),
			Topic:   getEnv("KAFKA_TOPIC", "inquiry_events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "inquiry-indexer"),
		},
		Search: SearchConfig{
			URL:   getEnv("ELASTICSEARCH_URL", ""),
			Index: getEnv("ELASTICSEARCH_INDEX", "inquiries"),
		},
		Sentry: SentryConfig{
			DSN: getEnv("SENTRY_DSN", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			Timeout:      time.Duration(envInt("STORAGE_TIMEOUT_MS", 5000)) * time.Millisecond,
			ListAttempts: envInt("STORAGE_RETRIES", 3),
			RetryBackoff: time.Duration(envInt("STORAGE_RETRY_BACKOFF_MS", 100)) * time.Millisecond,
		},
	}

	if err := errors.Join(parseErrs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.Storage.Timeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT_MS must be greater than 0")
	}
	if cfg.Storage.ListAttempts < 1 {
		return fmt.Errorf("STORAGE_RETRIES must be at least 1")
	}
	if cfg.Storage.RetryBackoff < 0 {
		return fmt.Errorf("STORAGE_RETRY_BACKOFF_MS must not be negative")
	}
	if cfg.Redis.Enabled() && cfg.Redis.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be greater than 0")
	}
	return nil
}

// IsPostgres checks if the database URL points at PostgreSQL.
func (c DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") ||
		strings.HasPrefix(c.URL, "postgresql://") ||
		strings.Contains(c.URL, "host=")
}

// PostgresDSN returns the URL as-is; pgx accepts both URL and key=value forms.
func (c DatabaseConfig) PostgresDSN() string {
	return c.URL
}

// SQLitePath extracts the file path from a sqlite:/// URL.
func (c DatabaseConfig) SQLitePath() string {
	return strings.TrimPrefix(c.URL, "sqlite:///")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be an integer, got %q", key, valueStr)
	}
	return value, nil
}
