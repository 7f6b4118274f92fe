package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	// HTTP
	Port   string
	AppURL string

	// Storage. DatabaseURL is a PostgreSQL DSN or sqlite://path. Redis and
	// MongoDB are optional; an empty URL disables the component.
	DatabaseURL     string
	RedisURL        string
	MongoURI        string
	MongoDatabase   string
	DatabaseLogging bool

	// Shopify
	ShopifyAPIKey         string
	ShopifyAPISecret      string
	ShopifyWebhookSecret  string
	ShopifyRequestTimeout time.Duration

	// Sync
	SyncPageSize          int
	SyncSchedulerInterval time.Duration
	WebhookDedupeTTL      time.Duration

	// Tenancy
	DefaultTenantID string

	LogLevel string
}

// Load reads configuration from the environment, after loading a .env file
// if one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	timeout, err := getEnvAsDuration("SHOPIFY_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	interval, err := getEnvAsDuration("SYNC_SCHEDULER_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	dedupeTTL, err := getEnvAsDuration("WEBHOOK_DEDUPE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	pageSize, err := getEnvAsInt("SYNC_PAGE_SIZE", 250)
	if err != nil {
		return nil, err
	}

	apiSecret := getEnv("SHOPIFY_API_SECRET", "")
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		AppURL:                strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		DatabaseURL:           getEnv("DATABASE_URL", "sqlite://commerce-sync.db"),
		RedisURL:              getEnv("REDIS_URL", ""),
		MongoURI:              getEnv("MONGODB_URI", ""),
		MongoDatabase:         getEnv("MONGODB_DATABASE", "commerce_sync"),
		DatabaseLogging:       getEnv("DATABASE_LOGGING", "false") == "true",
		ShopifyAPIKey:         getEnv("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:      apiSecret,
		ShopifyWebhookSecret:  getEnv("SHOPIFY_WEBHOOK_SECRET", apiSecret),
		ShopifyRequestTimeout: timeout,
		SyncPageSize:          pageSize,
		SyncSchedulerInterval: interval,
		WebhookDedupeTTL:      dedupeTTL,
		DefaultTenantID:       getEnv("DEFAULT_TENANT_ID", "default"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can start the service
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ShopifyWebhookSecret == "" {
		return fmt.Errorf("SHOPIFY_WEBHOOK_SECRET or SHOPIFY_API_SECRET is required to verify webhooks")
	}
	if c.SyncPageSize < 1 || c.SyncPageSize > 250 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be between 1 and 250, got %d", c.SyncPageSize)
	}
	if c.ShopifyRequestTimeout <= 0 {
		return fmt.Errorf("SHOPIFY_REQUEST_TIMEOUT must be positive")
	}
	if c.SyncSchedulerInterval < 0 {
		return fmt.Errorf("SYNC_SCHEDULER_INTERVAL must not be negative")
	}
	if c.DefaultTenantID == "" {
		return fmt.Errorf("DEFAULT_TENANT_ID must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the configured zerolog level
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WebhookCallbackURL is where the remote platform delivers a store's webhooks
func (c *Config) WebhookCallbackURL(storeID string) string {
	return fmt.Sprintf("%s/webhooks/shopify/%s", c.AppURL, storeID)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return intValue, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
