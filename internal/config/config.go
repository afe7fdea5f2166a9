package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port      int    `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Shippo
	ShippoAPIKey     string        `envconfig:"SHIPPO_API_KEY"`
	ShippoBaseURL    string        `envconfig:"SHIPPO_BASE_URL" default:"https://api.goshippo.com"`
	ShippoAuthScheme string        `envconfig:"SHIPPO_AUTH_SCHEME" default:"ShippoToken"`
	ShippoTimeout    time.Duration `envconfig:"SHIPPO_TIMEOUT" default:"30s"`
	ShippoUseMock    bool          `envconfig:"SHIPPO_USE_MOCK" default:"false"`

	// Trade store. Empty keeps trades in memory.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Label ledger. Empty keeps labels in memory.
	MongoURI     string        `envconfig:"MONGO_URI"`
	MongoDB      string        `envconfig:"MONGO_DB" default:"tradepost"`
	MongoTimeout time.Duration `envconfig:"MONGO_TIMEOUT" default:"10s"`

	// Purchase lock. Empty uses a process-local lock.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"2m"`

	// Label events. No brokers disables publishing.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"tradepost.labels"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"tradepost"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.LockTTL <= 0 {
		return nil, fmt.Errorf("loading config: LOCK_TTL must be positive, got %s", cfg.LockTTL)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("shippo.mock", c.ShippoUseMock),
		attribute.Bool("postgres.enabled", c.DatabaseURL != ""),
		attribute.Bool("mongodb.enabled", c.MongoURI != ""),
		attribute.Bool("redis.enabled", c.RedisAddr != ""),
		attribute.Bool("kafka.enabled", len(c.KafkaBrokers) > 0),
	}
}
