package config

import (
	"fmt"
	"time"

	"fable-server/internal/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime configuration for the collaboration server.
// Secrets (DB password, JWT secret) are read from files, never from
// environment variables, so they have no envconfig tags.
type Config struct {
	// Server
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	DBPassword    string

	// Redis (invite token index)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// RabbitMQ (outbound notifications)
	RabbitMQURL       string `envconfig:"RABBITMQ_URL" required:"true"`
	NotificationQueue string `envconfig:"NOTIFICATION_QUEUE" default:"story_notifications"`

	// JWT (verification of user tokens issued by the identity service)
	JWTSecret string
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig reads configuration from the environment and secrets from
// the secret files.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var err error
	cfg.DBPassword, err = utils.ReadSecret("db_password")
	if err != nil {
		return nil, err
	}
	cfg.JWTSecret, err = utils.ReadSecret("jwt_secret")
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
