// Package config provides configuration structures and validation for the settlement services.
// It handles environment-based configuration for the HTTP gateway, the settlement worker and the
// admin CLI, including databases, message queues, acquiring providers and fee defaults.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Gateways    GatewaysConfig
	Fees        FeesConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	LedgerEventsTopic string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files, empty skips migrations
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
	// Retention is how long PROCESSED rows are kept; zero keeps them forever.
	Retention     time.Duration
	PurgeInterval time.Duration
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// GatewaysConfig holds credentials and routing for the acquiring providers.
// Webhook secrets may be empty; the webhook pipeline then rejects every delivery.
type GatewaysConfig struct {
	HTTPTimeout          time.Duration
	DepositGateway       string
	WithdrawalGateway    string
	WebhookPublicBaseURL string

	KeyClubBaseURL       string
	KeyClubAPIKey        string
	KeyClubWebhookSecret string

	XFlowBaseURL       string
	XFlowClientID      string
	XFlowClientSecret  string
	XFlowWebhookSecret string
	XFlowTokenTTL      time.Duration
}

// FeesConfig holds the global withdrawal fee defaults used when the settings store has no value.
type FeesConfig struct {
	WithdrawPercent     string // decimal percent, e.g. "8"
	WithdrawFixed       string // decimal currency units, e.g. "2.00"
	MinWithdrawNetCents int64
}

// validate performs validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.LedgerEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_LEDGER_EVENTS_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}
	if c.Outbox.Retention < 0 {
		validationErrors = append(validationErrors, "OUTBOX_RETENTION cannot be negative")
	}
	if c.Outbox.Retention > 0 && c.Outbox.PurgeInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_PURGE_INTERVAL must be greater than 0 when OUTBOX_RETENTION is set")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate gateway config
	if c.Gateways.HTTPTimeout <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_HTTP_TIMEOUT must be greater than 0")
	}
	if !isKnownGateway(c.Gateways.DepositGateway) {
		validationErrors = append(validationErrors, "DEPOSIT_GATEWAY must be one of keyclub, xflow")
	}
	if !isKnownGateway(c.Gateways.WithdrawalGateway) {
		validationErrors = append(validationErrors, "WITHDRAWAL_GATEWAY must be one of keyclub, xflow")
	}
	if c.Gateways.XFlowTokenTTL <= 0 {
		validationErrors = append(validationErrors, "XFLOW_TOKEN_TTL must be greater than 0")
	}

	// Validate fee defaults
	if c.Fees.WithdrawPercent == "" {
		validationErrors = append(validationErrors, "DEFAULT_WITHDRAW_FEE_PERCENT is required")
	}
	if c.Fees.WithdrawFixed == "" {
		validationErrors = append(validationErrors, "DEFAULT_WITHDRAW_FEE_FIXED is required")
	}
	if c.Fees.MinWithdrawNetCents <= 0 {
		validationErrors = append(validationErrors, "MIN_WITHDRAW_NET_CENTS must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

func isKnownGateway(name string) bool {
	switch strings.ToLower(name) {
	case "keyclub", "xflow":
		return true
	}
	return false
}
