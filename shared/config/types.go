package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Component configurations
	HTTP        HTTPConfig
	Handler     HandlerConfig
	Lambda      LambdaConfig
	Acquisition AcquisitionConfig
	Extractor   ExtractorConfig
	Delivery    DeliveryConfig
	Storage     StorageConfig
	Queue       QueueConfig
}

// HTTPConfig holds HTTP client and server configuration
type HTTPConfig struct {
	// Timeout bounds every network call: dial, TLS handshake, response
	// headers and the idle time between body chunks.
	Timeout   time.Duration
	UserAgent string
	Addr      string // Server address for HTTP mode
}

// HandlerConfig holds handler configuration
type HandlerConfig struct {
	Timeout        time.Duration
	MaxRequestSize int64
	EnableHealth   bool
	EnableMetrics  bool
	EnableTracing  bool
	Platform       string // auto-detected if empty
}

// LambdaConfig holds Lambda-specific configuration
type LambdaConfig struct {
	ProcessingTimeout         time.Duration
	EnablePartialBatchFailure bool
}

// AcquisitionConfig holds the limits of a single acquisition
type AcquisitionConfig struct {
	MaxDirectBytes int64
	ChunkSize      int
	ScratchDir     string

	// MaxRetries is reserved. Retries are user initiated through the
	// session retry action; no code path reads this value.
	MaxRetries int
}

// ExtractorConfig holds the external extraction tool settings
type ExtractorConfig struct {
	Binary         string
	Format         string
	OutputTemplate string
}

// DeliveryConfig holds delivery settings
type DeliveryConfig struct {
	VideoMaxBytes int64
	Bucket        string
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Provider      string
	EnableMetrics bool
	MaxRetries    int
	Timeout       time.Duration
	S3            S3Config
	FS            FSConfig
}

// S3Config holds S3 adapter configuration
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// FSConfig holds filesystem adapter configuration
type FSConfig struct {
	BasePath string
}

// QueueConfig holds event publishing configuration
type QueueConfig struct {
	Provider     string
	EventsTarget string
	RabbitMQ     RabbitMQConfig
	SQS          SQSConfig
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	URL     string
	Timeout time.Duration
}

// SQSConfig holds SQS configuration
type SQSConfig struct {
	Region   string
	Endpoint string
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	if c.HTTP.Timeout <= 0 {
		errors = append(errors, "HTTP_TIMEOUT must be positive")
	}
	if c.Handler.Timeout <= 0 {
		errors = append(errors, "HANDLER_TIMEOUT must be positive")
	}
	if c.Handler.MaxRequestSize <= 0 {
		errors = append(errors, "HANDLER_MAX_REQUEST_SIZE must be positive")
	}
	if c.Acquisition.MaxDirectBytes <= 0 {
		errors = append(errors, "ACQUIRE_MAX_DIRECT_BYTES must be positive")
	}
	if c.Acquisition.ChunkSize <= 0 {
		errors = append(errors, "ACQUIRE_CHUNK_SIZE must be positive")
	}
	if c.Acquisition.MaxRetries < 0 {
		errors = append(errors, "ACQUIRE_MAX_RETRIES cannot be negative")
	}
	if c.Extractor.Binary == "" {
		errors = append(errors, "EXTRACTOR_BINARY is required")
	}
	if c.Delivery.VideoMaxBytes <= 0 {
		errors = append(errors, "DELIVERY_VIDEO_MAX_BYTES must be positive")
	}

	if err := c.Storage.Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.Queue.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.IsProduction() && c.Storage.Provider == "fs" {
		errors = append(errors, "STORAGE_PROVIDER=fs is not allowed in production")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate checks the storage section for the selected provider
func (s *StorageConfig) Validate() error {
	switch s.Provider {
	case "fs":
		if s.FS.BasePath == "" {
			return fmt.Errorf("STORAGE_FS_BASE_PATH is required for fs storage")
		}
	case "s3":
		if s.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
		if s.S3.Region == "" {
			return fmt.Errorf("AWS_REGION is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER %q", s.Provider)
	}
	return nil
}

// Validate checks the queue section for the selected provider
func (q *QueueConfig) Validate() error {
	switch q.Provider {
	case "", "noop":
		return nil
	case "rabbitmq":
		if q.RabbitMQ.URL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for rabbitmq queue")
		}
	case "sqs":
		if q.SQS.Region == "" {
			return fmt.Errorf("SQS_REGION is required for sqs queue")
		}
	default:
		return fmt.Errorf("unsupported QUEUE_PROVIDER %q", q.Provider)
	}
	if q.EventsTarget == "" {
		return fmt.Errorf("QUEUE_EVENTS_TARGET is required")
	}
	return nil
}

// applyDefaults applies environment-specific defaults
func (c *Config) applyDefaults() {
	if c.Delivery.Bucket == "" {
		c.Delivery.Bucket = c.Storage.S3.Bucket
	}
	if c.Queue.SQS.Region == "" {
		c.Queue.SQS.Region = c.Storage.S3.Region
	}

	if c.IsProduction() {
		c.Handler.EnableMetrics = true
		c.Handler.EnableTracing = true
	}

	if c.IsLocal() {
		c.Handler.EnableTracing = false
	}
}

// IsLocal returns true if running in local/development environment
func (c *Config) IsLocal() bool {
	env := strings.ToLower(c.Environment)
	return env == "local" || env == "development" || env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// IsTest returns true if running in test environment
func (c *Config) IsTest() bool {
	env := strings.ToLower(c.Environment)
	return env == "test" || env == "testing"
}
