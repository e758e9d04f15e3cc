// Package config loads typed service configuration from the environment
// and optional .env files.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"

	"github.com/islamibragimov/url-downloader-bot/shared/utils"
)

// Provider manages configuration lifecycle and ensures singleton behavior
type Provider struct {
	config *Config
	mu     sync.RWMutex
	loaded bool
}

var (
	instance *Provider
	once     sync.Once
)

// GetProvider returns the singleton configuration provider instance
func GetProvider() *Provider {
	once.Do(func() {
		instance = &Provider{}
	})
	return instance
}

// Load loads configuration from environment variables and .env files
// This should be called once at application startup
func (p *Provider) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	if err := loadEnvFiles(); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := Parse()
	if err != nil {
		return err
	}

	p.config = cfg
	p.loaded = true
	return nil
}

// MustLoad loads configuration and panics on error
// Use this for application initialization where errors are fatal
func (p *Provider) MustLoad() {
	if err := p.Load(); err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
}

// Get returns the current configuration
// Returns error if configuration hasn't been loaded
func (p *Provider) Get() (*Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded || p.config == nil {
		return nil, fmt.Errorf("configuration not loaded; call Load() first")
	}

	return p.config, nil
}

// MustGet returns the configuration or panics if not loaded
func (p *Provider) MustGet() *Config {
	cfg, err := p.Get()
	if err != nil {
		panic(fmt.Sprintf("failed to get configuration: %v", err))
	}
	return cfg
}

// IsLoaded returns whether configuration has been loaded
func (p *Provider) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Reset clears the loaded configuration (useful for testing)
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = nil
	p.loaded = false
}

// Parse reads configuration from the current environment, applies
// defaults and validates the result. It does not touch .env files.
func Parse() (*Config, error) {
	d := DefaultConfig()

	cfg := &Config{
		Environment: utils.GetEnv("ENVIRONMENT", "local"),
		ServiceName: utils.GetEnv("SERVICE_NAME", d.ServiceName),
		LogLevel:    utils.GetEnv("LOG_LEVEL", d.LogLevel),
		Version:     utils.GetEnv("SERVICE_VERSION", d.Version),

		HTTP: HTTPConfig{
			Timeout:   utils.GetEnvDuration("HTTP_TIMEOUT", d.HTTP.Timeout.String()),
			UserAgent: utils.GetEnv("HTTP_USER_AGENT", d.HTTP.UserAgent),
			Addr:      utils.GetEnv("HTTP_ADDR", d.HTTP.Addr),
		},

		Handler: HandlerConfig{
			Timeout:        utils.GetEnvDuration("HANDLER_TIMEOUT", d.Handler.Timeout.String()),
			MaxRequestSize: utils.GetEnvBytes("HANDLER_MAX_REQUEST_SIZE", d.Handler.MaxRequestSize),
			EnableHealth:   utils.GetEnvBool("HANDLER_ENABLE_HEALTH", d.Handler.EnableHealth),
			EnableMetrics:  utils.GetEnvBool("HANDLER_ENABLE_METRICS", d.Handler.EnableMetrics),
			EnableTracing:  utils.GetEnvBool("HANDLER_ENABLE_TRACING", d.Handler.EnableTracing),
			Platform:       utils.GetEnv("HANDLER_PLATFORM", d.Handler.Platform),
		},

		Lambda: LambdaConfig{
			ProcessingTimeout:         utils.GetEnvDuration("LAMBDA_PROCESSING_TIMEOUT", d.Lambda.ProcessingTimeout.String()),
			EnablePartialBatchFailure: utils.GetEnvBool("LAMBDA_PARTIAL_BATCH_FAILURE", d.Lambda.EnablePartialBatchFailure),
		},

		Acquisition: AcquisitionConfig{
			MaxDirectBytes: utils.GetEnvBytes("ACQUIRE_MAX_DIRECT_BYTES", d.Acquisition.MaxDirectBytes),
			ChunkSize:      int(utils.GetEnvBytes("ACQUIRE_CHUNK_SIZE", int64(d.Acquisition.ChunkSize))),
			ScratchDir:     utils.GetEnv("ACQUIRE_SCRATCH_DIR", d.Acquisition.ScratchDir),
			MaxRetries:     utils.GetEnvInt("ACQUIRE_MAX_RETRIES", d.Acquisition.MaxRetries),
		},

		Extractor: ExtractorConfig{
			Binary:         utils.GetEnv("EXTRACTOR_BINARY", d.Extractor.Binary),
			Format:         utils.GetEnv("EXTRACTOR_FORMAT", d.Extractor.Format),
			OutputTemplate: utils.GetEnv("EXTRACTOR_OUTPUT_TEMPLATE", d.Extractor.OutputTemplate),
		},

		Delivery: DeliveryConfig{
			VideoMaxBytes: utils.GetEnvBytes("DELIVERY_VIDEO_MAX_BYTES", d.Delivery.VideoMaxBytes),
			Bucket:        utils.GetEnv("DELIVERY_BUCKET", ""),
		},

		Storage: StorageConfig{
			Provider:      utils.GetEnv("STORAGE_PROVIDER", d.Storage.Provider),
			EnableMetrics: utils.GetEnvBool("STORAGE_ENABLE_METRICS", d.Storage.EnableMetrics),
			MaxRetries:    utils.GetEnvInt("STORAGE_MAX_RETRIES", d.Storage.MaxRetries),
			Timeout:       utils.GetEnvDuration("STORAGE_TIMEOUT", d.Storage.Timeout.String()),
			S3: S3Config{
				Region:          utils.GetEnv("AWS_REGION", d.Storage.S3.Region),
				Bucket:          utils.GetEnv("S3_BUCKET", ""),
				Endpoint:        utils.GetEnv("S3_ENDPOINT", ""),
				AccessKeyID:     utils.GetEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: utils.GetEnv("AWS_SECRET_ACCESS_KEY", ""),
				UsePathStyle:    utils.GetEnvBool("S3_USE_PATH_STYLE", false),
			},
			FS: FSConfig{
				BasePath: utils.GetEnv("STORAGE_FS_BASE_PATH", d.Storage.FS.BasePath),
			},
		},

		Queue: QueueConfig{
			Provider:     utils.GetEnv("QUEUE_PROVIDER", d.Queue.Provider),
			EventsTarget: utils.GetEnv("QUEUE_EVENTS_TARGET", d.Queue.EventsTarget),
			RabbitMQ: RabbitMQConfig{
				URL:     utils.GetEnv("RABBITMQ_URL", d.Queue.RabbitMQ.URL),
				Timeout: utils.GetEnvDuration("RABBITMQ_TIMEOUT", d.Queue.RabbitMQ.Timeout.String()),
			},
			SQS: SQSConfig{
				Region:   utils.GetEnv("SQS_REGION", ""),
				Endpoint: utils.GetEnv("SQS_ENDPOINT", ""),
			},
		},
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() error {
	// Base file never overrides the real environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}

	return nil
}
