// Package storage owns the process-wide object storage instance. The
// adapter is chosen by STORAGE_PROVIDER: "fs" for local directories and
// "s3" for AWS S3 or compatible endpoints.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/adapters/fs"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/adapters/s3"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/types"
)

// healthKey is probed with Exists to verify connectivity.
const healthKey = ".health-check"

// Provider manages storage lifecycle and ensures singleton behavior.
type Provider struct {
	storage     types.ObjectStorage
	provider    string
	mu          sync.RWMutex
	initialized bool
}

var (
	instance *Provider
	once     sync.Once
)

// GetProvider returns the singleton storage provider instance.
func GetProvider() *Provider {
	once.Do(func() {
		instance = &Provider{}
	})
	return instance
}

// Initialize creates the configured adapter and verifies it answers.
// Subsequent calls are no-ops.
func (p *Provider) Initialize(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	storage, err := createStorage(&cfg.Storage, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	if err := Ping(context.Background(), storage); err != nil {
		return fmt.Errorf("failed to verify storage connection: %w", err)
	}

	logger.Info(context.Background(), "Storage initialized", observability.Fields{
		"provider": cfg.Storage.Provider,
	})

	p.storage = storage
	p.provider = cfg.Storage.Provider
	p.initialized = true
	return nil
}

// Set installs an existing storage. Tests and the CLI use it to bypass
// configuration.
func (p *Provider) Set(storage types.ObjectStorage, provider string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.storage = storage
	p.provider = provider
	p.initialized = storage != nil
}

func createStorage(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error) {
	switch cfg.Provider {
	case "fs":
		return fs.NewStorage(cfg.FS.BasePath, logger, metrics)
	case "s3":
		return s3.NewClient(cfg, logger, metrics)
	case "":
		return nil, errors.New("storage is not configured")
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// Ping checks that storage answers an existence probe within 10 seconds.
func Ping(ctx context.Context, storage types.ObjectStorage) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := storage.Exists(ctx, "", healthKey)
	if err != nil && !errors.Is(err, types.ErrObjectNotFound) {
		return err
	}
	return nil
}

// GetStorage returns the storage instance.
func (p *Provider) GetStorage() (types.ObjectStorage, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized || p.storage == nil {
		return nil, fmt.Errorf("storage not initialized; call Initialize() first")
	}

	return p.storage, nil
}

// MustGetStorage returns the storage or panics if not initialized.
func (p *Provider) MustGetStorage() types.ObjectStorage {
	storage, err := p.GetStorage()
	if err != nil {
		panic(fmt.Sprintf("failed to get storage: %v", err))
	}
	return storage
}

// ProviderName returns the configured adapter name.
func (p *Provider) ProviderName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.provider
}

// IsInitialized returns whether storage has been initialized.
func (p *Provider) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// Reset clears the provider state.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.storage = nil
	p.provider = ""
	p.initialized = false
}
