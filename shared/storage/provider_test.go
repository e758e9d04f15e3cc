package storage

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	mockObservability "github.com/islamibragimov/url-downloader-bot/shared/observability/mocks"
	mockStorage "github.com/islamibragimov/url-downloader-bot/shared/storage/mocks"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/types"
)

func TestProvider_Singleton(t *testing.T) {
	instance = nil
	once = sync.Once{}

	assert.Same(t, GetProvider(), GetProvider())
}

func TestProvider_Initialize(t *testing.T) {
	tests := []struct {
		name          string
		storage       config.StorageConfig
		expectedError string
	}{
		{
			name: "filesystem",
			storage: config.StorageConfig{
				Provider: "fs",
				FS:       config.FSConfig{BasePath: t.TempDir()},
			},
		},
		{
			name:          "storage not configured",
			storage:       config.StorageConfig{},
			expectedError: "storage is not configured",
		},
		{
			name:          "unsupported provider",
			storage:       config.StorageConfig{Provider: "gcs"},
			expectedError: "unsupported storage provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &Provider{}
			cfg := &config.Config{Storage: tt.storage}

			err := provider.Initialize(cfg, mockObservability.NewPermissiveLogger(), mockObservability.NewPermissiveMetrics())

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.False(t, provider.IsInitialized())
				return
			}

			require.NoError(t, err)
			assert.True(t, provider.IsInitialized())
			assert.Equal(t, tt.storage.Provider, provider.ProviderName())

			storage, err := provider.GetStorage()
			require.NoError(t, err)
			assert.NotNil(t, storage)

			// Second call is a no-op
			assert.NoError(t, provider.Initialize(cfg, nil, nil))
		})
	}
}

func TestProvider_GetStorageBeforeInitialize(t *testing.T) {
	provider := &Provider{}

	_, err := provider.GetStorage()
	assert.Error(t, err)
	assert.Panics(t, func() { provider.MustGetStorage() })
}

func TestProvider_SetAndReset(t *testing.T) {
	provider := &Provider{}
	store := &mockStorage.MockObjectStorage{}

	provider.Set(store, "mock")
	assert.Same(t, store, provider.MustGetStorage())

	provider.Reset()
	assert.False(t, provider.IsInitialized())
}

func TestPing(t *testing.T) {
	t.Run("missing health key is fine", func(t *testing.T) {
		store := &mockStorage.MockObjectStorage{}
		store.On("Exists", mock.Anything, "", healthKey).Return(false, types.ErrObjectNotFound)

		assert.NoError(t, Ping(t.Context(), store))
	})

	t.Run("connection error", func(t *testing.T) {
		store := &mockStorage.MockObjectStorage{}
		store.On("Exists", mock.Anything, "", healthKey).Return(false, errors.New("no route to host"))

		assert.Error(t, Ping(t.Context(), store))
	})
}
