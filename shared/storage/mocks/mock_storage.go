// Package mocks provides testify mocks for the storage port.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/islamibragimov/url-downloader-bot/shared/storage/types"
)

// MockObjectStorage is a mock implementation of types.ObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

var _ types.ObjectStorage = (*MockObjectStorage)(nil)

func (m *MockObjectStorage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	args := m.Called(ctx, bucket, key, reader, metadata)
	return args.Error(0)
}

func (m *MockObjectStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStorage) Location(bucket, key string) string {
	args := m.Called(bucket, key)
	return args.String(0)
}
