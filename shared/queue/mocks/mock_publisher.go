// Package mocks provides testify mocks for the queue package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/islamibragimov/url-downloader-bot/shared/queue"
)

// MockPublisher is a mock implementation of queue.Publisher.
type MockPublisher struct {
	mock.Mock
}

var _ queue.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, message *queue.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
