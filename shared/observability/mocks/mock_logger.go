// Package mocks provides testify mocks of the observability contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/islamibragimov/url-downloader-bot/shared/observability/types"
)

// MockLogger is a mock implementation of types.Logger.
type MockLogger struct {
	mock.Mock
}

// NewPermissiveLogger returns a MockLogger that accepts every call.
// Tests that assert on specific entries should build their own expectations.
func NewPermissiveLogger() *MockLogger {
	m := &MockLogger{}
	m.On("Info", mock.Anything, mock.Anything, mock.Anything).Maybe().Return()
	m.On("Warn", mock.Anything, mock.Anything, mock.Anything).Maybe().Return()
	m.On("Debug", mock.Anything, mock.Anything, mock.Anything).Maybe().Return()
	m.On("Error", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe().Return()
	m.On("WithFields", mock.Anything).Maybe().Return(m)
	return m
}

func (m *MockLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	m.Called(ctx, msg, err, fields)
}

func (m *MockLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

// WithFields returns the configured Logger, or the mock itself.
func (m *MockLogger) WithFields(fields types.Fields) types.Logger {
	args := m.Called(fields)
	if logger, ok := args.Get(0).(types.Logger); ok {
		return logger
	}
	return m
}
