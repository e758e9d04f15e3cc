// Package mocks provides testify mocks for the downloader worker's
// collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
)

// PathFunc builds a result path from the workdir passed to a strategy. Set
// it as the first return value to produce a file inside the scratch
// directory, e.g.
//
//	m.On("Extract", mock.Anything, url, mock.Anything).
//		Return(mocks.PathFunc(func(dir string) string { ... }), nil)
type PathFunc func(workdir string) string

// MockExtractor is a mock implementation of acquisition.Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, url, workdir string) (string, error) {
	args := m.Called(ctx, url, workdir)
	return resolvePath(args.Get(0), workdir), args.Error(1)
}

// MockFetcher is a mock implementation of acquisition.Fetcher.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url, workdir string, limit int64) (string, error) {
	args := m.Called(ctx, url, workdir, limit)
	return resolvePath(args.Get(0), workdir), args.Error(1)
}

// MockDeliverer is a mock implementation of acquisition.Deliverer.
type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, d domain.Delivery) (*domain.Receipt, error) {
	args := m.Called(ctx, d)
	if receipt, ok := args.Get(0).(*domain.Receipt); ok {
		return receipt, args.Error(1)
	}
	return nil, args.Error(1)
}

func resolvePath(v interface{}, workdir string) string {
	switch p := v.(type) {
	case PathFunc:
		return p(workdir)
	case string:
		return p
	default:
		return ""
	}
}

// MockAcquirer is a mock implementation of worker.Acquirer.
type MockAcquirer struct {
	mock.Mock
}

func (m *MockAcquirer) Acquire(ctx context.Context, req domain.AcquisitionRequest, deliverer domain.Deliverer) (domain.Result, error) {
	args := m.Called(ctx, req, deliverer)
	result, _ := args.Get(0).(domain.Result)
	return result, args.Error(1)
}

// MockToolChecker is a mock implementation of worker.ToolChecker.
type MockToolChecker struct {
	mock.Mock
}

func (m *MockToolChecker) Available() bool {
	args := m.Called()
	return args.Bool(0)
}
