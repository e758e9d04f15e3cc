package handler

import (
	"context"
)

// Worker is the platform-agnostic business interface wrapped by Handler.
type Worker interface {
	// Name identifies the worker in logs and metrics.
	Name() string

	// Process handles one request. Business failures are reported through
	// an error Response; a non-nil error means the request could not be
	// handled at all.
	Process(ctx context.Context, request Request) (Response, error)

	// Health reports whether the worker can serve requests.
	Health(ctx context.Context) error
}
