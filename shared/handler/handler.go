// Package handler wraps a Worker with a middleware chain and adapts it to
// the HTTP and Lambda platforms.
package handler

import (
	"context"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

// Handler wraps a Worker with middleware, timeouts and observability.
type Handler struct {
	worker      Worker
	obs         observability.Provider
	middlewares []Middleware
	config      *config.HandlerConfig
}

// Middleware wraps a HandlerFunc to add a cross-cutting concern.
type Middleware func(next HandlerFunc) HandlerFunc

// HandlerFunc is the function signature for handling requests.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// NewHandler creates a handler without middleware. Most callers should use
// Factory, which installs the default stack.
func NewHandler(worker Worker, provider observability.Provider, cfg *config.HandlerConfig) *Handler {
	if cfg == nil {
		d := config.DefaultHandlerConfig()
		cfg = &d
	}
	return &Handler{
		worker:      worker,
		obs:         provider,
		config:      cfg,
		middlewares: []Middleware{},
	}
}

// Use appends middleware. The first middleware added is the outermost.
func (h *Handler) Use(middleware Middleware) {
	h.middlewares = append(h.middlewares, middleware)
}

// Handle runs req through the middleware chain and the worker. The context
// carries the request ID, worker name and platform under typed keys.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	chain := h.buildHandlerChain()

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	ctx = context.WithValue(ctx, observability.RequestIDKey, req.ID)
	ctx = context.WithValue(ctx, observability.WorkerKey, h.worker.Name())
	ctx = context.WithValue(ctx, observability.PlatformKey, h.config.Platform)

	return chain(ctx, req)
}

func (h *Handler) buildHandlerChain() HandlerFunc {
	chain := h.workerHandler
	for i := len(h.middlewares) - 1; i >= 0; i-- {
		chain = h.middlewares[i](chain)
	}
	return chain
}

func (h *Handler) workerHandler(ctx context.Context, req Request) (Response, error) {
	return h.worker.Process(ctx, req)
}

// Health checks the health of the worker.
func (h *Handler) Health(ctx context.Context) error {
	return h.worker.Health(ctx)
}

// Config returns the handler configuration.
func (h *Handler) Config() *config.HandlerConfig {
	return h.config
}

// Worker returns the underlying worker.
func (h *Handler) Worker() Worker {
	return h.worker
}

// Observability returns the provider the handler was built with.
func (h *Handler) Observability() observability.Provider {
	return h.obs
}
