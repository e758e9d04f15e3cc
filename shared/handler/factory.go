package handler

import (
	"os"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

// Platform identifiers.
const (
	PlatformHTTP   = "http"
	PlatformLambda = "lambda"
)

// Factory builds handlers with the default middleware stack.
type Factory struct {
	worker     Worker
	provider   observability.Provider
	handlerCfg config.HandlerConfig
}

// NewFactory creates a factory using config.DefaultHandlerConfig.
func NewFactory(worker Worker, provider observability.Provider) *Factory {
	return &Factory{
		worker:     worker,
		provider:   provider,
		handlerCfg: config.DefaultHandlerConfig(),
	}
}

// WithHandlerConfig sets custom handler configuration.
func (f *Factory) WithHandlerConfig(cfg config.HandlerConfig) *Factory {
	f.handlerCfg = cfg
	return f
}

// Create builds a handler for the configured platform, detecting it from
// the environment when unset or "auto".
func (f *Factory) Create() *Handler {
	if f.handlerCfg.Platform == "" || f.handlerCfg.Platform == "auto" {
		f.handlerCfg.Platform = DetectPlatform()
	}

	cfg := f.handlerCfg
	h := NewHandler(f.worker, f.provider, &cfg)
	f.applyDefaultMiddleware(h)
	return h
}

// CreateHTTP builds a handler for the HTTP platform.
func (f *Factory) CreateHTTP() *Handler {
	f.handlerCfg.Platform = PlatformHTTP
	return f.Create()
}

// CreateLambda builds a handler for AWS Lambda.
func (f *Factory) CreateLambda() *Handler {
	f.handlerCfg.Platform = PlatformLambda
	return f.Create()
}

// applyDefaultMiddleware installs, outermost first: recovery, timeout,
// tracing, metrics, logging, validation.
func (f *Factory) applyDefaultMiddleware(h *Handler) {
	h.Use(RecoveryMiddleware(f.provider))

	if f.handlerCfg.Timeout > 0 {
		h.Use(TimeoutMiddleware(f.handlerCfg.Timeout))
	}

	if f.handlerCfg.EnableTracing {
		h.Use(TracingMiddleware())
	}

	if f.handlerCfg.EnableMetrics {
		h.Use(MetricsMiddleware(f.provider))
	}

	h.Use(LoggingMiddleware(f.provider))
	h.Use(ValidationMiddleware())
}

// DetectPlatform returns "lambda" inside the Lambda runtime and "http"
// everywhere else.
func DetectPlatform() string {
	if _, exists := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); exists {
		return PlatformLambda
	}
	if _, exists := os.LookupEnv("AWS_LAMBDA_RUNTIME_API"); exists {
		return PlatformLambda
	}
	return PlatformHTTP
}
