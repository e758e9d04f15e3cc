// Package observability provides a centralized provider for logging and metrics
// components used by the acquisition service.
package observability

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/islamibragimov/url-downloader-bot/shared/observability/logger"
	"github.com/islamibragimov/url-downloader-bot/shared/observability/metrics"
	"github.com/islamibragimov/url-downloader-bot/shared/observability/types"
)

type (
	Logger     = types.Logger
	Metrics    = types.Metrics
	Fields     = types.Fields
	Config     = types.Config
	Provider   = types.Provider
	ContextKey = types.ContextKey
)

// Context keys re-exported for callers that only import this package.
const (
	TraceIDKey   = types.TraceIDKey
	SpanIDKey    = types.SpanIDKey
	RequestIDKey = types.RequestIDKey
	SessionIDKey = types.SessionIDKey
	WorkerKey    = types.WorkerKey
	PlatformKey  = types.PlatformKey
)

// DefaultProvider implements Provider. Loggers and metrics are created lazily
// and cached per component, so a component name is registered with
// Prometheus at most once per provider.
type DefaultProvider struct {
	config  *Config
	loggers map[string]Logger
	metrics map[string]Metrics
	mu      sync.RWMutex
}

// NewProvider creates a new observability provider.
// LogOutput defaults to os.Stdout and Registerer to the default registry.
//
// Example:
//
//	provider := observability.NewProvider(&observability.Config{
//		ServiceName: "url-downloader",
//		Environment: "production",
//		LogLevel:    "info",
//	})
//	log := provider.Logger("fetcher")
func NewProvider(config *Config) Provider {
	if config.LogOutput == nil {
		config.LogOutput = os.Stdout
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}

	return &DefaultProvider{
		config:  config,
		loggers: make(map[string]Logger),
		metrics: make(map[string]Metrics),
	}
}

// Logger returns the Logger for component. Entries carry a "component"
// field and the service name "{ServiceName}.{component}".
func (p *DefaultProvider) Logger(component string) Logger {
	p.mu.RLock()
	if l, exists := p.loggers[component]; exists {
		p.mu.RUnlock()
		return l
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if l, exists := p.loggers[component]; exists {
		return l
	}

	fields := make(Fields, len(p.config.AdditionalFields)+1)
	for k, v := range p.config.AdditionalFields {
		fields[k] = v
	}
	fields["component"] = component

	l := logger.New(
		fmt.Sprintf("%s.%s", p.config.ServiceName, component),
		p.config.Environment,
		p.config.LogLevel,
		p.config.LogOutput,
		fields,
	)
	p.loggers[component] = l

	return l
}

// Metrics returns the Metrics for component, named with the prefix
// "{ServiceName}_{component}".
func (p *DefaultProvider) Metrics(component string) Metrics {
	p.mu.RLock()
	if m, exists := p.metrics[component]; exists {
		p.mu.RUnlock()
		return m
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, exists := p.metrics[component]; exists {
		return m
	}

	name := component
	if p.config.ServiceName != "" {
		name = p.config.ServiceName + "_" + component
	}
	m := metrics.NewWithRegisterer(name, p.config.Registerer)
	p.metrics[component] = m

	return m
}

// Close closes LogOutput when it is an io.Closer other than stdout or stderr.
func (p *DefaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if closer, ok := p.config.LogOutput.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}

	return nil
}
