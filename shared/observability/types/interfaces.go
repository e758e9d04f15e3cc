// Package types holds the observability contracts shared by the logger,
// metrics and provider packages.
package types

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines the contract for structured logging.
// Implementations write one JSON object per entry and pull correlation
// identifiers out of the context.
type Logger interface {
	Info(ctx context.Context, msg string, fields Fields)

	// Error logs msg at error level together with err and its dynamic type.
	Error(ctx context.Context, msg string, err error, fields Fields)

	Warn(ctx context.Context, msg string, fields Fields)

	Debug(ctx context.Context, msg string, fields Fields)

	// WithFields returns a Logger that adds fields to every entry.
	WithFields(fields Fields) Logger
}

// Metrics defines the contract for metrics collection.
// Implementations should provide Prometheus-compatible metrics for monitoring
// and alerting.
type Metrics interface {
	// RecordSuccess increments the success counter for an operation type.
	RecordSuccess(operationType string)

	// RecordError increments the error counters for an operation and error type.
	RecordError(operationType string, errorType string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, duration float64)

	// RecordFileSize records the size of a produced file in bytes.
	RecordFileSize(fileType string, bytes int64)

	// StartOperation increments the in-progress gauge. Pair with EndOperation.
	StartOperation(operation string)

	// EndOperation decrements the in-progress gauge.
	EndOperation(operation string)
}

// Fields represents structured logging fields as key-value pairs.
// Values can be any type that is JSON-serializable.
type Fields map[string]interface{}

// ContextKey is the type of every context key read by the logger.
type ContextKey string

// Context keys carried through request handling.
const (
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	RequestIDKey ContextKey = "request_id"
	SessionIDKey ContextKey = "session_id"
	WorkerKey    ContextKey = "worker"
	PlatformKey  ContextKey = "platform"
)

// LoggedContextKeys lists the context keys copied into every log entry.
var LoggedContextKeys = []ContextKey{TraceIDKey, SpanIDKey, RequestIDKey, SessionIDKey}

// StringFromContext returns the string stored under key, or "".
func StringFromContext(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// Config holds observability configuration for the provider.
type Config struct {
	// ServiceName identifies the service in logs.
	ServiceName string

	// Environment specifies the deployment environment.
	Environment string

	// LogLevel sets the minimum log level: "debug", "info", "warn", "error".
	LogLevel string

	// LogOutput specifies where logs are written. Defaults to os.Stdout.
	LogOutput io.Writer

	// AdditionalFields are included in every log entry.
	AdditionalFields Fields

	// Registerer receives every metric collector. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Provider manages the lifecycle of observability components.
// Multiple calls with the same component name return the same instance.
type Provider interface {
	Logger(component string) Logger

	Metrics(component string) Metrics

	// Close releases the log output if it is closable.
	Close() error
}
