/*
Package observability provides structured logging and metrics collection
for the URL acquisition service.

	Provider (caches one instance per component)
	    ├── Logger  (JSON lines for Loki)
	    └── Metrics (Prometheus collectors)

# Usage

Initialize the provider once at startup:

	provider := observability.NewProvider(&observability.Config{
	    ServiceName: "url-downloader",
	    Environment: "production",
	    LogLevel:    "info",
	    AdditionalFields: observability.Fields{"version": "1.0.0"},
	})
	defer provider.Close()

	log := provider.Logger("acquisition")
	metrics := provider.Metrics("acquisition")

	ctx = context.WithValue(ctx, observability.SessionIDKey, "chat-42")
	log.Info(ctx, "Acquisition started", observability.Fields{"url": rawURL})

	metrics.StartOperation("acquire")
	defer metrics.EndOperation("acquire")

# Context Integration

The logger copies these typed context values into every entry:
trace_id, span_id, request_id and session_id. Values stored under plain
string keys are ignored.

# Metrics

Each component gets collectors prefixed with "{ServiceName}_{component}"
(non-alphanumeric characters become underscores):

  - _processed_total: counter [status, type]
  - _errors_total: counter [error_type, operation]
  - _duration_seconds: histogram [operation]
  - _file_size_bytes: histogram [file_type]
  - _in_progress: gauge [operation]

Collectors are registered with Config.Registerer, or the default registry,
and exposed through promhttp on /metrics by the HTTP server.

# Testing

The mocks package provides testify mocks. NewPermissiveLogger and
NewPermissiveMetrics accept any call, for tests that do not assert on
observability output.
*/
package observability
