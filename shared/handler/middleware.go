package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

func contextString(ctx context.Context, key observability.ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// LoggingMiddleware logs the start and outcome of every request.
func LoggingMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			requestLogger := provider.Logger("handler").WithFields(observability.Fields{
				"type":     req.Type,
				"source":   req.Source,
				"worker":   contextString(ctx, observability.WorkerKey),
				"platform": contextString(ctx, observability.PlatformKey),
			})

			requestLogger.Info(ctx, "Processing request", observability.Fields{
				"payload_size": len(req.Payload),
			})

			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			switch {
			case err != nil:
				requestLogger.Error(ctx, "Request failed with error", err, observability.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			case !resp.Success && resp.Error != nil:
				requestLogger.Warn(ctx, "Request completed with failure", observability.Fields{
					"error_code":  resp.Error.Code,
					"error_msg":   resp.Error.Message,
					"duration_ms": duration.Milliseconds(),
				})
			default:
				requestLogger.Info(ctx, "Request completed successfully", observability.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			}

			resp.Duration = duration
			return resp, err
		}
	}
}

// MetricsMiddleware records duration, outcome and in-flight count per
// request type.
func MetricsMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			metrics := provider.Metrics("handler")

			operation := req.Type
			if operation == "" {
				operation = "unknown"
			}

			metrics.StartOperation(operation)
			defer metrics.EndOperation(operation)

			start := time.Now()
			resp, err := next(ctx, req)
			metrics.RecordDuration(operation, time.Since(start).Seconds())

			switch {
			case err != nil:
				metrics.RecordError(operation, "processing_error")
			case !resp.Success:
				errorType := "unknown_error"
				if resp.Error != nil {
					errorType = resp.Error.Code
				}
				metrics.RecordError(operation, errorType)
			default:
				metrics.RecordSuccess(operation)
			}

			return resp, err
		}
	}
}

// RecoveryMiddleware turns a panic into an INTERNAL_ERROR response. It must
// be the outermost middleware.
func RecoveryMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (resp Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					provider.Logger("handler").Error(ctx, "Panic recovered", fmt.Errorf("%v", r), observability.Fields{
						"worker": contextString(ctx, observability.WorkerKey),
						"stack":  string(debug.Stack()),
					})
					provider.Metrics("handler").RecordError("panic", "panic_recovered")

					// Panic details stay in the log.
					resp = NewErrorResponse(req.ID, CodeInternal, "An internal error occurred", "")
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()

			return next(ctx, req)
		}
	}
}

// TracingMiddleware makes sure every request carries a trace ID and a fresh
// span ID, both in the context and in the response metadata.
func TracingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			traceID := extractTraceID(req)
			if traceID == "" {
				traceID = uuid.New().String()
			}
			spanID := uuid.New().String()

			ctx = context.WithValue(ctx, observability.TraceIDKey, traceID)
			ctx = context.WithValue(ctx, observability.SpanIDKey, spanID)

			req.SetMetadata("trace_id", traceID)
			req.SetMetadata("span_id", spanID)

			resp, err := next(ctx, req)

			resp.SetMetadata("trace_id", traceID)
			resp.SetMetadata("span_id", spanID)

			return resp, err
		}
	}
}

// TimeoutMiddleware bounds request processing. When the deadline passes it
// returns a TIMEOUT response without waiting for the worker; the worker
// observes the cancelled context and cleans up on its own.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp     Response
				err      error
				panicked interface{}
			}
			resultChan := make(chan result, 1)

			go func() {
				// Panics are handed back so the recovery middleware sees them
				// on the caller's goroutine.
				defer func() {
					if r := recover(); r != nil {
						resultChan <- result{panicked: r}
					}
				}()
				resp, err := next(timeoutCtx, req)
				resultChan <- result{resp: resp, err: err}
			}()

			select {
			case res := <-resultChan:
				if res.panicked != nil {
					panic(res.panicked)
				}
				return res.resp, res.err

			case <-timeoutCtx.Done():
				return NewErrorResponse(
					req.ID,
					CodeTimeout,
					"Request processing timed out",
					fmt.Sprintf("Exceeded timeout of %v", timeout),
				), timeoutCtx.Err()
			}
		}
	}
}

// ValidationMiddleware fills in a missing ID and timestamp and rejects
// requests without a type or with a payload that is not JSON. An empty
// payload is treated as an empty object.
func ValidationMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			if req.ID == "" {
				req.ID = uuid.New().String()
			}
			if req.Timestamp.IsZero() {
				req.Timestamp = time.Now().UTC()
			}

			if req.Type == "" {
				return NewErrorResponse(
					req.ID,
					CodeValidation,
					"Request type is required",
					"Missing 'type' field in request",
				), nil
			}

			if len(req.Payload) == 0 {
				req.Payload = json.RawMessage("{}")
			}

			if !json.Valid(req.Payload) {
				return NewErrorResponse(
					req.ID,
					CodeValidation,
					"Invalid JSON payload",
					"Payload must be valid JSON",
				), nil
			}

			req.SetMetadata("validated_at", time.Now().UTC().Format(time.RFC3339))

			return next(ctx, req)
		}
	}
}

func extractTraceID(req Request) string {
	traceKeys := []string{
		"trace_id",
		"x-trace-id",
		"x-b3-traceid",
		"x-request-id",
		"correlation-id",
	}

	for _, key := range traceKeys {
		if val, ok := req.Metadata[key]; ok && val != "" {
			return val
		}
	}

	return ""
}
