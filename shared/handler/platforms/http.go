// Package platforms adapts a handler.Handler to concrete runtimes: a plain
// HTTP server and AWS Lambda.
package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/islamibragimov/url-downloader-bot/shared/handler"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

const shutdownTimeout = 30 * time.Second

// HTTPAdapter serves a handler over HTTP. Requests are POSTed to
// /<request-type>; health paths and /metrics are served alongside.
type HTTPAdapter struct {
	handler *handler.Handler
	metrics http.Handler
}

// HTTPOption configures an HTTPAdapter.
type HTTPOption func(*HTTPAdapter)

// WithMetrics serves the collectors of g on /metrics.
func WithMetrics(g prometheus.Gatherer) HTTPOption {
	return func(a *HTTPAdapter) {
		a.metrics = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
}

// NewHTTPAdapter creates a new HTTP adapter with the provided handler.
func NewHTTPAdapter(h *handler.Handler, opts ...HTTPOption) *HTTPAdapter {
	a := &HTTPAdapter{handler: h}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ServeHTTP implements http.Handler.
func (a *HTTPAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if IsHealthCheck(r.URL.Path) {
		a.handleHealth(w, r)
		return
	}

	if r.URL.Path == "/metrics" {
		if a.metrics == nil || !a.handler.Config().EnableMetrics {
			http.NotFound(w, r)
			return
		}
		a.metrics.ServeHTTP(w, r)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		a.writeJSON(w, http.StatusMethodNotAllowed, handler.NewErrorResponse(
			uuid.New().String(),
			handler.CodeInvalidRequest,
			"Only POST is supported",
			r.Method,
		))
		return
	}

	body, err := a.readBody(w, r)
	if err != nil {
		resp := handler.NewErrorResponse(
			uuid.New().String(),
			handler.CodeInvalidRequest,
			"Failed to read request body",
			err.Error(),
		)
		a.writeJSON(w, StatusCode(resp), resp)
		return
	}

	req := a.buildRequest(r, body)
	resp, err := a.handler.Handle(r.Context(), req)
	a.writeResponse(w, req.ID, resp, err)
}

func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.handler.Health(r.Context()); err != nil {
		a.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"worker": a.handler.Worker().Name(),
		"time":   time.Now().UTC(),
	})
}

func (a *HTTPAdapter) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	maxSize := a.handler.Config().MaxRequestSize
	if maxSize <= 0 {
		maxSize = 1024 * 1024
	}

	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxSize))
}

func (a *HTTPAdapter) buildRequest(r *http.Request, body []byte) handler.Request {
	requestID := extractRequestID(r.Header)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	return handler.Request{
		ID:        requestID,
		Source:    "http",
		Type:      extractRequestType(r.Header, r.URL.Path, r.Method),
		Payload:   json.RawMessage(body),
		Metadata:  extractMetadata(r),
		Timestamp: time.Now().UTC(),
	}
}

// extractRequestID returns the first request ID header present.
func extractRequestID(h http.Header) string {
	for _, header := range []string{"X-Request-ID", "X-Correlation-ID", "Request-ID"} {
		if id := h.Get(header); id != "" {
			return id
		}
	}
	return ""
}

// extractRequestType prefers the X-Request-Type header, then the first path
// segment, then the lower-cased method.
func extractRequestType(h http.Header, path, method string) string {
	if reqType := h.Get("X-Request-Type"); reqType != "" {
		return reqType
	}

	path = strings.TrimPrefix(path, "/")
	if path != "" {
		if idx := strings.Index(path, "/"); idx > 0 {
			return path[:idx]
		}
		return path
	}

	return strings.ToLower(method)
}

func extractMetadata(r *http.Request) map[string]string {
	metadata := map[string]string{
		"http_method": r.Method,
		"http_path":   r.URL.Path,
		"http_host":   r.Host,
	}

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			metadata["query_"+key] = values[0]
		}
	}

	for _, header := range []string{"Content-Type", "User-Agent", "X-Forwarded-For", "X-Real-IP"} {
		if value := r.Header.Get(header); value != "" {
			metadata["header_"+strings.ToLower(strings.ReplaceAll(header, "-", "_"))] = value
		}
	}

	if traceID := r.Header.Get("X-Trace-ID"); traceID != "" {
		metadata["trace_id"] = traceID
	}
	if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
		metadata["session_id"] = sessionID
	}

	return metadata
}

func (a *HTTPAdapter) writeResponse(w http.ResponseWriter, requestID string, resp handler.Response, err error) {
	if resp.ID == "" {
		resp.ID = requestID
	}
	for key, value := range resp.Metadata {
		w.Header().Set("X-"+key, value)
	}

	// A timeout already carries a structured response.
	if err != nil && resp.Error == nil {
		resp = handler.NewErrorResponse(resp.ID, handler.CodeInternal, "Request processing failed", "")
	}

	a.writeJSON(w, StatusCode(resp), resp)
}

func (a *HTTPAdapter) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if resp, ok := body.(handler.Response); ok {
		w.Header().Set("X-Request-ID", resp.ID)
	}
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil && a.handler.Observability() != nil {
		a.handler.Observability().Logger("http").Warn(context.Background(), "Failed to write response", observability.Fields{
			"error": err.Error(),
		})
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (a *HTTPAdapter) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
