// Package worker adapts the acquisition pipeline to handler.Worker: it
// parses requests, keeps the per-session retry state and turns results into
// responses and events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/islamibragimov/url-downloader-bot/shared/handler"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/shared/storage"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/types"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/session"
)

// Request types served by the worker.
const (
	TypeAcquire = "acquire"
	TypeRetry   = "retry"
	TypeDismiss = "dismiss"
	TypeStart   = "start"
	TypeHelp    = "help"
	TypeAbout   = "about"
	TypeSites   = "sites"
)

// Acquirer runs one acquisition. It is implemented by
// acquisition.Orchestrator.
type Acquirer interface {
	Acquire(ctx context.Context, req domain.AcquisitionRequest, deliverer domain.Deliverer) (domain.Result, error)
}

// ToolChecker reports whether the extraction tool is installed.
type ToolChecker interface {
	Available() bool
}

// Dependencies are the collaborators of an AcquisitionWorker. Extractor and
// Storage are only used by Health and may be nil.
type Dependencies struct {
	Acquirer  Acquirer
	Deliverer domain.Deliverer
	Sessions  *session.Store
	Events    *Events
	Extractor ToolChecker
	Storage   types.ObjectStorage
	Logger    observability.Logger
	Metrics   observability.Metrics
}

// AcquisitionWorker implements handler.Worker.
type AcquisitionWorker struct {
	acquirer  Acquirer
	deliverer domain.Deliverer
	sessions  *session.Store
	events    *Events
	extractor ToolChecker
	storage   types.ObjectStorage
	logger    observability.Logger
	metrics   observability.Metrics
}

// Payload is the body of every request type. Only acquire reads Text and
// URL; URL wins when both are set.
type Payload struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
}

// AcquireResponse is the data of a successful acquire or retry.
type AcquireResponse struct {
	RequestID   string          `json:"request_id"`
	URL         string          `json:"url"`
	Origin      domain.Origin   `json:"origin"`
	Strategy    domain.Strategy `json:"strategy"`
	FileName    string          `json:"file_name"`
	SizeBytes   int64           `json:"size_bytes"`
	Kind        domain.Kind     `json:"kind,omitempty"`
	Key         string          `json:"key,omitempty"`
	Location    string          `json:"location,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// MessageResponse is the data of the informational request types.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewAcquisitionWorker creates the worker.
func NewAcquisitionWorker(deps Dependencies) *AcquisitionWorker {
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore()
	}
	return &AcquisitionWorker{
		acquirer:  deps.Acquirer,
		deliverer: deps.Deliverer,
		sessions:  deps.Sessions,
		events:    deps.Events,
		extractor: deps.Extractor,
		storage:   deps.Storage,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// Name returns the worker name
func (w *AcquisitionWorker) Name() string {
	return "downloader"
}

// Process routes request by type. Business failures are returned as error
// responses with a nil error.
func (w *AcquisitionWorker) Process(ctx context.Context, request handler.Request) (handler.Response, error) {
	w.metrics.StartOperation("worker_process")
	defer w.metrics.EndOperation("worker_process")

	startTime := time.Now()
	defer func() {
		w.metrics.RecordDuration("worker_process", time.Since(startTime).Seconds())
	}()

	var payload Payload
	if len(request.Payload) == 0 {
		request.Payload = []byte("{}")
	}
	if err := request.Unmarshal(&payload); err != nil {
		w.metrics.RecordError("worker_process", "invalid_payload")
		w.logger.Error(ctx, "Failed to parse request payload", err, observability.Fields{
			"request_type": request.Type,
		})
		return handler.NewErrorResponse(
			request.ID,
			handler.CodeInvalidRequest,
			"Failed to parse request payload",
			err.Error(),
		), nil
	}
	if payload.SessionID == "" {
		payload.SessionID, _ = request.GetMetadata("session_id")
	}
	if payload.SessionID != "" {
		ctx = context.WithValue(ctx, observability.SessionIDKey, payload.SessionID)
	}

	switch request.Type {
	case TypeAcquire:
		return w.processAcquire(ctx, request, payload)
	case TypeRetry:
		return w.processRetry(ctx, request, payload)
	case TypeDismiss:
		w.sessions.Clear(payload.SessionID)
		w.metrics.RecordSuccess("dismiss")
		return w.message(request, dismissedMessage)
	}

	if text, ok := staticMessages[request.Type]; ok {
		w.metrics.RecordSuccess(request.Type)
		return w.message(request, text)
	}

	w.metrics.RecordError("worker_process", "unknown_type")
	return handler.NewErrorResponse(
		request.ID,
		handler.CodeUnknownType,
		fmt.Sprintf("Unknown request type: %s", request.Type),
		"",
	), nil
}

func (w *AcquisitionWorker) processAcquire(ctx context.Context, request handler.Request, payload Payload) (handler.Response, error) {
	rawURL := strings.TrimSpace(payload.URL)
	if rawURL == "" {
		rawURL = domain.ExtractURL(payload.Text)
	}
	if rawURL == "" {
		w.metrics.RecordError("worker_process", "no_url")
		return w.domainErrorResponse(request.ID, domain.ErrNoURL), nil
	}

	req, err := domain.NewAcquisitionRequest(request.ID, payload.SessionID, rawURL, domain.OriginMessage)
	if err != nil {
		w.metrics.RecordError("worker_process", "invalid_url")
		return w.domainErrorResponse(request.ID, err), nil
	}

	// Anonymous requests have nothing to retry against.
	if payload.SessionID != "" {
		w.sessions.Record(payload.SessionID, req.URL)
	}
	return w.run(ctx, request, req)
}

func (w *AcquisitionWorker) processRetry(ctx context.Context, request handler.Request, payload Payload) (handler.Response, error) {
	lastURL, err := w.sessions.Require(payload.SessionID)
	if err != nil {
		w.metrics.RecordError("worker_process", "session_state_empty")
		return w.domainErrorResponse(request.ID, err), nil
	}

	req, err := domain.NewAcquisitionRequest(request.ID, payload.SessionID, lastURL, domain.OriginRetry)
	if err != nil {
		w.metrics.RecordError("worker_process", "invalid_url")
		return w.domainErrorResponse(request.ID, err), nil
	}

	return w.run(ctx, request, req)
}

// run acquires req and converts the result into a response.
func (w *AcquisitionWorker) run(ctx context.Context, request handler.Request, req domain.AcquisitionRequest) (handler.Response, error) {
	w.logger.Info(ctx, "Processing acquisition request", observability.Fields{
		"url":    req.URL,
		"origin": string(req.Origin),
	})

	result, err := w.acquirer.Acquire(ctx, req, w.deliverer)
	if err != nil {
		w.metrics.RecordError("worker_process", "delivery_failed")
		w.logger.Error(ctx, "Delivery failed", err, observability.Fields{
			"url":      req.URL,
			"strategy": string(result.Strategy),
		})
		w.events.Failed(ctx, req, domain.ReasonDeliveryFailed)

		resp := w.domainErrorResponse(request.ID, domain.ErrDeliveryFailed)
		resp.SetMetadata("reason", string(domain.ReasonDeliveryFailed))
		return resp, nil
	}

	if !result.Succeeded() {
		reason := result.Reason()
		w.metrics.RecordError("worker_process", strings.ToLower(string(reason)))

		attempts := make([]string, 0, len(result.Attempts))
		for _, a := range result.Attempts {
			attempts = append(attempts, a.Error())
		}
		w.logger.Warn(ctx, "Acquisition failed", observability.Fields{
			"url":      req.URL,
			"reason":   string(reason),
			"attempts": attempts,
		})
		w.events.Failed(ctx, req, reason)

		// The reason goes to operators through metadata only.
		resp := w.domainErrorResponse(request.ID, domain.ErrAcquisitionFailed)
		resp.SetMetadata("reason", string(reason))
		return resp, nil
	}

	w.events.Completed(ctx, result)

	data := AcquireResponse{
		RequestID:  req.ID,
		URL:        req.URL,
		Origin:     req.Origin,
		Strategy:   result.Strategy,
		FileName:   result.FileName,
		SizeBytes:  result.SizeBytes,
		DurationMs: result.Duration.Milliseconds(),
	}
	if r := result.Receipt; r != nil {
		data.Kind = r.Kind
		data.Key = r.Key
		data.Location = r.Location
		data.ContentType = r.ContentType
	}

	resp, err := handler.NewSuccessResponse(request.ID, data)
	if err != nil {
		w.metrics.RecordError("worker_process", "response_creation")
		w.logger.Error(ctx, "Failed to create response", err, nil)
		return handler.NewErrorResponse(
			request.ID,
			handler.CodeInternal,
			"Failed to create response",
			err.Error(),
		), nil
	}
	resp.SetMetadata("strategy", string(result.Strategy))

	w.metrics.RecordSuccess("worker_process")
	w.logger.Info(ctx, "Request processed successfully", observability.Fields{
		"strategy":   string(result.Strategy),
		"file":       result.FileName,
		"size_bytes": result.SizeBytes,
	})
	return resp, nil
}

func (w *AcquisitionWorker) message(request handler.Request, text string) (handler.Response, error) {
	return handler.NewSuccessResponse(request.ID, MessageResponse{Message: text})
}

// domainErrorResponse converts err into an error response. Only the
// domain message is shown; wrapped causes stay out of the response.
func (w *AcquisitionWorker) domainErrorResponse(id string, err error) handler.Response {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return handler.NewErrorResponse(id, handler.CodeInternal, "Internal error", "")
	}

	resp := handler.NewErrorResponse(id, domainErr.Code, domainErr.Message, "")
	resp.Error.Retryable = domainErr.Retryable
	return resp
}

// Health reports storage reachability. A missing extraction tool is only
// logged, since direct transfers still work without it.
func (w *AcquisitionWorker) Health(ctx context.Context) error {
	w.metrics.RecordSuccess("health_check")

	if w.extractor != nil && !w.extractor.Available() {
		w.logger.Warn(ctx, "Extraction tool unavailable, only direct transfers will work", nil)
	}

	if w.storage != nil {
		if err := storage.Ping(ctx, w.storage); err != nil {
			w.metrics.RecordError("health_check", "storage_unavailable")
			return fmt.Errorf("storage unavailable: %w", err)
		}
	}
	return nil
}

// Sessions returns the session store.
func (w *AcquisitionWorker) Sessions() *session.Store {
	return w.sessions
}
