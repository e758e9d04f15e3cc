package worker

import (
	"context"

	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/shared/queue"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
)

// Events publishes acquisition progress and outcomes. Publishing is best
// effort: failures are logged and never reach the caller.
type Events struct {
	publisher queue.Publisher
	target    string
	logger    observability.Logger
}

// NewEvents creates an Events publishing to target. A nil publisher
// disables publishing.
func NewEvents(publisher queue.Publisher, target string, logger observability.Logger) *Events {
	return &Events{
		publisher: publisher,
		target:    target,
		logger:    logger,
	}
}

// Progress maps an orchestrator stage to an event. It matches
// acquisition.ProgressFunc.
func (e *Events) Progress(ctx context.Context, req domain.AcquisitionRequest, stage domain.Stage) {
	switch stage {
	case domain.StageDownloading:
		e.Publish(ctx, domain.NewEvent(domain.EventStarted, req))
	case domain.StageUploading:
		e.Publish(ctx, domain.NewEvent(domain.EventUploading, req))
	}
}

// Completed publishes the success event for result.
func (e *Events) Completed(ctx context.Context, result domain.Result) {
	ev := domain.NewEvent(domain.EventCompleted, result.Request)
	ev.SizeBytes = result.SizeBytes
	if result.Receipt != nil {
		ev.Kind = result.Receipt.Kind
		ev.Key = result.Receipt.Key
	}
	e.Publish(ctx, ev)
}

// Failed publishes the failure event for req.
func (e *Events) Failed(ctx context.Context, req domain.AcquisitionRequest, reason domain.Reason) {
	ev := domain.NewEvent(domain.EventFailed, req)
	ev.Reason = reason
	e.Publish(ctx, ev)
}

// Publish sends ev.
func (e *Events) Publish(ctx context.Context, ev domain.Event) {
	if e == nil || e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, &queue.Message{
		Target: e.target,
		Type:   ev.Type,
		Body:   ev,
		Attributes: map[string]string{
			"request_id": ev.RequestID,
			"session_id": ev.SessionID,
		},
	})
	if err != nil {
		e.logger.Warn(ctx, "Failed to publish event", observability.Fields{
			"event_type": ev.Type,
			"error":      err.Error(),
		})
	}
}
