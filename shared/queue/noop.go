package queue

import (
	"context"

	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

// NoopPublisher drops every message after logging it at debug level.
type NoopPublisher struct {
	logger observability.Logger
}

// NewNoopPublisher returns a publisher that sends nothing.
func NewNoopPublisher(logger observability.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (n *NoopPublisher) Publish(ctx context.Context, message *Message) error {
	if _, err := message.encode(); err != nil {
		return err
	}
	n.logger.Debug(ctx, "Message discarded", observability.Fields{
		"target": message.Target,
		"type":   message.Type,
	})
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
