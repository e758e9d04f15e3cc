package queue

import (
	"context"
	"fmt"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

// NewPublisher creates the publisher selected by cfg.Provider.
func NewPublisher(cfg *config.QueueConfig, provider observability.Provider) (Publisher, error) {
	logger := provider.Logger("queue")
	metrics := provider.Metrics("queue")

	switch cfg.Provider {
	case "", "noop":
		return NewNoopPublisher(logger), nil

	case "rabbitmq":
		logger.Info(context.Background(), "Creating RabbitMQ publisher", observability.Fields{
			"target": cfg.EventsTarget,
		})
		return NewRabbitMQPublisher(cfg.RabbitMQ, logger, metrics)

	case "sqs":
		logger.Info(context.Background(), "Creating SQS publisher", observability.Fields{
			"region": cfg.SQS.Region,
			"target": cfg.EventsTarget,
		})
		return NewSQSPublisher(cfg.SQS, logger, metrics)

	default:
		return nil, fmt.Errorf("unsupported queue provider: %s", cfg.Provider)
	}
}
