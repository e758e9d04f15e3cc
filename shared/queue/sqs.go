package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

// SQSAPI is the subset of *sqs.Client used for publishing.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher publishes JSON messages to SQS queues looked up by name.
type SQSPublisher struct {
	client  SQSAPI
	logger  observability.Logger
	metrics observability.Metrics

	mu        sync.RWMutex
	queueURLs map[string]string
}

// NewSQSPublisher builds an SQS client for cfg.Region, honouring a custom
// endpoint for LocalStack-style setups.
func NewSQSPublisher(cfg config.SQSConfig, logger observability.Logger, metrics observability.Metrics) (*SQSPublisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewSQSPublisherWithAPI(client, logger, metrics), nil
}

// NewSQSPublisherWithAPI wraps an existing client.
func NewSQSPublisherWithAPI(client SQSAPI, logger observability.Logger, metrics observability.Metrics) *SQSPublisher {
	return &SQSPublisher{
		client:    client,
		logger:    logger.WithFields(observability.Fields{"queue": "sqs"}),
		metrics:   metrics,
		queueURLs: make(map[string]string),
	}
}

func (q *SQSPublisher) queueURL(ctx context.Context, name string) (string, error) {
	q.mu.RLock()
	url, ok := q.queueURLs[name]
	q.mu.RUnlock()
	if ok {
		return url, nil
	}

	result, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", name, err)
	}

	url = aws.ToString(result.QueueUrl)
	q.mu.Lock()
	q.queueURLs[name] = url
	q.mu.Unlock()
	return url, nil
}

// Publish sends message with its attributes as string message attributes.
func (q *SQSPublisher) Publish(ctx context.Context, message *Message) error {
	start := time.Now()
	defer func() {
		q.metrics.RecordDuration("queue.sqs.publish", time.Since(start).Seconds())
	}()

	body, err := message.encode()
	if err != nil {
		q.metrics.RecordError("queue.sqs.publish", "marshal_failed")
		return err
	}

	url, err := q.queueURL(ctx, message.Target)
	if err != nil {
		q.metrics.RecordError("queue.sqs.publish", "queue_url_failed")
		return err
	}

	attrs := make(map[string]sqstypes.MessageAttributeValue)
	for k, v := range message.attributes() {
		attrs[k] = sqstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(url),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		q.metrics.RecordError("queue.sqs.publish", "send_failed")
		return fmt.Errorf("failed to send message: %w", err)
	}

	q.metrics.RecordSuccess("queue.sqs.publish")
	q.logger.Debug(ctx, "Message sent", observability.Fields{
		"target": message.Target,
		"type":   message.Type,
		"size":   len(body),
	})
	return nil
}

// Close is a no-op; the SDK client holds no connections that need closing.
func (q *SQSPublisher) Close() error {
	return nil
}
