package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
)

// amqpChannel is the subset of *amqp091.Channel used for publishing.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes persistent JSON messages to durable queues
// through the default exchange.
type RabbitMQPublisher struct {
	conn    *amqp091.Connection
	channel amqpChannel
	logger  observability.Logger
	metrics observability.Metrics

	// mu serializes channel use; AMQP channels are not safe for concurrent
	// publishing.
	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQPublisher dials the broker and opens a channel.
func NewRabbitMQPublisher(cfg config.RabbitMQConfig, logger observability.Logger, metrics observability.Metrics) (*RabbitMQPublisher, error) {
	dialCfg := amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	}
	if cfg.Timeout > 0 {
		dialCfg.Dial = amqp091.DefaultDial(cfg.Timeout)
	}

	conn, err := amqp091.DialConfig(cfg.URL, dialCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	p := newRabbitMQPublisher(channel, logger, metrics)
	p.conn = conn
	return p, nil
}

func newRabbitMQPublisher(channel amqpChannel, logger observability.Logger, metrics observability.Metrics) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		channel:  channel,
		logger:   logger.WithFields(observability.Fields{"queue": "rabbitmq"}),
		metrics:  metrics,
		declared: make(map[string]bool),
	}
}

// Publish declares the target queue on first use and publishes message.
func (q *RabbitMQPublisher) Publish(ctx context.Context, message *Message) error {
	start := time.Now()
	defer func() {
		q.metrics.RecordDuration("queue.rabbitmq.publish", time.Since(start).Seconds())
	}()

	body, err := message.encode()
	if err != nil {
		q.metrics.RecordError("queue.rabbitmq.publish", "marshal_failed")
		return err
	}

	headers := amqp091.Table{}
	for k, v := range message.attributes() {
		headers[k] = v
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.declared[message.Target] {
		_, err := q.channel.QueueDeclare(
			message.Target,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			q.metrics.RecordError("queue.rabbitmq.publish", "declare_failed")
			return fmt.Errorf("failed to declare queue %s: %w", message.Target, err)
		}
		q.declared[message.Target] = true
	}

	err = q.channel.PublishWithContext(ctx, "", message.Target, false, false, amqp091.Publishing{
		DeliveryMode: amqp091.Persistent,
		ContentType:  "application/json",
		Type:         message.Type,
		Headers:      headers,
		Body:         body,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		q.metrics.RecordError("queue.rabbitmq.publish", "publish_failed")
		return fmt.Errorf("failed to publish message: %w", err)
	}

	q.metrics.RecordSuccess("queue.rabbitmq.publish")
	q.logger.Debug(ctx, "Message published", observability.Fields{
		"target": message.Target,
		"type":   message.Type,
		"size":   len(body),
	})
	return nil
}

// Close closes the channel and the connection.
func (q *RabbitMQPublisher) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel != nil {
		_ = q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
