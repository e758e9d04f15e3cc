// Package queue publishes JSON messages to a broker. RabbitMQ and SQS are
// supported; the noop publisher discards messages for local runs.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message is one outbound message.
type Message struct {
	// Target is the queue name.
	Target string

	// Type is sent as the "type" attribute or header so consumers can route
	// without decoding the body.
	Type string

	// Body is marshalled to JSON.
	Body interface{}

	// Attributes are sent as string message attributes or AMQP headers.
	Attributes map[string]string
}

// Publisher sends messages to a broker.
type Publisher interface {
	Publish(ctx context.Context, message *Message) error
	Close() error
}

func (m *Message) encode() ([]byte, error) {
	if m.Target == "" {
		return nil, fmt.Errorf("message target is required")
	}
	body, err := json.Marshal(m.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return body, nil
}

// attributes merges Type into a copy of Attributes.
func (m *Message) attributes() map[string]string {
	attrs := make(map[string]string, len(m.Attributes)+1)
	for k, v := range m.Attributes {
		attrs[k] = v
	}
	if m.Type != "" {
		attrs["type"] = m.Type
	}
	return attrs
}
