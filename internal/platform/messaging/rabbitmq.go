// Package messaging publishes domain events to RabbitMQ.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const DefaultQueue = "maternal_lab.alerts"

// Channel is the subset of *amqp091.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// RabbitPublisher writes persistent JSON messages to a durable queue on the
// default exchange.
type RabbitPublisher struct {
	channel Channel
	queue   string
	logger  zerolog.Logger
}

// Dial connects to url and declares queue.
func Dial(url, queue string, logger zerolog.Logger) (*RabbitPublisher, *amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	p, err := NewRabbitPublisher(ch, queue, logger)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return p, conn, nil
}

func NewRabbitPublisher(ch Channel, queue string, logger zerolog.Logger) (*RabbitPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &RabbitPublisher{
		channel: ch,
		queue:   queue,
		logger:  logger.With().Str("component", "rabbitmq").Str("queue", queue).Logger(),
	}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, messageType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", messageType, err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Type:         messageType,
		Headers: amqp091.Table{
			"message_type": messageType,
		},
	}
	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	p.logger.Debug().Str("message_type", messageType).Int("bytes", len(body)).Msg("message published")
	return nil
}

func (p *RabbitPublisher) Close() error {
	return p.channel.Close()
}

// NoopPublisher drops every message. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
