package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type fakeChannel struct {
	declared   []string
	durable    bool
	published  []amqp091.Publishing
	routingKey string
	publishErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	f.declared = append(f.declared, name)
	f.durable = durable
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.routingKey = key
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewRabbitPublisher_DeclaresDurableQueue(t *testing.T) {
	ch := &fakeChannel{}
	if _, err := NewRabbitPublisher(ch, "", zerolog.Nop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != DefaultQueue {
		t.Errorf("expected %s to be declared, got %v", DefaultQueue, ch.declared)
	}
	if !ch.durable {
		t.Error("expected a durable queue")
	}
}

func TestRabbitPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := NewRabbitPublisher(ch, "alerts", zerolog.Nop())

	payload := map[string]string{"id": "a-1", "status": "active"}
	if err := p.Publish(context.Background(), "maternal_lab.alert.raised", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one message, got %d", len(ch.published))
	}
	msg := ch.published[0]
	if ch.routingKey != "alerts" {
		t.Errorf("expected routing key alerts, got %q", ch.routingKey)
	}
	if msg.DeliveryMode != amqp091.Persistent || msg.ContentType != "application/json" {
		t.Errorf("unexpected message properties: %+v", msg)
	}
	if msg.Headers["message_type"] != "maternal_lab.alert.raised" {
		t.Errorf("unexpected headers: %v", msg.Headers)
	}

	var got map[string]string
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got["id"] != "a-1" {
		t.Errorf("unexpected body: %s", msg.Body)
	}
}

func TestRabbitPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, _ := NewRabbitPublisher(ch, "alerts", zerolog.Nop())

	if err := p.Publish(context.Background(), "x", map[string]int{"a": 1}); err == nil {
		t.Error("expected publish error")
	}
}

func TestRabbitPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := NewRabbitPublisher(ch, "alerts", zerolog.Nop())
	p.Close()
	if !ch.closed {
		t.Error("expected channel to be closed")
	}
}

func TestNoopPublisher(t *testing.T) {
	if err := (NoopPublisher{}).Publish(context.Background(), "x", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
