package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"realtime-chat/internal/mailer"
	"realtime-chat/internal/observability"
	"realtime-chat/internal/telemetry"
)

// Publisher publishes JSON events to the topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// NewPublisher builds a RabbitMQ publisher, or a noop publisher that only logs
// when AMQP is disabled or unreachable. With development set the noop log
// includes reset codes so the reset flow works without a mail worker.
func NewPublisher(amqpURL, exchange string, development bool) Publisher {
	if amqpURL == "" {
		log.Printf("rabbitmq disabled, using noop: empty amqp url")
		return &noopPublisher{reason: "empty amqp url", development: development}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		log.Printf("rabbitmq disabled, using noop: %v", err)
		return &noopPublisher{reason: err.Error(), development: development}
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq disabled, using noop: %v", err)
		_ = conn.Close()
		return &noopPublisher{reason: err.Error(), development: development}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq disabled, using noop: %v", err)
		_ = ch.Close()
		_ = conn.Close()
		return &noopPublisher{reason: err.Error(), development: development}
	}

	log.Printf("rabbitmq connected exchange=%s", exchange)
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange}
}

type amqpPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// Publish is safe for concurrent use; an amqp.Channel is not.
func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	table := amqp.Table{}
	for key, value := range headers {
		table[key] = value
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      table,
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq publish failed routing_key=%s: %v", routingKey, err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	reason      string
	development bool
}

func (p *noopPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	log.Printf("rabbitmq noop publish routing_key=%s %s", routingKey, describe(event, p.development))
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}

// describe summarises an event for the noop log. Reset codes are only shown
// when reveal is set.
func describe(event any, reveal bool) string {
	switch e := event.(type) {
	case telemetry.AuditEnvelope:
		return fmt.Sprintf("event_type=%s service=%s request_id=%s", e.EventType, e.Service, e.RequestID)
	case observability.EventEnvelope:
		return fmt.Sprintf("event_type=%s event_name=%s", e.EventType, e.EventName)
	case mailer.Job:
		if reveal && e.Code != "" {
			return fmt.Sprintf("mail_template=%s to=%s code=%s expires_at=%s", e.Template, e.To, e.Code, e.ExpiresAt.Format(time.RFC3339))
		}
		return fmt.Sprintf("mail_template=%s to=%s", e.Template, e.To)
	default:
		return fmt.Sprintf("event=%T", event)
	}
}

// PublisherMode reports the publisher mode and, for noop, why AMQP is off.
func PublisherMode(p Publisher) (mode, reason string) {
	switch publisher := p.(type) {
	case *amqpPublisher:
		return "amqp", ""
	case *noopPublisher:
		return "noop", publisher.reason
	default:
		return "unknown", ""
	}
}
