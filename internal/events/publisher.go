// Package events publishes pipeline lifecycle events to RabbitMQ so
// downstream consumers (feeds, notifications, analytics) can react without
// polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/vidsage/video-intelligence-go/internal/config"
	"github.com/vidsage/video-intelligence-go/pkg/logger"
)

// Event types carried on the exchange.
const (
	TypeTranscriptExtracted = "transcript.extracted"
	TypeDiscoveryCompleted  = "discovery.completed"
	TypeChatAnswered        = "chat.answered"
)

// Event is the envelope every message on the exchange shares.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publisher emits pipeline events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	IsHealthy() bool
	Close() error
}

// NopPublisher drops all events; used when RabbitMQ is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) IsHealthy() bool                                    { return true }
func (NopPublisher) Close() error                                       { return nil }

const confirmTimeout = 5 * time.Second

// amqpPublisher publishes to a topic exchange with publisher confirms.
type amqpPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewPublisher connects to RabbitMQ and declares the exchange, queue and
// binding. An empty host yields a NopPublisher.
func NewPublisher(cfg config.RabbitMQConfig) (Publisher, error) {
	if cfg.Host == "" {
		return NopPublisher{}, nil
	}

	p := &amqpPublisher{config: cfg}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *amqpPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		p.config.User, p.config.Password, p.config.Host, p.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.config.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		p.config.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": 86400000, // 24 hours
			"x-max-length":  100000,
		},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(
		p.config.Queue,
		p.config.RoutingKey,
		p.config.Exchange,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("bind queue: %w", err)
	}

	p.conn = conn
	p.channel = ch

	logger.Log.Info("connected to RabbitMQ",
		zap.String("exchange", p.config.Exchange),
		zap.String("queue", p.config.Queue),
	)

	return nil
}

// Publish wraps the payload in an Event envelope and waits for the broker's
// confirmation.
func (p *amqpPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	event := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	confirms := p.channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = p.channel.PublishWithContext(
		ctx,
		p.config.Exchange,
		p.config.RoutingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         eventType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			MessageId:    event.ID.String(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("message was not acknowledged by broker")
		}
	case <-time.After(confirmTimeout):
		return fmt.Errorf("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("published event",
		zap.String("event_id", event.ID.String()),
		zap.String("type", eventType),
		zap.String("routing_key", p.config.RoutingKey),
	)

	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %v", errs)
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

func (p *amqpPublisher) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.conn != nil && !p.conn.IsClosed() && p.channel != nil
}
