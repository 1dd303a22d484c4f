// Package rabbitmq publishes booking events to durable RabbitMQ queues.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrClosed = errors.New("publisher closed")

type Config struct {
	URL string
	// Queues are declared on every (re)connect. Messages are published to
	// the default exchange with the queue name as routing key.
	Queues []string
}

// Publisher keeps one connection and channel open and redials on the next
// publish after the broker drops them. It is safe for concurrent use.
type Publisher struct {
	cfg    Config
	log    *slog.Logger
	dial   func(url string) (*amqp.Connection, error)
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		cfg:  cfg,
		log:  logger.With("component", "rabbitmq"),
		dial: amqp.Dial,
	}
}

// Connect dials the broker and declares the configured queues.
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.connectLocked()
}

func (p *Publisher) connectLocked() error {
	const op = "rabbitmq.Publisher.connect"

	if p.closed {
		return ErrClosed
	}

	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.resetLocked()

	conn, err := p.dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%s: channel: %w", op, err)
	}

	for _, q := range p.cfg.Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("%s: declare %s: %w", op, q, err)
		}
	}

	p.conn = conn
	p.ch = ch
	p.log.Info("connected", "queues", p.cfg.Queues)

	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Publish sends payload as a persistent JSON message with routing key
// routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	const op = "rabbitmq.Publisher.Publish"

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if err = p.connectLocked(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		err = p.ch.PublishWithContext(ctx, "", routingKey, false, false, msg)
		if err == nil {
			return nil
		}

		p.log.Warn("publish failed, redialing", "routing_key", routingKey, "err", err)
		p.resetLocked()
	}

	return fmt.Errorf("%s: %w", op, err)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.resetLocked()

	return nil
}
