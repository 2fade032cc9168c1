// Package queue delivers domain events to RabbitMQ.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shareit/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends one message to the broker.
type Publisher interface {
	Publish(ctx context.Context, eventType string, body []byte) error
	Close() error
}

// RabbitPublisher keeps one connection and channel and reopens them after a failure.
// Without an exchange messages go to the default exchange with the queue name as
// routing key; with one, the routing key is the event type.
type RabbitPublisher struct {
	cfg    config.RabbitMQConfig
	logger *zerolog.Logger
	dial   func(url string) (*amqp.Connection, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(cfg config.RabbitMQConfig, logger *zerolog.Logger) *RabbitPublisher {
	return &RabbitPublisher{cfg: cfg, logger: logger, dial: amqp.Dial}
}

func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	routingKey := p.cfg.Queue
	if p.cfg.Exchange != "" {
		routingKey = eventType
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         eventType,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.cfg.Exchange, routingKey, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// channel returns an open channel, dialing and declaring topology when needed. Caller holds mu.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if p.cfg.URL == "" {
		return nil, errors.New("rabbitmq url is empty")
	}
	conn, err := p.dial(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := declare(ch, p.cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p.conn, p.ch = conn, ch
	p.logger.Info().Str("queue", p.cfg.Queue).Str("exchange", p.cfg.Exchange).Msg("RabbitMQ channel opened")
	return ch, nil
}

func declare(ch *amqp.Channel, cfg config.RabbitMQConfig) error {
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	if cfg.Exchange == "" {
		return nil
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, "booking_*", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue bind: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
