// Package eventbus publishes marketplace domain events
// (transaction.status.changed, product.status.changed) to a RabbitMQ topic
// exchange. Publishing is best-effort by contract: callers log failures and
// carry on.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const publishTimeout = 5 * time.Second

type Publisher struct {
	url      string
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	confirm chan amqp.Confirmation

	log zerolog.Logger
}

// Connect dials RabbitMQ, opens a confirm-mode channel and declares the
// topic exchange.
func Connect(url, exchange string, logger zerolog.Logger) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange, log: logger}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("channel could not be put into confirm mode: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.mu.Lock()
	p.conn = conn
	p.channel = channel
	p.confirm = channel.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.mu.Unlock()

	p.log.Info().Str("exchange", p.exchange).Msg("RabbitMQ publisher connected")
	return nil
}

// Publish sends one event to the exchange under the given routing key and
// waits for the broker confirm.
func (p *Publisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return fmt.Errorf("publisher is closed")
	}

	err = p.channel.Publish(
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.New().String(),
			Timestamp:    time.Now(),
			Type:         routingKey,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	select {
	case confirmed := <-p.confirm:
		if !confirmed.Ack {
			return fmt.Errorf("broker nacked %s", routingKey)
		}
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish confirm timed out for %s", routingKey)
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
