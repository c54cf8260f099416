package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventsExchange is the topic exchange production floor consumers bind to.
const EventsExchange = "pos.events"

// AMQPNotifier publishes emitted events to RabbitMQ so kitchen and design
// screens can react without polling the event log.
type AMQPNotifier struct {
	ch *amqp.Channel
}

// NewAMQPNotifier opens a channel and declares the events exchange so publish
// never fails due to missing infra.
func NewAMQPNotifier(conn *amqp.Connection) (*AMQPNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	return &AMQPNotifier{ch: ch}, nil
}

// Close releases the underlying channel.
func (n *AMQPNotifier) Close() error {
	if n == nil || n.ch == nil {
		return nil
	}
	return n.ch.Close()
}

// Notify publishes the event with its topic as routing key.
func (n *AMQPNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.ch == nil {
		return errors.New("events: amqp channel not configured")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return n.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		event.Topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
