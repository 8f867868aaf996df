package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// acknowledger is the slice of amqp.Delivery the dispatch path needs. Every
// delivery ends in exactly one of Ack or Nack.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// startConsumer begins consuming from sub.queue on channel. The consumer
// goroutine exits when the channel closes and its delivery stream drains.
func (c *Client) startConsumer(channel *amqp.Channel, sub subscription) error {
	tag := fmt.Sprintf("%s-%s", sub.queue, uuid.NewString()[:8])

	deliveries, err := channel.Consume(
		sub.queue,
		tag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", sub.queue, err)
	}

	c.logger.Info("Consumer started",
		slog.String("queue", sub.queue),
		slog.String("consumer_tag", tag),
	)

	go func() {
		for delivery := range deliveries {
			c.handleDelivery(sub, delivery.Body, delivery)
		}
		c.logger.Debug("Delivery stream closed",
			slog.String("queue", sub.queue),
			slog.String("consumer_tag", tag),
		)
	}()

	return nil
}

// handleDelivery decides the single outcome of one delivery: malformed bytes
// or a handler failure reject it without requeue, success acknowledges it.
// A malformed message will never become well-formed, so it is dropped rather
// than retried, and the handler is never invoked for it.
func (c *Client) handleDelivery(sub subscription, body []byte, ack acknowledger) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error("Dropping malformed message",
			slog.String("queue", sub.queue),
			slog.Int("body_size", len(body)),
			slog.Any("error", err),
		)
		c.reject(sub.queue, ack)
		return
	}

	if err := sub.handler(c.ctx, payload); err != nil {
		c.logger.Error("Dropping message after handler failure",
			slog.String("queue", sub.queue),
			slog.Any("error", err),
		)
		c.reject(sub.queue, ack)
		return
	}

	if err := ack.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			slog.String("queue", sub.queue),
			slog.Any("error", err),
		)
	}
}

func (c *Client) reject(queue string, ack acknowledger) {
	if err := ack.Nack(false, false); err != nil {
		c.logger.Error("Failed to nack message",
			slog.String("queue", queue),
			slog.Any("error", err),
		)
	}
}
