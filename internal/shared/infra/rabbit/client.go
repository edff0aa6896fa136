package rabbit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofrs/uuid/v5"
	amqp "github.com/rabbitmq/amqp091-go"
)

// maxPriority is the number of priority levels the work queue supports.
// Priorities above this are capped by the broker, not rejected.
const maxPriority = 9

// Client owns a single AMQP connection and a single shared channel used
// for both publishing and consuming. Channel publishes are serialized
// with a mutex; amqp091 channels are not safe for concurrent writes.
type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *slog.Logger

	mu sync.Mutex
}

// NewClient connects to the broker and declares the topic exchange.
func NewClient(url, exchange string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Client{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		logger:   logger.With("component", "rabbit-client"),
	}, nil
}

// Publish sends body to the exchange under routingKey, preserving the
// given per-message priority.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte, priority uint8) error {
	messageID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate message id: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.ch.PublishWithContext(ctx,
		c.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID.String(),
			Priority:     priority,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", routingKey, err)
	}

	c.logger.Debug("message published",
		"routing_key", routingKey,
		"message_id", messageID,
		"priority", priority,
		"bytes", len(body),
	)
	return nil
}

// Consume declares and binds the work queue, applies the prefetch
// limit, and returns the deliveries channel. Deliveries require an
// explicit ack.
func (c *Client) Consume(queue, bindingKey, consumerTag string, prefetch int) (<-chan amqp.Delivery, error) {
	if _, err := c.ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-max-priority": int32(maxPriority)},
	); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	if err := c.ch.QueueBind(queue, bindingKey, c.exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue %s to %s: %w", queue, c.exchange, err)
	}

	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := c.ch.Consume(
		queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming from %s: %w", queue, err)
	}

	c.logger.Info("consuming started",
		"queue", queue,
		"binding_key", bindingKey,
		"prefetch", prefetch,
	)
	return deliveries, nil
}

// Health reports whether the underlying connection is still open.
func (c *Client) Health() error {
	if c.conn.IsClosed() {
		return fmt.Errorf("AMQP connection is closed")
	}
	return nil
}

// Close shuts down the channel and connection.
func (c *Client) Close() {
	if err := c.ch.Close(); err != nil {
		c.logger.Warn("failed to close AMQP channel", "error", err)
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Warn("failed to close AMQP connection", "error", err)
	}
	c.logger.Info("AMQP client closed")
}
