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

// ErrNotConnected is returned when a publish or subscribe is attempted
// before the client holds an open channel. Callers decide whether to retry
// the business operation; the client never queues while disconnected.
var ErrNotConnected = errors.New("not connected to RabbitMQ")

// ConnState is the connection lifecycle state. It is owned by the client;
// all transitions go through setState under the client mutex.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Handler processes one decoded message payload. A non-nil error rejects the
// message without requeue; retry policy beyond that is the handler's own.
type Handler func(ctx context.Context, payload map[string]any) error

// Config holds RabbitMQ connection configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	Queues             []string
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

type subscription struct {
	queue   string
	handler Handler
}

// Client owns the broker connection and the single shared channel. All
// publish and subscribe operations go through it.
type Client struct {
	config *Config
	logger *slog.Logger

	mu      sync.Mutex
	state   ConnState
	conn    *amqp.Connection
	channel *amqp.Channel
	subs    []subscription
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a client without touching the network. Call Initialize
// to start connecting.
func NewClient(config *Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config: config,
		logger: logger,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Initialize starts the connection supervisor and returns immediately.
// Connection failures are retried internally forever; callers treat
// "not yet connected" as transient and check State or WaitConnected.
func (c *Client) Initialize() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.supervise()
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WaitConnected blocks until the client reaches Connected or ctx expires.
func (c *Client) WaitConnected(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.State() == StateConnected {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Publish serializes payload to JSON and sends it as a persistent message to
// queue via the default exchange. It fails fast with ErrNotConnected while
// the connection is down and does not retry the individual publish.
func (c *Client) Publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	c.mu.Lock()
	channel := c.channel
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || channel == nil {
		return ErrNotConnected
	}

	err = channel.PublishWithContext(
		ctx,
		"",    // exchange (default: routes by queue name)
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.logger.Error("Failed to publish message",
			slog.String("queue", queue),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	c.logger.Debug("Message published",
		slog.String("queue", queue),
		slog.Int("body_size", len(body)),
	)

	return nil
}

// Subscribe registers handler for queue and starts delivering messages.
// It fails fast with ErrNotConnected while the connection is down; once
// accepted, the subscription is re-armed automatically after reconnects.
func (c *Client) Subscribe(queue string, handler Handler) error {
	c.mu.Lock()
	if c.state != StateConnected || c.channel == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	channel := c.channel
	sub := subscription{queue: queue, handler: handler}
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	if err := c.startConsumer(channel, sub); err != nil {
		return fmt.Errorf("failed to start consumer on %s: %w", queue, err)
	}

	return nil
}

// Close stops the supervisor, cancelling any pending backoff wait, then
// closes the channel and connection. Failures on this path are logged only;
// shutdown must not block process exit.
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ client")

	c.cancel()

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateDisconnected

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
		c.channel = nil
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
		}
		c.conn = nil
	}

	c.logger.Info("RabbitMQ client closed")
	return nil
}

func (c *Client) setState(state ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == state {
		return
	}
	c.logger.Debug("Connection state changed",
		slog.String("from", c.state.String()),
		slog.String("to", state.String()),
	)
	c.state = state
}
