package rabbitmq

import (
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// supervise owns the connect/reconnect loop. It runs until Close cancels the
// client context. Connection errors never escape this goroutine; the
// supervisor is the last line of defense.
func (c *Client) supervise() {
	defer close(c.done)

	attempt := 0
	for {
		c.setState(StateConnecting)

		connClosed, chanClosed, err := c.connect()
		if err != nil {
			c.setState(StateDisconnected)
			attempt++
			delay := backoffDelay(attempt, c.config.ReconnectBaseDelay, c.config.ReconnectMaxDelay)
			c.logger.Error("Failed to connect to RabbitMQ",
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", delay),
			)

			select {
			case <-time.After(delay):
				continue
			case <-c.ctx.Done():
				return
			}
		}

		attempt = 0
		c.logger.Info("RabbitMQ client connected",
			slog.String("host", c.config.Host),
			slog.Int("port", c.config.Port),
			slog.Int("queues", len(c.config.Queues)),
		)

		select {
		case amqpErr := <-connClosed:
			c.setState(StateDisconnected)
			c.logger.Warn("RabbitMQ connection lost",
				slog.Any("error", amqpErr),
			)
		case amqpErr := <-chanClosed:
			c.setState(StateDisconnected)
			c.logger.Warn("RabbitMQ channel lost",
				slog.Any("error", amqpErr),
			)
		case <-c.ctx.Done():
			return
		}

		c.teardown()
	}
}

// connect runs the full connect sequence: dial, open the channel, set the
// prefetch limit, declare the known queues durable and re-arm registered
// consumers. A channel's consumers do not survive its closure, so re-arming
// happens on every successful (re)connect.
func (c *Client) connect() (chan *amqp.Error, chan *amqp.Error, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	conn, err := amqp.DialConfig(dsn, amqpConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// At most one unacknowledged message in flight per subscription.
	if err := channel.Qos(1, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	for _, queue := range c.config.Queues {
		_, err := channel.QueueDeclare(
			queue,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			channel.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	connClosed := make(chan *amqp.Error, 1)
	conn.NotifyClose(connClosed)
	chanClosed := make(chan *amqp.Error, 1)
	channel.NotifyClose(chanClosed)

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.state = StateConnected
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, sub := range subs {
		if err := c.startConsumer(channel, sub); err != nil {
			// Logged only: if the channel is unusable the close notification
			// fires and the loop reconnects.
			c.logger.Error("Failed to re-arm consumer",
				slog.String("queue", sub.queue),
				slog.Any("error", err),
			)
		}
	}

	return connClosed, chanClosed, nil
}

// teardown discards the dead connection pair before a reconnect attempt.
func (c *Client) teardown() {
	c.mu.Lock()
	channel := c.channel
	conn := c.conn
	c.channel = nil
	c.conn = nil
	c.mu.Unlock()

	if channel != nil {
		_ = channel.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}
