package producer

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/signal-pipeline/internal/signal"
)

// Publisher is the queue-facing side of the producer.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// Producer generates synthetic signals and publishes them on the raw-upload
// queue.
type Producer struct {
	publisher Publisher
	queue     string
	logger    *slog.Logger
}

// New creates a Producer that publishes to queue.
func New(publisher Publisher, queue string, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		queue:     queue,
		logger:    logger,
	}
}

// SendBatch generates and publishes count signals for deviceID, applying ov
// to each. A count of zero performs zero publishes. It stops at the first
// publish failure and reports how many signals were sent before it.
func (p *Producer) SendBatch(ctx context.Context, deviceID string, count int, ov *signal.Overrides) (int, error) {
	for sent := 0; sent < count; sent++ {
		sig := signal.Generate(deviceID, ov)

		if err := p.publisher.Publish(ctx, p.queue, sig); err != nil {
			p.logger.Error("Failed to publish generated signal",
				slog.String("device_id", deviceID),
				slog.Int("sent", sent),
				slog.Int("requested", count),
				slog.Any("error", err),
			)
			return sent, err
		}
	}

	if count > 0 {
		p.logger.Info("Published generated signals",
			slog.String("device_id", deviceID),
			slog.Int("count", count),
		)
	}

	return count, nil
}
