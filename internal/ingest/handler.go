package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/signal-pipeline/internal/signal"
)

// Store is the persistence collaborator. Only the create path is used here;
// reads belong to the API service.
type Store interface {
	CreateSignal(ctx context.Context, sig *signal.Signal) (*signal.Signal, error)
}

// StreamPublisher republishes normalized records on the canonical signal
// stream queue.
type StreamPublisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// Config holds ingestion handler dependencies
type Config struct {
	Store       Store
	Publisher   StreamPublisher // optional
	StreamQueue string
	Logger      *slog.Logger
}

// Handler turns raw consumed payloads into stored signal records.
type Handler struct {
	store       Store
	publisher   StreamPublisher
	streamQueue string
	logger      *slog.Logger
}

// NewHandler creates a new ingestion handler
func NewHandler(cfg *Config) *Handler {
	return &Handler{
		store:       cfg.Store,
		publisher:   cfg.Publisher,
		streamQueue: cfg.StreamQueue,
		logger:      cfg.Logger,
	}
}

// HandleUpload is the subscription callback for the raw-upload queue. A
// returned error rejects the message without requeue; the store is never
// invoked for a payload that fails validation.
func (h *Handler) HandleUpload(ctx context.Context, payload map[string]any) error {
	rec, err := Normalize(payload)
	if err != nil {
		h.logger.Error("Rejected upload payload",
			slog.Any("error", err),
		)
		return err
	}

	stored, err := h.store.CreateSignal(ctx, rec)
	if err != nil {
		h.logger.Error("Failed to store signal",
			slog.String("device_id", rec.DeviceID),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to store signal: %w", err)
	}

	h.logger.Info("Signal stored",
		slog.String("signal_id", stored.SignalID),
		slog.String("device_id", stored.DeviceID),
		slog.Int64("data_length", *stored.DataLength),
	)

	if h.publisher != nil && h.streamQueue != "" {
		// The record is already durable; stream fan-out is best effort.
		if err := h.publisher.Publish(ctx, h.streamQueue, stored); err != nil {
			h.logger.Warn("Failed to publish signal to stream",
				slog.String("signal_id", stored.SignalID),
				slog.Any("error", err),
			)
		}
	}

	return nil
}
