package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/signal-pipeline/internal/signal"
)

// Storage handles the write path used by the ingest service.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// CreateSignal inserts a normalized signal record, assigning its id and
// creation timestamp, and returns the stored record.
func (s *Storage) CreateSignal(ctx context.Context, sig *signal.Signal) (*signal.Signal, error) {
	stored := *sig
	stored.SignalID = uuid.New().String()
	stored.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO signals (
			signal_id, device_id, recorded_at, data_length, data_volume,
			kv, ma, exposure_time, projection_type, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		stored.SignalID,
		stored.DeviceID,
		stored.Time,
		stored.DataLength,
		stored.DataVolume,
		stored.KV,
		stored.MA,
		stored.ExposureTime,
		stored.ProjectionType,
		stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create signal: %w", err)
	}

	s.logger.Debug("Signal created",
		slog.String("signal_id", stored.SignalID),
		slog.String("device_id", stored.DeviceID),
	)

	return &stored, nil
}
