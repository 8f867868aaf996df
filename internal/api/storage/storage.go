package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/signal-pipeline/internal/signal"
	"github.com/cuongbtq/signal-pipeline/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) GetSignalByID(ctx context.Context, signalID string) (*signal.Signal, error) {
	if _, err := uuid.Parse(signalID); err != nil {
		return nil, signal.ErrInvalidSignalID
	}

	var sig signal.Signal
	query := `
		SELECT
			signal_id, device_id, recorded_at, data_length, data_volume,
			kv, ma, exposure_time, projection_type, created_at
		FROM signals
		WHERE signal_id = $1
	`

	err := s.db.GetContext(ctx, &sig, query, signalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, signal.ErrSignalNotFound
		}
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}

	return &sig, nil
}

type SignalFilter struct {
	DeviceID       string
	ProjectionType string
	PageSize       int
	Cursor         *SignalCursor
}

type SignalCursor struct {
	CreatedAt time.Time
	SignalID  string
}

func (s *Storage) ListSignals(ctx context.Context, filter SignalFilter) ([]signal.Signal, error) {
	query := `
        SELECT
            signal_id, device_id, recorded_at, data_length, data_volume,
            kv, ma, exposure_time, projection_type, created_at
        FROM signals
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	// Filters
	if filter.DeviceID != "" {
		query += fmt.Sprintf(" AND device_id = $%d", argIdx)
		args = append(args, filter.DeviceID)
		argIdx++
	}

	if filter.ProjectionType != "" {
		query += fmt.Sprintf(" AND projection_type = $%d", argIdx)
		args = append(args, filter.ProjectionType)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, signal_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.SignalID)
		argIdx += 2
	}

	// Order by created_at DESC, signal_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, signal_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var signals []signal.Signal
	err := s.db.SelectContext(ctx, &signals, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}

	return signals, nil
}
