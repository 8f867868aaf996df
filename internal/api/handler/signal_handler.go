package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/signal-pipeline/internal/api/dto"
	"github.com/cuongbtq/signal-pipeline/internal/api/storage"
	sig "github.com/cuongbtq/signal-pipeline/internal/signal"
	"github.com/cuongbtq/signal-pipeline/shared/rabbitmq"
)

// GenerateSignals handles POST /api/v1/signals/generate
// Generates count synthetic readings for a device and publishes them on the
// raw-upload queue. A count of zero publishes nothing and succeeds.
func (h *SignalHandler) GenerateSignals(c *gin.Context) {
	var req dto.GenerateSignalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	sent, err := h.producer.SendBatch(c.Request.Context(), req.DeviceID, req.Count, toOverrides(req.Overrides))
	if err != nil {
		if errors.Is(err, rabbitmq.ErrNotConnected) {
			// Broker outage is transient; the client is reconnecting.
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":     "message queue unavailable",
				"published": sent,
			})
			return
		}
		h.logger.Error("Failed to publish signals", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to publish signals",
			"published": sent,
		})
		return
	}

	c.JSON(http.StatusOK, dto.GenerateSignalsResponse{
		DeviceID:  req.DeviceID,
		Published: sent,
	})
}

// GetSignal handles GET /api/v1/signals/:signal_id
func (h *SignalHandler) GetSignal(c *gin.Context) {
	signalID := c.Param("signal_id")

	record, err := h.storage.GetSignalByID(c.Request.Context(), signalID)
	if err != nil {
		if errors.Is(err, sig.ErrInvalidSignalID) {
			h.logger.Error("Invalid signal_id format",
				slog.String("signal_id", signalID),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "signal_id must be a valid UUID",
			})
			return
		}
		if errors.Is(err, sig.ErrSignalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "signal not found",
			})
			return
		}
		h.logger.Error("Failed to get signal", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get signal",
		})
		return
	}

	c.JSON(http.StatusOK, toSignalDTO(record))
}

// ListSignals handles GET /api/v1/signals
// Lists signals with optional filtering and cursor pagination
func (h *SignalHandler) ListSignals(c *gin.Context) {
	var req dto.ListSignalsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeSignalCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.SignalFilter{
		DeviceID:       req.DeviceID,
		ProjectionType: req.ProjectionType,
		PageSize:       req.PageSize,
		Cursor:         cursor,
	}

	signals, err := h.storage.ListSignals(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list signals", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list signals",
		})
		return
	}

	// One extra row was fetched to detect whether more results exist
	hasMore := len(signals) > req.PageSize
	if hasMore {
		signals = signals[:req.PageSize]
	}

	response := make([]dto.SignalDTO, len(signals))
	for i := range signals {
		response[i] = toSignalDTO(&signals[i])
	}

	var nextCursor string
	if hasMore {
		last := signals[len(signals)-1]
		nextCursor, err = EncodeSignalCursor(&storage.SignalCursor{
			CreatedAt: last.CreatedAt,
			SignalID:  last.SignalID,
		})
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListSignalsResponse{
		Signals:    response,
		NextCursor: nextCursor,
	})
}

func toSignalDTO(record *sig.Signal) dto.SignalDTO {
	return dto.SignalDTO{
		SignalID:       record.SignalID,
		DeviceID:       record.DeviceID,
		Time:           record.Time.Format(time.RFC3339),
		DataLength:     record.DataLength,
		DataVolume:     record.DataVolume,
		KV:             record.KV,
		MA:             record.MA,
		ExposureTime:   record.ExposureTime,
		ProjectionType: record.ProjectionType,
		CreatedAt:      record.CreatedAt.Format(time.RFC3339),
	}
}

func toOverrides(ov *dto.SignalOverrides) *sig.Overrides {
	if ov == nil {
		return nil
	}
	return &sig.Overrides{
		Time:           ov.Time,
		DataLength:     ov.DataLength,
		DataVolume:     ov.DataVolume,
		KV:             ov.KV,
		MA:             ov.MA,
		ExposureTime:   ov.ExposureTime,
		ProjectionType: ov.ProjectionType,
	}
}
