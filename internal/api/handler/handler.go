package handler

import (
	"log/slog"

	"github.com/cuongbtq/signal-pipeline/internal/api/storage"
	"github.com/cuongbtq/signal-pipeline/internal/producer"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Storage  *storage.Storage
	Producer *producer.Producer
}

// SignalHandler handles signal-related HTTP requests
type SignalHandler struct {
	logger   *slog.Logger
	storage  *storage.Storage
	producer *producer.Producer
}

// NewSignalHandler creates a new SignalHandler instance
func NewSignalHandler(deps *Dependencies) *SignalHandler {
	return &SignalHandler{
		logger:   deps.Logger,
		storage:  deps.Storage,
		producer: deps.Producer,
	}
}
