package handler

import (
	"context"
	"log/slog"

	"github.com/kebal2/etranslation-mock/internal/worker"
	"github.com/kebal2/etranslation-mock/internal/worker/queue"
	"github.com/kebal2/etranslation-mock/internal/worker/storage"
)

// ErrorCode is the response body eTranslation returns for rejected requests
const ErrorCode = "-30000"

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Queue       queue.Queue
	DeliveryLog storage.Log
	// Worker is nil when callbacks are delivered by a separate worker service
	Worker      *worker.Worker
	ServiceName string
	// HealthCheck, when set, checks backend connections for /health
	HealthCheck func(ctx context.Context) error
}

// TranslateHandler handles translate and delivery inspection requests
type TranslateHandler struct {
	logger      *slog.Logger
	queue       queue.Queue
	deliveryLog storage.Log
}

// NewTranslateHandler creates a new TranslateHandler instance
func NewTranslateHandler(deps *Dependencies) *TranslateHandler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TranslateHandler{
		logger:      logger,
		queue:       deps.Queue,
		deliveryLog: deps.DeliveryLog,
	}
}
