package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kebal2/etranslation-mock/internal/worker/queue"
	"github.com/kebal2/etranslation-mock/internal/worker/storage"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultIdleInterval is how long an idle drain loop waits before re-checking the queue
	DefaultIdleInterval = time.Second
)

// HTTPDoer performs outbound callback calls
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Queue       queue.Queue
	HTTPClient  HTTPDoer
	DeliveryLog storage.Log
	RetryPolicy RetryPolicy

	// Concurrency is the number of drain loops; each job is still delivered
	// by exactly one loop, language by language
	Concurrency  int
	IdleInterval time.Duration
	// CallTimeout bounds a single outbound call; 0 leaves it to the transport
	CallTimeout time.Duration
	// StatsSchedule is a cron expression for periodic stats logging; empty disables it
	StatsSchedule string
}

// Worker drains the dispatch queue and delivers callbacks
type Worker struct {
	logger        *slog.Logger
	queue         queue.Queue
	httpClient    HTTPDoer
	deliveryLog   storage.Log
	retryPolicy   RetryPolicy
	workerID      string
	concurrency   int
	idleInterval  time.Duration
	callTimeout   time.Duration
	statsSchedule string

	wg sync.WaitGroup

	// stopChan keeps idle loops from starting another drain; abortChan cuts
	// a running drain short once the shutdown grace period is over
	stopChan  chan struct{}
	abortChan chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	abortOnce sync.Once
	cron      *cron.Cron

	jobsProcessed atomic.Uint64
	delivered     atomic.Uint64
	failed        atomic.Uint64
}

// Stats is a snapshot of worker counters. Dropped counts jobs the queue
// evicted on overflow before any delivery.
type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	JobsProcessed uint64 `json:"jobs_processed"`
	Delivered     uint64 `json:"delivered"`
	Failed        uint64 `json:"failed"`
	Dropped       uint64 `json:"dropped"`
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) (*Worker, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("worker queue is required")
	}

	w := &Worker{
		logger:        cfg.Logger,
		queue:         cfg.Queue,
		httpClient:    cfg.HTTPClient,
		deliveryLog:   cfg.DeliveryLog,
		retryPolicy:   cfg.RetryPolicy,
		workerID:      "callback-worker-" + uuid.NewString()[:8],
		concurrency:   cfg.Concurrency,
		idleInterval:  cfg.IdleInterval,
		callTimeout:   cfg.CallTimeout,
		statsSchedule: cfg.StatsSchedule,
		stopChan:      make(chan struct{}),
		abortChan:     make(chan struct{}),
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.httpClient == nil {
		w.httpClient = &http.Client{}
	}
	if w.retryPolicy == nil {
		w.retryPolicy = NoRetry{}
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.idleInterval <= 0 {
		w.idleInterval = DefaultIdleInterval
	}

	return w, nil
}

// Start spawns the drain loops and returns. Calling Start more than once has no effect.
func (w *Worker) Start(ctx context.Context) error {
	var err error
	w.startOnce.Do(func() {
		w.logger.Info("Starting callback worker",
			slog.String("worker_id", w.workerID),
			slog.Int("concurrency", w.concurrency),
			slog.Duration("idle_interval", w.idleInterval),
			slog.Duration("call_timeout", w.callTimeout),
		)

		if w.statsSchedule != "" {
			if err = w.startStatsReporter(); err != nil {
				return
			}
		}

		w.spawnWorkerPool(ctx)
	})
	return err
}

// Stop keeps idle drain loops from waking again and waits until ctx expires
// for running drains to empty the queue. When ctx expires first, drains stop
// after their in-flight job and whatever is still queued is abandoned.
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("Stopping callback worker...",
		slog.String("worker_id", w.workerID),
	)

	w.stopOnce.Do(func() {
		close(w.stopChan)
	})

	if w.cron != nil {
		w.cron.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		w.logger.Info("Callback worker stopped")
	case <-ctx.Done():
		w.logger.Warn("Callback worker shutdown grace period exceeded",
			slog.String("worker_id", w.workerID),
		)
		err = fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
	w.abort()

	if abandoned := w.queue.Len(); abandoned > 0 {
		w.logger.Warn("Abandoning queued callback jobs",
			slog.Int("abandoned", abandoned),
		)
	}

	return err
}

// Stats returns current worker counters
func (w *Worker) Stats() Stats {
	stats := Stats{
		QueueDepth:    w.queue.Len(),
		JobsProcessed: w.jobsProcessed.Load(),
		Delivered:     w.delivered.Load(),
		Failed:        w.failed.Load(),
	}
	if dc, ok := w.queue.(queue.DropCounter); ok {
		stats.Dropped = dc.Dropped()
	}
	return stats
}

func (w *Worker) abort() {
	w.abortOnce.Do(func() {
		close(w.abortChan)
	})
}

// aborting reports whether the shutdown grace period is over
func (w *Worker) aborting() bool {
	select {
	case <-w.abortChan:
		return true
	default:
		return false
	}
}

// stopping reports whether Stop has been called
func (w *Worker) stopping() bool {
	select {
	case <-w.stopChan:
		return true
	default:
		return false
	}
}
