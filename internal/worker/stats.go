package worker

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// startStatsReporter logs queue depth and delivery counters on the configured schedule
func (w *Worker) startStatsReporter() error {
	c := cron.New()
	if _, err := c.AddFunc(w.statsSchedule, w.logStats); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", w.statsSchedule, err)
	}

	w.cron = c
	c.Start()
	return nil
}

func (w *Worker) logStats() {
	stats := w.Stats()
	w.logger.Info("Callback worker stats",
		slog.String("worker_id", w.workerID),
		slog.Int("queue_depth", stats.QueueDepth),
		slog.Uint64("jobs_processed", stats.JobsProcessed),
		slog.Uint64("delivered", stats.Delivered),
		slog.Uint64("failed", stats.Failed),
		slog.Uint64("dropped", stats.Dropped),
	)
}
