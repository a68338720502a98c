package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kebal2/etranslation-mock/internal/worker/queue"
)

// spawnWorkerPool starts one drain loop per unit of concurrency
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning drain loops",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	w.wg.Add(w.concurrency)
	for i := range w.concurrency {
		go w.workerLoop(ctx, fmt.Sprintf("%s-%d", w.workerID, i))
	}
}

// workerLoop drains the queue to empty, then idles until the idle interval
// elapses or the queue signals a new job
func (w *Worker) workerLoop(ctx context.Context, workerName string) {
	defer w.wg.Done()

	var ready <-chan struct{}
	if n, ok := w.queue.(queue.Notifier); ok {
		ready = n.Ready()
	}

	// Timer.Reset discards a pending tick as of Go 1.23.
	idle := time.NewTimer(w.idleInterval)
	defer idle.Stop()

	reason := "stop requested"
	defer func() {
		w.logger.Debug("Drain loop exited",
			slog.String("worker_name", workerName),
			slog.String("reason", reason),
		)
	}()

	for {
		w.drain(ctx, workerName)
		idle.Reset(w.idleInterval)

		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			reason = "context canceled"
			return
		case <-ready:
		case <-idle.C:
		}
	}
}

// drain processes jobs until the queue reports empty. Stop does not cut a
// drain short; only the end of the shutdown grace period does.
func (w *Worker) drain(ctx context.Context, workerName string) {
	for {
		if w.aborting() || ctx.Err() != nil {
			return
		}

		job, ok, err := w.queue.TryDequeue(ctx)
		if err != nil {
			w.logger.Error("Failed to dequeue callback job",
				slog.String("worker_name", workerName),
				slog.String("error", err.Error()),
			)
			return
		}
		if !ok {
			return
		}

		w.processJob(ctx, workerName, job)
	}
}
