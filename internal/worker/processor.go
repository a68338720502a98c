package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kebal2/etranslation-mock/internal/worker/domain"
	"github.com/kebal2/etranslation-mock/internal/worker/storage"
)

// processJob delivers a job once per target language, in listed order.
// A failed language never stops the remaining ones.
func (w *Worker) processJob(ctx context.Context, workerName string, job *domain.Job) {
	w.logger.Info("Processing callback job",
		slog.String("worker_name", workerName),
		slog.String("request_id", job.TrackingCode()),
		slog.String("destination", job.Destination().String()),
		slog.String("payload_kind", string(job.Kind())),
		slog.Int("languages", job.LanguageCount()),
	)

	// Outbound calls outlive Stop; only CallTimeout bounds them.
	callCtx := context.WithoutCancel(ctx)

	for _, lang := range job.TargetLanguages() {
		if err := w.deliverLanguage(callCtx, workerName, job, lang); err != nil {
			w.failed.Add(1)
			continue
		}
		w.delivered.Add(1)
	}

	w.jobsProcessed.Add(1)
}

// deliverLanguage performs one delivery, consulting the retry policy on failure
func (w *Worker) deliverLanguage(ctx context.Context, workerName string, job *domain.Job, lang string) error {
	for attempt := 1; ; attempt++ {
		start := time.Now()
		result, err := w.deliver(ctx, job, lang)
		w.recordAttempt(ctx, workerName, job, lang, attempt, start, result, err)

		if err == nil {
			return nil
		}

		delay, retry := w.retryPolicy.Next(attempt, err)
		if !retry {
			w.logger.Error("Callback delivery failed",
				slog.String("worker_name", workerName),
				slog.String("request_id", job.TrackingCode()),
				slog.String("destination", job.Destination().String()),
				slog.String("target_language", lang),
				slog.Int("attempts", attempt),
				slog.String("error", err.Error()),
			)
			return err
		}

		w.logger.Warn("Callback delivery failed, retrying...",
			slog.String("request_id", job.TrackingCode()),
			slog.String("target_language", lang),
			slog.Int("attempt", attempt),
			slog.Duration("retry_after", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-time.After(delay):
		case <-w.abortChan:
			w.logger.Warn("Retry abandoned, shutdown grace period over",
				slog.String("request_id", job.TrackingCode()),
				slog.String("target_language", lang),
			)
			return err
		}
	}
}

func (w *Worker) recordAttempt(ctx context.Context, workerName string, job *domain.Job, lang string, attempt int, start time.Time, result *deliveryResult, deliveryErr error) {
	if w.deliveryLog == nil {
		return
	}

	record := &storage.Attempt{
		AttemptID:      uuid.NewString(),
		RequestID:      job.TrackingCode(),
		Destination:    job.Destination().String(),
		TargetLanguage: lang,
		PayloadKind:    string(job.Kind()),
		Attempt:        attempt,
		Status:         domain.DeliveryStatusDelivered,
		DurationMS:     time.Since(start).Milliseconds(),
		WorkerName:     workerName,
		CreatedAt:      start.UTC(),
	}
	if result != nil {
		record.StatusCode = result.StatusCode
		record.ResponseBody = storage.TruncateBody(result.Body)
	}
	if deliveryErr != nil {
		record.Status = domain.DeliveryStatusFailed
		record.ErrorMessage = deliveryErr.Error()
	}

	if err := w.deliveryLog.Record(ctx, record); err != nil {
		w.logger.Warn("Failed to record delivery attempt",
			slog.String("request_id", job.TrackingCode()),
			slog.String("error", err.Error()),
		)
	}
}
