package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kebal2/etranslation-mock/internal/worker/domain"
)

const maxResponseRead = 1 << 20

type deliveryResult struct {
	StatusCode int
	Body       string
}

// BuildRequest builds the outbound POST for one target language of a job.
// The callback parameters are merged into the destination's existing query.
// Text payloads travel in the translated-text parameter with no body;
// document payloads travel as a UTF-8 text body.
func BuildRequest(ctx context.Context, job *domain.Job, targetLanguage string) (*http.Request, error) {
	u := job.Destination()

	query := u.Query()
	query.Set(domain.QueryRequestID, job.TrackingCode())
	if ref := job.ExternalReference(); ref != "" {
		query.Set(domain.QueryExternalReference, ref)
	}
	query.Set(domain.QueryTargetLanguage, targetLanguage)

	var body io.Reader
	switch job.Kind() {
	case domain.PayloadText:
		query.Set(domain.QueryTranslatedText, job.Payload())
	case domain.PayloadDocument:
		body = strings.NewReader(job.Payload())
	}

	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build callback request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}

	return req, nil
}

// deliver performs one outbound call. Any non-2xx response or transport
// failure comes back as a *domain.DeliveryError.
func (w *Worker) deliver(ctx context.Context, job *domain.Job, lang string) (*deliveryResult, error) {
	if w.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.callTimeout)
		defer cancel()
	}

	req, err := BuildRequest(ctx, job, lang)
	if err != nil {
		return nil, err
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, &domain.DeliveryError{Destination: job.Destination().String(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseRead))
	if err != nil {
		w.logger.Warn("Failed to read callback response body",
			slog.String("destination", job.Destination().String()),
			slog.String("error", err.Error()),
		)
	}

	result := &deliveryResult{
		StatusCode: resp.StatusCode,
		Body:       string(data),
	}

	w.logger.Info("Callback response",
		slog.String("destination", job.Destination().String()),
		slog.String("request_id", job.TrackingCode()),
		slog.String("target_language", lang),
		slog.Int("status", resp.StatusCode),
		slog.String("body", result.Body),
	)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return result, &domain.DeliveryError{
			Destination: job.Destination().String(),
			Status:      resp.StatusCode,
			Err:         domain.ErrDeliveryFailed,
		}
	}

	return result, nil
}
