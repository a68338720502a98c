package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kebal2/etranslation-mock/internal/api/dto"
	"github.com/kebal2/etranslation-mock/internal/translate"
	"github.com/kebal2/etranslation-mock/internal/worker/domain"
)

// maxRequestBody bounds a translate request, base64 document included
const maxRequestBody = 32 << 20

// Translate handles POST /api/v1/translate.
// It renders the mock translation, enqueues one callback job per destination
// and answers with the request tracking code as plain text.
func (h *TranslateHandler) Translate(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		h.reject(c, "Failed to read request body", err)
		return
	}

	req, err := dto.ParseTranslateRequest(raw)
	if err != nil {
		h.reject(c, "Invalid translate request", err)
		return
	}

	targetLanguages, err := translate.ValidateLanguages(req.TargetLanguages)
	if err != nil {
		h.reject(c, "Invalid target languages", err)
		return
	}

	source := translate.Source{Text: req.TextToTranslate}
	if doc := req.DocumentToTranslateBase64; doc != nil {
		source.DocumentBase64 = &doc.Content
		source.Format = doc.Format
	}

	result, err := translate.Render(source, targetLanguages)
	if err != nil {
		h.reject(c, "Failed to render translation", err)
		return
	}

	trackingCode := translate.NewTrackingCode()
	logger := h.logger.With(
		slog.String("request_id", trackingCode),
		slog.String("application", req.Application()),
	)

	sourceLanguage := req.SourceLanguage
	if sourceLanguage == "" && req.TextToTranslate != nil {
		sourceLanguage = translate.DetectSourceLanguage(*req.TextToTranslate)
	}

	destinations := req.CallbackDestinations()
	jobs, err := buildJobs(destinations, trackingCode, req.ExternalReference, targetLanguages, result)
	if err != nil {
		h.reject(c, "Invalid callback destination", err)
		return
	}

	for _, job := range jobs {
		if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
			logger.Error("Failed to enqueue callback job",
				slog.String("destination", job.Destination().String()),
				slog.String("error", err.Error()),
			)
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrQueueFull) || errors.Is(err, domain.ErrQueueClosed) {
				status = http.StatusServiceUnavailable
			}
			c.String(status, ErrorCode)
			return
		}
	}

	logger.Info("Translate request accepted",
		slog.String("format", result.Format),
		slog.String("source_language", sourceLanguage),
		slog.Any("target_languages", targetLanguages),
		slog.Int("destinations", len(jobs)),
	)
	if len(jobs) == 0 {
		logger.Warn("Translate request has no callback destination; nothing will be delivered")
	}

	c.String(http.StatusOK, trackingCode)
}

// buildJobs creates every job before any is enqueued so that a bad
// destination rejects the whole request
func buildJobs(destinations []string, trackingCode, externalReference string, targetLanguages []string, result *translate.Result) ([]*domain.Job, error) {
	jobs := make([]*domain.Job, 0, len(destinations))
	for _, destination := range destinations {
		var (
			job *domain.Job
			err error
		)
		if result.Kind == domain.PayloadText {
			job, err = domain.NewTextJob(destination, trackingCode, externalReference, targetLanguages, result.Payload)
		} else {
			job, err = domain.NewDocumentJob(destination, trackingCode, externalReference, targetLanguages, result.Payload)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create callback job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (h *TranslateHandler) reject(c *gin.Context, msg string, err error) {
	h.logger.Warn(msg, slog.String("error", err.Error()))
	c.String(http.StatusBadRequest, ErrorCode)
}
