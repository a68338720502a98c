package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kebal2/etranslation-mock/internal/api/dto"
	"github.com/kebal2/etranslation-mock/internal/worker/storage"
)

// ListDeliveries handles GET /api/v1/translate/:request_id/deliveries
// Returns every recorded callback attempt for a tracking code, oldest first
func (h *TranslateHandler) ListDeliveries(c *gin.Context) {
	requestID := strings.TrimSpace(c.Param("request_id"))
	if requestID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "request_id is required"})
		return
	}

	if h.deliveryLog == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "delivery log is disabled"})
		return
	}

	attempts, err := h.deliveryLog.ListByRequest(c.Request.Context(), requestID)
	if err != nil {
		h.logger.Error("Failed to list deliveries",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list deliveries"})
		return
	}

	if attempts == nil {
		attempts = []storage.Attempt{}
	}

	c.JSON(http.StatusOK, dto.ListDeliveriesResponse{
		RequestID: requestID,
		Count:     len(attempts),
		Attempts:  attempts,
	})
}
