package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"noiseguard.app/engine/internal/http/dto"
	"noiseguard.app/engine/internal/provider"
	"noiseguard.app/engine/internal/service"
)

type WebhookHandler struct {
	ingest *service.IngestService
}

func NewWebhookHandler(ingest *service.IngestService) *WebhookHandler {
	return &WebhookHandler{ingest: ingest}
}

// Receive accepts a raw provider webhook. The provider key in the path
// selects the normalizer.
func (h *WebhookHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()
	providerKey := c.Param("provider")

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body failed"})
		return
	}

	var traceID string
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		traceID = spanCtx.TraceID().String()
	}

	result, err := h.ingest.Ingest(ctx, providerKey, payload, traceID)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownProvider) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
			return
		}
		slog.ErrorContext(ctx, "webhook ingestion failed",
			"provider", providerKey, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not process webhook payload"})
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestResponse{
		AlertID:         result.AlertID,
		ConfigurationID: result.ConfigurationID,
		Duplicated:      result.Duplicated,
		Enqueued:        result.Enqueued,
	})
}
