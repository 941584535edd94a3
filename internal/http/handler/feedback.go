package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/http/dto"
	"noiseguard.app/engine/internal/model"
)

type FeedbackHandler struct {
	recorder *engine.Recorder
}

func NewFeedbackHandler(recorder *engine.Recorder) *FeedbackHandler {
	return &FeedbackHandler{recorder: recorder}
}

func (h *FeedbackHandler) Record(c *gin.Context) {
	ctx := c.Request.Context()

	alertID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid feedback request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	configuration, err := h.recorder.RecordFeedback(ctx, model.FeedbackEvent{
		AlertID:         alertID,
		ConfigurationID: req.ConfigurationID,
		PreviousLabel:   req.PreviousLabel,
		Approved:        *req.Approved,
		Source:          req.Source,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		if engine.KindOf(err) == engine.KindConfigurationNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "configuration not found"})
			return
		}
		slog.ErrorContext(ctx, "recording feedback failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.FeedbackResponse{
		ConfigurationID: configuration.ID,
		IsNoisy:         configuration.IsNoisy,
		NoisyReason:     configuration.NoisyReason,
	})
}
