package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/http/dto"
	"noiseguard.app/engine/internal/model"
	"noiseguard.app/engine/internal/store"
)

type ClassifyHandler struct {
	alerts store.AlertStore
	engine *engine.Engine
}

func NewClassifyHandler(alerts store.AlertStore, eng *engine.Engine) *ClassifyHandler {
	return &ClassifyHandler{alerts: alerts, engine: eng}
}

// Explain classifies the alert on demand and returns the scored verdict
// with its explanation payload.
func (h *ClassifyHandler) Explain(c *gin.Context) {
	ctx := c.Request.Context()

	alertID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	alert, err := h.alerts.GetByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		slog.ErrorContext(ctx, "loading alert failed", "alert_id", alertID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alert"})
		return
	}

	verdict, err := h.engine.Classify(ctx, alert)
	if err != nil {
		h.renderClassificationError(c, alertID, err)
		return
	}

	c.JSON(http.StatusOK, verdictResponse(verdict))
}

// renderClassificationError maps the error taxonomy onto HTTP statuses so
// callers always learn why classification failed.
func (h *ClassifyHandler) renderClassificationError(c *gin.Context, alertID int64, err error) {
	ctx := c.Request.Context()
	kind := engine.KindOf(err)

	slog.ErrorContext(ctx, "classification failed",
		"alert_id", alertID,
		"error_kind", string(kind),
		"error", err)

	body := gin.H{"error": "could not classify alert", "kind": string(kind)}

	switch kind {
	case engine.KindConfigurationNotFound:
		c.JSON(http.StatusNotFound, body)
	case engine.KindRetrievalUnavailable:
		c.JSON(http.StatusServiceUnavailable, body)
	case engine.KindTimeout:
		c.JSON(http.StatusGatewayTimeout, body)
	case engine.KindStructuredOutputInvalid, engine.KindMissingFeature:
		c.JSON(http.StatusBadGateway, body)
	default:
		c.JSON(http.StatusInternalServerError, body)
	}
}

func verdictResponse(verdict *model.Verdict) dto.VerdictResponse {
	contributors := make([]dto.ContributionResponse, 0, len(verdict.Explanation.TopContributors))
	for _, fc := range verdict.Explanation.TopContributors {
		contributors = append(contributors, dto.ContributionResponse{
			Feature:      fc.Feature,
			Value:        fc.Value,
			Contribution: fc.Contribution,
		})
	}

	return dto.VerdictResponse{
		AlertID:    verdict.AlertID,
		Label:      verdict.Label,
		Actionable: verdict.Actionable,
		Confidence: verdict.Confidence,
		Reasoning:  verdict.Reasoning,
		Strategy:   verdict.Strategy,
		Explanation: dto.ExplanationResponse{
			TopContributors: contributors,
			Importances:     verdict.Explanation.Importances,
			BaseValue:       verdict.Explanation.BaseValue,
			Context:         verdict.Explanation.Context,
		},
	}
}
