package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/http/dto"
	"noiseguard.app/engine/internal/store"
)

const (
	defaultReportDays = 7
	maxReportDays     = 90
	reportTitleLimit  = 10
)

type ReportHandler struct {
	aggregator     *engine.Aggregator
	alerts         store.AlertStore
	configurations store.AlertConfigurationStore
}

func NewReportHandler(aggregator *engine.Aggregator, alerts store.AlertStore, configurations store.AlertConfigurationStore) *ReportHandler {
	return &ReportHandler{aggregator: aggregator, alerts: alerts, configurations: configurations}
}

// Stats returns the on-demand aggregate for one configuration.
func (h *ReportHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	configurationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid configuration id"})
		return
	}

	stats, err := h.aggregator.GetConfigurationStats(ctx, configurationID)
	if err != nil {
		if engine.KindOf(err) == engine.KindConfigurationNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "configuration not found"})
			return
		}
		slog.ErrorContext(ctx, "computing configuration stats failed",
			"configuration_id", configurationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		ConfigurationID:   stats.ConfigurationID,
		Name:              stats.ConfigurationName,
		OpenAlertCount:    stats.OpenAlertCount,
		TotalAlertCount:   stats.TotalAlertCount,
		AvgResolutionSecs: stats.AvgResolutionSecs,
		DominantSeverity:  string(stats.DominantSeverity),
		IsNoisy:           stats.IsNoisy,
		NoisyReason:       stats.NoisyReason,
	})
}

// AlertReport summarizes alert volume over a trailing window of days.
func (h *ReportHandler) AlertReport(c *gin.Context) {
	ctx := c.Request.Context()

	days := defaultReportDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxReportDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
			return
		}
		days = parsed
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	openCount, err := h.alerts.CountOpenSince(ctx, since)
	if err != nil {
		slog.ErrorContext(ctx, "counting open alerts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}

	topTitles, err := h.alerts.TopTitles(ctx, since, reportTitleLimit)
	if err != nil {
		slog.ErrorContext(ctx, "listing top alert titles failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}

	noisyCount, err := h.configurations.CountNoisy(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "counting noisy configurations failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}

	titles := make([]dto.TitleCountResponse, 0, len(topTitles))
	for _, tc := range topTitles {
		titles = append(titles, dto.TitleCountResponse{Title: tc.Title, Count: tc.Count})
	}

	c.JSON(http.StatusOK, dto.AlertReportResponse{
		Days:                    days,
		OpenAlertCount:          openCount,
		TopTitles:               titles,
		NoisyConfigurationCount: noisyCount,
	})
}
