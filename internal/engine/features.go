package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"noiseguard.app/engine/internal/history"
	"noiseguard.app/engine/internal/model"
)

// Feature names produced per classification call. Strategies declare the
// subset they consume; an absent declared name is a hard error.
const (
	FeatureSeverityScore       = "severity_score"
	FeatureUniqueOpenAlerts    = "unique_open_alerts"
	FeatureAvgResolutionTime   = "avg_resolution_time"
	FeatureIsNoisy             = "is_noisy"
	FeatureTimeOfDay           = "time_of_day"
	FeatureDayOfWeek           = "day_of_week"
	FeatureTitleLength         = "alert_title_length"
	FeatureAvgSlackResponses   = "avg_slack_responses"
	FeatureOccurrenceFrequency = "occurrence_frequency"
	FeatureHasErrorKeyword     = "has_error_keyword"
	FeatureHasCriticalKeyword  = "has_critical_keyword"
)

// similarAlertsK bounds the historical lookup used for the response-depth
// feature.
const similarAlertsK = 5

// Engineer converts an alert and its configuration stats into a flat
// numeric feature record. Pure computation except for one historical
// similarity lookup.
type Engineer struct {
	alertHistory history.Store
}

func NewEngineer(alertHistory history.Store) *Engineer {
	return &Engineer{alertHistory: alertHistory}
}

func (e *Engineer) EngineerFeatures(ctx context.Context, alert *model.Alert, stats *model.ConfigurationStats) (model.FeatureRecord, error) {
	avgResponses, err := e.avgResponseDepth(ctx, alert)
	if err != nil {
		return nil, err
	}

	text := strings.ToLower(alert.Title + " " + alert.Description)

	record := model.FeatureRecord{
		FeatureSeverityScore:       float64(alert.Severity.Rank()),
		FeatureUniqueOpenAlerts:    float64(stats.OpenAlertCount),
		FeatureAvgResolutionTime:   stats.AvgResolutionSecs,
		FeatureIsNoisy:             boolFeature(stats.IsNoisy),
		FeatureTimeOfDay:           float64(alert.CreatedAt.Hour()),
		FeatureDayOfWeek:           float64(alert.CreatedAt.Weekday()),
		FeatureTitleLength:         float64(len(alert.Title)),
		FeatureAvgSlackResponses:   avgResponses,
		FeatureOccurrenceFrequency: float64(stats.TotalAlertCount),
		FeatureHasErrorKeyword:     boolFeature(strings.Contains(text, "error") || strings.Contains(text, "fail")),
		FeatureHasCriticalKeyword:  boolFeature(strings.Contains(text, "critical") || strings.Contains(text, "urgent")),
	}
	return record, nil
}

// avgResponseDepth is the mean human-response count across semantically
// similar past alerts. Zero results means no historical context and scores
// 0; connectivity failures propagate.
func (e *Engineer) avgResponseDepth(ctx context.Context, alert *model.Alert) (float64, error) {
	query := strings.TrimSpace(alert.Title + " " + alert.Description)
	if query == "" {
		return 0, nil
	}

	hits, err := e.alertHistory.Search(ctx, query, similarAlertsK, map[string]string{"kind": history.KindAlert})
	if err != nil {
		return 0, wrapError(KindRetrievalUnavailable, err, "searching similar alerts")
	}
	if len(hits) == 0 {
		slog.DebugContext(ctx, "no similar historical alerts found",
			"query", fmt.Sprintf("%.80s", query))
		return 0, nil
	}

	var total float64
	for _, hit := range hits {
		total += float64(hit.Document.ResponseCount)
	}
	return total / float64(len(hits)), nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
