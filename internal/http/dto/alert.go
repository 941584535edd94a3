package dto

// IngestResponse acknowledges one webhook delivery.
type IngestResponse struct {
	AlertID         int64 `json:"alert_id"`
	ConfigurationID int64 `json:"configuration_id"`
	Duplicated      bool  `json:"duplicated"`
	Enqueued        bool  `json:"enqueued"`
}

// VerdictResponse renders a classification verdict.
type VerdictResponse struct {
	AlertID     int64               `json:"alert_id"`
	Label       string              `json:"label"`
	Actionable  bool                `json:"actionable"`
	Confidence  float64             `json:"confidence"`
	Reasoning   string              `json:"reasoning,omitempty"`
	Strategy    string              `json:"strategy"`
	Explanation ExplanationResponse `json:"explanation"`
}

type ExplanationResponse struct {
	TopContributors []ContributionResponse `json:"top_contributors,omitempty"`
	Importances     map[string]float64     `json:"importances,omitempty"`
	BaseValue       float64                `json:"base_value,omitempty"`
	Context         map[string]string      `json:"context,omitempty"`
}

type ContributionResponse struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// FeedbackRequest carries one human judgment on a shown verdict. The alert
// comes from the URL path.
type FeedbackRequest struct {
	ConfigurationID int64  `json:"configuration_id" binding:"required"`
	PreviousLabel   string `json:"previous_label" binding:"required"`
	Approved        *bool  `json:"approved" binding:"required"`
	Source          string `json:"source"`
}

// FeedbackResponse reports the configuration state after feedback.
type FeedbackResponse struct {
	ConfigurationID int64  `json:"configuration_id"`
	IsNoisy         bool   `json:"is_noisy"`
	NoisyReason     string `json:"noisy_reason"`
}

// AlertReportResponse summarizes alert volume over a trailing window.
type AlertReportResponse struct {
	Days                    int                  `json:"days"`
	OpenAlertCount          int64                `json:"open_alert_count"`
	TopTitles               []TitleCountResponse `json:"top_titles"`
	NoisyConfigurationCount int64                `json:"noisy_configuration_count"`
}

type TitleCountResponse struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// StatsResponse reports one configuration's aggregate state.
type StatsResponse struct {
	ConfigurationID   int64   `json:"configuration_id"`
	Name              string  `json:"name"`
	OpenAlertCount    int64   `json:"open_alert_count"`
	TotalAlertCount   int64   `json:"total_alert_count"`
	AvgResolutionSecs float64 `json:"avg_resolution_seconds"`
	DominantSeverity  string  `json:"dominant_severity"`
	IsNoisy           bool    `json:"is_noisy"`
	NoisyReason       string  `json:"noisy_reason,omitempty"`
}
