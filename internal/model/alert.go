package model

import "time"

// Severity is the ordered alert severity scale.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal position of the severity, with 0 for unknown
// values. Higher means more severe.
func (s Severity) Rank() int {
	return severityRank[s]
}

// ParseSeverity normalizes a provider severity string. Unrecognized values
// map to SeverityLow so ingestion never drops an alert over a label.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s)
	default:
		return SeverityLow
	}
}

// Status is the alert lifecycle state.
type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusSuppressed   Status = "suppressed"
)

// Alert is one fired instance of a monitoring condition, normalized from a
// provider webhook. Immutable after creation except for status transitions
// and the resolution duration attached when the alert resolves.
type Alert struct {
	ID              int64             `json:"id"`
	ConfigurationID int64             `json:"configuration_id"`
	EventID         string            `json:"event_id"` // provider-assigned event identifier
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Severity        Severity          `json:"severity"`
	Status          Status            `json:"status"`
	Tags            map[string]string `json:"tags,omitempty"`
	DurationSeconds *float64          `json:"duration_seconds,omitempty"` // set on resolution
	LastLabel       string            `json:"last_label,omitempty"`       // most recent verdict label
	LastConfidence  *float64          `json:"last_confidence,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TitleCount is one row of the alert report's top-titles breakdown.
type TitleCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// AlertConfiguration is the recurring monitor/rule that produces alerts.
// IsNoisy and NoisyReason are the engine's only mutable state, written by
// the feedback recorder.
type AlertConfiguration struct {
	ID          int64     `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"` // provider-side monitor identifier
	Name        string    `json:"name"`
	Query       string    `json:"query,omitempty"` // monitor query/condition text
	IsNoisy     bool      `json:"is_noisy"`
	NoisyReason string    `json:"noisy_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConfigurationStats is a point-in-time aggregate over one configuration's
// alert history. Derived on demand, never persisted.
type ConfigurationStats struct {
	ConfigurationID    int64    `json:"configuration_id"`
	OpenAlertCount     int64    `json:"open_alert_count"`
	AvgResolutionSecs  float64  `json:"avg_resolution_seconds"` // 0 when nothing has resolved
	DominantSeverity   Severity `json:"dominant_severity"`
	TotalAlertCount    int64    `json:"total_alert_count"`
	IsNoisy            bool     `json:"is_noisy"`
	NoisyReason        string   `json:"noisy_reason,omitempty"`
	ConfigurationName  string   `json:"configuration_name"`
	ConfigurationQuery string   `json:"configuration_query,omitempty"`
}
