package provider

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"noiseguard.app/engine/internal/model"
)

const ProviderDatadog = "datadog"

// datadogPayload mirrors the fields we consume from a Datadog monitor
// webhook configured with the standard template variables.
type datadogPayload struct {
	ID         string `json:"id"`
	AlertID    string `json:"alert_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Priority   string `json:"priority"`
	AlertType  string `json:"alert_type"` // error, warning, info, success
	Transition string `json:"alert_transition"`
	MonitorID  string `json:"alert_metric_monitor_id"`
	Monitor    string `json:"alert_title"`
	Query      string `json:"alert_query"`
	Tags       string `json:"tags"` // comma-separated key:value pairs
	DateMillis int64  `json:"date,string"`
}

type datadogNormalizer struct{}

func NewDatadog() Normalizer {
	return &datadogNormalizer{}
}

func (n *datadogNormalizer) Provider() string {
	return ProviderDatadog
}

func (n *datadogNormalizer) Normalize(payload []byte) (*NormalizedAlert, error) {
	var p datadogPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing datadog payload: %w", err)
	}

	eventID := p.AlertID
	if eventID == "" {
		eventID = p.ID
	}
	if eventID == "" {
		return nil, fmt.Errorf("datadog payload missing event id")
	}
	if p.MonitorID == "" {
		return nil, fmt.Errorf("datadog payload missing monitor id")
	}

	createdAt := time.Now().UTC()
	if p.DateMillis > 0 {
		createdAt = time.UnixMilli(p.DateMillis).UTC()
	}

	return &NormalizedAlert{
		EventID:     eventID,
		Title:       p.Title,
		Description: p.Body,
		Severity:    datadogSeverity(p.Priority, p.AlertType),
		Status:      datadogStatus(p.Transition),
		Tags:        parseDatadogTags(p.Tags),
		CreatedAt:   createdAt,
		Configuration: NormalizedConfiguration{
			ProviderID: p.MonitorID,
			Name:       firstNonEmpty(p.Monitor, p.Title),
			Query:      p.Query,
		},
	}, nil
}

// datadogSeverity maps monitor priority (P1-P5) when present, falling back
// to the alert type.
func datadogSeverity(priority, alertType string) model.Severity {
	switch strings.ToUpper(priority) {
	case "P1":
		return model.SeverityCritical
	case "P2":
		return model.SeverityHigh
	case "P3":
		return model.SeverityMedium
	case "P4", "P5":
		return model.SeverityLow
	}
	switch strings.ToLower(alertType) {
	case "error":
		return model.SeverityHigh
	case "warning":
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func datadogStatus(transition string) model.Status {
	switch strings.ToLower(transition) {
	case "recovered":
		return model.StatusResolved
	default:
		return model.StatusOpen
	}
}

func parseDatadogTags(tags string) map[string]string {
	if tags == "" {
		return nil
	}
	parsed := make(map[string]string)
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key, value, found := strings.Cut(tag, ":")
		if !found {
			value = "true"
		}
		parsed[key] = value
	}
	return parsed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
