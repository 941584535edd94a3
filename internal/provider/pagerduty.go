package provider

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"noiseguard.app/engine/internal/model"
)

const ProviderPagerDuty = "pagerduty"

// pagerdutyPayload mirrors the V3 webhook envelope for incident events.
type pagerdutyPayload struct {
	Event struct {
		ID         string    `json:"id"`
		EventType  string    `json:"event_type"` // incident.triggered, incident.resolved, ...
		OccurredAt time.Time `json:"occurred_at"`
		Data       struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Urgency  string `json:"urgency"` // high, low
			Priority struct {
				Summary string `json:"summary"` // P1..P5
			} `json:"priority"`
			Status  string `json:"status"` // triggered, acknowledged, resolved
			Service struct {
				ID      string `json:"id"`
				Summary string `json:"summary"`
			} `json:"service"`
			Description string `json:"description"`
		} `json:"data"`
	} `json:"event"`
}

type pagerdutyNormalizer struct{}

func NewPagerDuty() Normalizer {
	return &pagerdutyNormalizer{}
}

func (n *pagerdutyNormalizer) Provider() string {
	return ProviderPagerDuty
}

func (n *pagerdutyNormalizer) Normalize(payload []byte) (*NormalizedAlert, error) {
	var p pagerdutyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parsing pagerduty payload: %w", err)
	}

	incident := p.Event.Data
	if incident.ID == "" {
		return nil, fmt.Errorf("pagerduty payload missing incident id")
	}
	if incident.Service.ID == "" {
		return nil, fmt.Errorf("pagerduty payload missing service id")
	}

	createdAt := p.Event.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &NormalizedAlert{
		EventID:     incident.ID,
		Title:       incident.Title,
		Description: incident.Description,
		Severity:    pagerdutySeverity(incident.Priority.Summary, incident.Urgency),
		Status:      pagerdutyStatus(incident.Status),
		CreatedAt:   createdAt.UTC(),
		Configuration: NormalizedConfiguration{
			ProviderID: incident.Service.ID,
			Name:       incident.Service.Summary,
		},
	}, nil
}

func pagerdutySeverity(priority, urgency string) model.Severity {
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
	if strings.EqualFold(urgency, "high") {
		return model.SeverityHigh
	}
	return model.SeverityLow
}

func pagerdutyStatus(status string) model.Status {
	switch strings.ToLower(status) {
	case "acknowledged":
		return model.StatusAcknowledged
	case "resolved":
		return model.StatusResolved
	default:
		return model.StatusOpen
	}
}
