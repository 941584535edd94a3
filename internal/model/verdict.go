package model

import (
	"fmt"
	"sort"
	"time"
)

// Verdict labels.
const (
	LabelActionable = "actionable"
	LabelNoisy      = "noisy"
	LabelUnknown    = "unknown" // classifier artifact unavailable
)

// Verdict is the engine's scored output for one alert. Ephemeral; callers
// persist only what they need.
type Verdict struct {
	AlertID     int64       `json:"alert_id"`
	Label       string      `json:"label"`
	Actionable  bool        `json:"actionable"`
	Confidence  float64     `json:"confidence"` // in [0, 1]
	Reasoning   string      `json:"reasoning,omitempty"`
	Strategy    string      `json:"strategy"`
	Explanation Explanation `json:"explanation,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Explanation is the strategy-specific breakdown of how the confidence was
// derived: rule scores, feature attributions, or retrieved-context notes.
type Explanation struct {
	TopContributors []FeatureContribution `json:"top_contributors,omitempty"`
	Importances     map[string]float64    `json:"importances,omitempty"`
	BaseValue       float64               `json:"base_value,omitempty"`
	Context         map[string]string     `json:"context,omitempty"`
}

// FeatureContribution is one feature's signed contribution to the verdict.
type FeatureContribution struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// FeatureRecord is a flat mapping from feature name to numeric value,
// produced per classification call. Booleans are encoded as 0/1.
type FeatureRecord map[string]float64

// Require returns the named feature values in order, or an error naming the
// first absent feature. Strategies call this with their declared feature
// set so schema drift fails fast instead of silently misscoring.
func (r FeatureRecord) Require(names ...string) ([]float64, error) {
	values := make([]float64, 0, len(names))
	for _, name := range names {
		v, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("required feature %q absent from feature record", name)
		}
		values = append(values, v)
	}
	return values, nil
}

// Names returns the feature names in sorted order.
func (r FeatureRecord) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeedbackEvent is a human judgment on a previously shown verdict.
// Consumed once; immediately translated into an AlertConfiguration
// mutation, never stored durably by the engine.
type FeedbackEvent struct {
	AlertID         int64     `json:"alert_id"`
	ConfigurationID int64     `json:"configuration_id"`
	PreviousLabel   string    `json:"previous_label"` // LabelActionable or LabelNoisy
	Approved        bool      `json:"approved"`
	Source          string    `json:"source,omitempty"` // e.g. "slack", "api"
	CreatedAt       time.Time `json:"created_at"`
}
