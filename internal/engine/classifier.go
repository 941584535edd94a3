package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"noiseguard.app/engine/internal/model"
)

const StrategyClassifier = "classifier"

// modelArtifact is the trained logistic model exported by the offline
// training job: ordered feature names, matching coefficients, intercept,
// and the class order used during training.
type modelArtifact struct {
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Classes      []string  `json:"classes"`
	TrainedAt    string    `json:"trained_at,omitempty"`
}

// Classifier scores alerts with the trained artifact. The artifact is
// loaded lazily and hot-reloaded when the file's modification time
// advances; a missing artifact yields the "unknown" sentinel verdict, not
// an error.
type Classifier struct {
	path string

	mu       sync.Mutex
	artifact *modelArtifact
	loadedAt time.Time // mtime of the loaded artifact
}

func NewClassifier(path string) *Classifier {
	return &Classifier{path: path}
}

func (c *Classifier) Name() string {
	return StrategyClassifier
}

func (c *Classifier) Classify(ctx context.Context, alert *model.Alert, stats *model.ConfigurationStats, features model.FeatureRecord) (*model.Verdict, error) {
	artifact := c.loadArtifact(ctx)
	if artifact == nil {
		return unknownVerdict(alert.ID, "model artifact unavailable"), nil
	}

	values, err := features.Require(artifact.FeatureNames...)
	if err != nil {
		return nil, wrapError(KindMissingFeature, err, "classifier feature set")
	}

	confidence, err := predictPositive(artifact, values)
	if err != nil {
		// Artifact drift: degrade to unknown but log loudly.
		slog.ErrorContext(ctx, "classifier prediction format error",
			"model_path", c.path, "error", err)
		return unknownVerdict(alert.ID, err.Error()), nil
	}

	verdict := &model.Verdict{
		AlertID:     alert.ID,
		Confidence:  confidence,
		Strategy:    StrategyClassifier,
		Reasoning:   fmt.Sprintf("trained model probability %.3f", confidence),
		Explanation: explainPrediction(artifact, values),
		CreatedAt:   time.Now().UTC(),
	}
	return verdict, nil
}

// loadArtifact returns the current artifact, re-reading the backing file
// only when its modification time has advanced. Returns nil when no
// loadable artifact exists.
func (c *Classifier) loadArtifact(ctx context.Context) *modelArtifact {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		if c.artifact != nil {
			slog.WarnContext(ctx, "model artifact disappeared, dropping loaded model",
				"model_path", c.path)
			c.artifact = nil
			c.loadedAt = time.Time{}
		}
		return nil
	}

	if c.artifact != nil && !info.ModTime().After(c.loadedAt) {
		return c.artifact
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		slog.ErrorContext(ctx, "reading model artifact failed",
			"model_path", c.path, "error", err)
		return c.artifact
	}

	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		slog.ErrorContext(ctx, "parsing model artifact failed",
			"model_path", c.path, "error", err)
		return c.artifact
	}

	c.artifact = &artifact
	c.loadedAt = info.ModTime()
	slog.InfoContext(ctx, "model artifact loaded",
		"model_path", c.path,
		"features", len(artifact.FeatureNames),
		"trained_at", artifact.TrainedAt)
	return c.artifact
}

// predictPositive computes the positive-class probability. A single class
// means the model emits the positive probability directly; two classes
// mean the second is positive. Anything else is a format error.
func predictPositive(artifact *modelArtifact, values []float64) (float64, error) {
	if len(artifact.Coefficients) != len(artifact.FeatureNames) {
		return 0, fmt.Errorf("artifact has %d coefficients for %d features",
			len(artifact.Coefficients), len(artifact.FeatureNames))
	}

	z := artifact.Intercept
	for i, v := range values {
		z += artifact.Coefficients[i] * v
	}
	p := 1 / (1 + math.Exp(-z))

	switch len(artifact.Classes) {
	case 1:
		return p, nil
	case 2:
		return p, nil // probability of Classes[1], the positive class
	default:
		return 0, fmt.Errorf("artifact declares %d classes, want 1 or 2", len(artifact.Classes))
	}
}

// explainPrediction computes additive per-feature attributions
// (coefficient times value) and surfaces the top 3 by magnitude.
func explainPrediction(artifact *modelArtifact, values []float64) model.Explanation {
	importances := make(map[string]float64, len(artifact.FeatureNames))
	contributions := make([]model.FeatureContribution, 0, len(artifact.FeatureNames))

	for i, name := range artifact.FeatureNames {
		contribution := artifact.Coefficients[i] * values[i]
		importances[name] = contribution
		contributions = append(contributions, model.FeatureContribution{
			Feature:      name,
			Value:        values[i],
			Contribution: contribution,
		})
	}

	sort.Slice(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].Contribution) > math.Abs(contributions[j].Contribution)
	})
	if len(contributions) > 3 {
		contributions = contributions[:3]
	}

	return model.Explanation{
		TopContributors: contributions,
		Importances:     importances,
		BaseValue:       artifact.Intercept,
	}
}

func unknownVerdict(alertID int64, reason string) *model.Verdict {
	return &model.Verdict{
		AlertID:    alertID,
		Label:      model.LabelUnknown,
		Actionable: false,
		Confidence: 0,
		Strategy:   StrategyClassifier,
		Reasoning:  reason,
		CreatedAt:  time.Now().UTC(),
	}
}
