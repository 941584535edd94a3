package engine

import (
	"context"
	"fmt"
	"log/slog"

	"noiseguard.app/engine/common/logger"
	"noiseguard.app/engine/internal/model"
)

// DefaultConfidenceThreshold is the actionability cutoff when none is
// configured.
const DefaultConfidenceThreshold = 0.5

// Strategy is one interchangeable scoring implementation. Implementations
// must be safe for concurrent use across alerts.
type Strategy interface {
	Name() string
	Classify(ctx context.Context, alert *model.Alert, stats *model.ConfigurationStats, features model.FeatureRecord) (*model.Verdict, error)
}

// Engine is the classification façade: it resolves configuration stats,
// engineers features, dispatches to the one configured strategy, and
// applies the confidence threshold.
type Engine struct {
	aggregator *Aggregator
	engineer   *Engineer
	strategies map[string]Strategy
	strategy   string
	threshold  float64
}

// New builds an engine dispatching to the named strategy. The threshold
// must lie in (0, 1); zero selects the default.
func New(aggregator *Aggregator, engineer *Engineer, strategyName string, threshold float64, strategies ...Strategy) (*Engine, error) {
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("confidence threshold %f outside (0, 1)", threshold)
	}

	registry := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		registry[s.Name()] = s
	}
	if _, ok := registry[strategyName]; !ok {
		return nil, fmt.Errorf("unknown scoring strategy %q", strategyName)
	}

	return &Engine{
		aggregator: aggregator,
		engineer:   engineer,
		strategies: registry,
		strategy:   strategyName,
		threshold:  threshold,
	}, nil
}

// Threshold returns the configured actionability cutoff.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Classify produces a verdict for one alert. It never mutates the alert or
// its configuration.
func (e *Engine) Classify(ctx context.Context, alert *model.Alert) (*model.Verdict, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AlertID:         logger.Ptr(alert.ID),
		ConfigurationID: logger.Ptr(alert.ConfigurationID),
		Strategy:        logger.Ptr(e.strategy),
		Component:       "noiseguard.engine",
	})

	stats, err := e.aggregator.GetConfigurationStats(ctx, alert.ConfigurationID)
	if err != nil {
		return nil, err
	}

	features, err := e.engineer.EngineerFeatures(ctx, alert, stats)
	if err != nil {
		return nil, err
	}

	verdict, err := e.strategies[e.strategy].Classify(ctx, alert, stats, features)
	if err != nil {
		return nil, err
	}

	e.applyThreshold(verdict)

	slog.InfoContext(ctx, "alert classified",
		"label", verdict.Label,
		"confidence", verdict.Confidence)
	return verdict, nil
}

// applyThreshold derives the boolean label unless the strategy already
// returned the unavailable sentinel.
func (e *Engine) applyThreshold(verdict *model.Verdict) {
	if verdict.Label == model.LabelUnknown {
		return
	}
	verdict.Actionable = verdict.Confidence > e.threshold
	if verdict.Actionable {
		verdict.Label = model.LabelActionable
	} else {
		verdict.Label = model.LabelNoisy
	}
}
