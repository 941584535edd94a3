package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"noiseguard.app/engine/internal/model"
)

const StrategyRules = "rules"

// rule is one deterministic signal: feature names the input value in the
// feature record, score maps it into [0, 1]. A rule whose input is absent
// is skipped entirely.
type rule struct {
	name    string
	feature string
	score   func(value float64) float64
	weight  float64
}

// Weight values are tunable constants; only the shape of each score
// function is contractual.
var actionabilityRules = []rule{
	{
		name:    "severity",
		feature: FeatureSeverityScore,
		weight:  1.0,
		score: func(rank float64) float64 {
			switch int(rank) {
			case 4:
				return 0.9
			case 3:
				return 0.7
			case 2:
				return 0.5
			case 1:
				return 0.3
			default:
				return 0
			}
		},
	},
	{
		name:    "open_alerts",
		feature: FeatureUniqueOpenAlerts,
		weight:  1.0,
		// More open repetitions of the same monitor means less actionable.
		score: func(count float64) float64 {
			if count <= 0 {
				return 1
			}
			return 1 / (1 + math.Log(count))
		},
	},
	{
		name:    "resolution_time",
		feature: FeatureAvgResolutionTime,
		weight:  1.0,
		// Logistic curve centered at one hour: quick auto-resolves score low.
		score: func(seconds float64) float64 {
			return 1 / (1 + math.Exp(-0.0001*(seconds-3600)))
		},
	},
	{
		name:    "prior_noisy",
		feature: FeatureIsNoisy,
		weight:  1.0,
		score: func(noisy float64) float64 {
			if noisy >= 1 {
				return 0.2
			}
			return 0.8
		},
	},
}

// RuleScorer is the deterministic strategy: a weighted mean over the rules
// whose inputs are available. Usable with no trained model and no LLM
// budget.
type RuleScorer struct{}

func NewRuleScorer() *RuleScorer {
	return &RuleScorer{}
}

func (s *RuleScorer) Name() string {
	return StrategyRules
}

func (s *RuleScorer) Classify(ctx context.Context, alert *model.Alert, stats *model.ConfigurationStats, features model.FeatureRecord) (*model.Verdict, error) {
	var weightedSum, weightSum float64
	importances := make(map[string]float64, len(actionabilityRules))
	var fired []string

	for _, r := range actionabilityRules {
		value, ok := features[r.feature]
		if !ok {
			continue // rule input unavailable, skip rather than default
		}
		score := r.score(value)
		weightedSum += score * r.weight
		weightSum += r.weight
		importances[r.name] = score
		fired = append(fired, fmt.Sprintf("%s=%.2f", r.name, score))
	}

	var confidence float64
	if weightSum > 0 {
		confidence = weightedSum / weightSum
	}

	return &model.Verdict{
		AlertID:    alert.ID,
		Confidence: confidence,
		Strategy:   StrategyRules,
		Reasoning:  ruleReasoning(fired),
		Explanation: model.Explanation{
			Importances:     importances,
			TopContributors: topRuleContributors(importances, features),
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

func ruleReasoning(fired []string) string {
	if len(fired) == 0 {
		return "no rule inputs available"
	}
	return "rule scores: " + strings.Join(fired, ", ")
}

func topRuleContributors(importances map[string]float64, features model.FeatureRecord) []model.FeatureContribution {
	contributions := make([]model.FeatureContribution, 0, len(importances))
	for _, r := range actionabilityRules {
		score, ok := importances[r.name]
		if !ok {
			continue
		}
		contributions = append(contributions, model.FeatureContribution{
			Feature:      r.name,
			Value:        features[r.feature],
			Contribution: score,
		})
	}
	sort.Slice(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].Contribution) > math.Abs(contributions[j].Contribution)
	})
	if len(contributions) > 3 {
		contributions = contributions[:3]
	}
	return contributions
}
