package engine_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/model"
)

var _ = Describe("RuleScorer", func() {
	var (
		ctx    context.Context
		scorer *engine.RuleScorer
	)

	BeforeEach(func() {
		ctx = context.Background()
		scorer = engine.NewRuleScorer()
	})

	classify := func(features model.FeatureRecord) *model.Verdict {
		verdict, err := scorer.Classify(ctx, testAlert(), testStats(), features)
		Expect(err).NotTo(HaveOccurred())
		return verdict
	}

	It("keeps confidence within [0, 1] across varied inputs", func() {
		inputs := []model.FeatureRecord{
			{engine.FeatureSeverityScore: 4, engine.FeatureUniqueOpenAlerts: 0, engine.FeatureAvgResolutionTime: 0, engine.FeatureIsNoisy: 0},
			{engine.FeatureSeverityScore: 0, engine.FeatureUniqueOpenAlerts: 1000, engine.FeatureAvgResolutionTime: 1e9, engine.FeatureIsNoisy: 1},
			{engine.FeatureSeverityScore: 2, engine.FeatureUniqueOpenAlerts: 7, engine.FeatureAvgResolutionTime: 3600, engine.FeatureIsNoisy: 0},
			{engine.FeatureAvgResolutionTime: 42},
		}
		for _, features := range inputs {
			verdict := classify(features)
			Expect(verdict.Confidence).To(BeNumerically(">=", 0))
			Expect(verdict.Confidence).To(BeNumerically("<=", 1))
		}
	})

	It("returns confidence 0 exactly when no rule input is available", func() {
		verdict := classify(model.FeatureRecord{})
		Expect(verdict.Confidence).To(BeZero())
		Expect(verdict.Reasoning).To(ContainSubstring("no rule inputs"))

		withOne := classify(model.FeatureRecord{engine.FeatureIsNoisy: 0})
		Expect(withOne.Confidence).To(BeNumerically(">", 0))
	})

	It("scores severity monotonically from critical down to unknown", func() {
		var previous float64 = 1.1
		for _, rank := range []float64{4, 3, 2, 1, 0} {
			verdict := classify(model.FeatureRecord{engine.FeatureSeverityScore: rank})
			Expect(verdict.Confidence).To(BeNumerically("<", previous))
			previous = verdict.Confidence
		}
	})

	It("scores open-alert count at 1 for zero and strictly decreasing from one up", func() {
		atZero := classify(model.FeatureRecord{engine.FeatureUniqueOpenAlerts: 0})
		Expect(atZero.Confidence).To(BeNumerically("==", 1))

		var previous float64 = 2
		for _, count := range []float64{1, 2, 5, 20, 100} {
			verdict := classify(model.FeatureRecord{engine.FeatureUniqueOpenAlerts: count})
			Expect(verdict.Confidence).To(BeNumerically("<=", previous))
			if count > 1 {
				Expect(verdict.Confidence).To(BeNumerically("<", previous))
			}
			previous = verdict.Confidence
		}
	})

	It("scores a critical fresh slow-resolving alert as clearly actionable", func() {
		verdict := classify(model.FeatureRecord{
			engine.FeatureSeverityScore:     4,
			engine.FeatureUniqueOpenAlerts:  0,
			engine.FeatureAvgResolutionTime: 7200,
			engine.FeatureIsNoisy:           0,
		})
		Expect(verdict.Confidence).To(BeNumerically(">=", 0.7))
	})

	It("scores a low-severity noisy repeat-offender as clearly noise", func() {
		verdict := classify(model.FeatureRecord{
			engine.FeatureSeverityScore:     1,
			engine.FeatureUniqueOpenAlerts:  20,
			engine.FeatureAvgResolutionTime: 60,
			engine.FeatureIsNoisy:           1,
		})
		Expect(verdict.Confidence).To(BeNumerically("<=", 0.3))
	})

	It("exposes per-rule scores and at most three top contributors", func() {
		verdict := classify(model.FeatureRecord{
			engine.FeatureSeverityScore:     3,
			engine.FeatureUniqueOpenAlerts:  2,
			engine.FeatureAvgResolutionTime: 1800,
			engine.FeatureIsNoisy:           0,
		})
		Expect(verdict.Explanation.Importances).To(HaveLen(4))
		Expect(len(verdict.Explanation.TopContributors)).To(BeNumerically("<=", 3))
		Expect(verdict.Strategy).To(Equal(engine.StrategyRules))
	})
})
