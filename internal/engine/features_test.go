package engine_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/history"
	"noiseguard.app/engine/internal/model"
)

var _ = Describe("Engineer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("with no historical context", func() {
		var engineer *engine.Engineer

		BeforeEach(func() {
			engineer = engine.NewEngineer(emptyHistory())
		})

		It("produces the full feature record", func() {
			features, err := engineer.EngineerFeatures(ctx, testAlert(), testStats())
			Expect(err).NotTo(HaveOccurred())

			Expect(features).To(HaveKeyWithValue(engine.FeatureSeverityScore, 3.0))
			Expect(features).To(HaveKeyWithValue(engine.FeatureUniqueOpenAlerts, 2.0))
			Expect(features).To(HaveKeyWithValue(engine.FeatureAvgResolutionTime, 1800.0))
			Expect(features).To(HaveKeyWithValue(engine.FeatureIsNoisy, 0.0))
			Expect(features).To(HaveKeyWithValue(engine.FeatureTimeOfDay, 15.0))
			Expect(features).To(HaveKeyWithValue(engine.FeatureDayOfWeek, 6.0)) // 2026-03-14 is a Saturday
			Expect(features).To(HaveKeyWithValue(engine.FeatureTitleLength, float64(len("High CPU on api-gateway"))))
			Expect(features).To(HaveKeyWithValue(engine.FeatureOccurrenceFrequency, 10.0))
		})

		It("scores historical response depth as 0, not an error", func() {
			features, err := engineer.EngineerFeatures(ctx, testAlert(), testStats())
			Expect(err).NotTo(HaveOccurred())
			Expect(features).To(HaveKeyWithValue(engine.FeatureAvgSlackResponses, 0.0))
		})

		It("maps unknown severity to 0", func() {
			alert := testAlert()
			alert.Severity = model.Severity("bogus")
			features, err := engineer.EngineerFeatures(ctx, alert, testStats())
			Expect(err).NotTo(HaveOccurred())
			Expect(features).To(HaveKeyWithValue(engine.FeatureSeverityScore, 0.0))
		})

		It("flags error and critical keywords from the alert text", func() {
			alert := testAlert()
			alert.Title = "Critical disk failure"
			alert.Description = "write errors on /dev/sda"
			features, err := engineer.EngineerFeatures(ctx, alert, testStats())
			Expect(err).NotTo(HaveOccurred())
			Expect(features).To(HaveKeyWithValue(engine.FeatureHasErrorKeyword, 1.0))
			Expect(features).To(HaveKeyWithValue(engine.FeatureHasCriticalKeyword, 1.0))
		})
	})

	Context("with similar historical alerts", func() {
		It("averages the human response depth over the hits", func() {
			store := &mockHistoryStore{
				searchFunc: func(ctx context.Context, query string, k int, filter map[string]string) ([]history.Hit, error) {
					Expect(query).To(Equal("High CPU on api-gateway CPU above 95% for 10 minutes on api-gateway-3"))
					Expect(k).To(Equal(5))
					Expect(filter).To(HaveKeyWithValue("kind", history.KindAlert))
					return []history.Hit{
						{Document: history.Document{ID: "a", ResponseCount: 4}, Rank: 1},
						{Document: history.Document{ID: "b", ResponseCount: 2}, Rank: 2},
						{Document: history.Document{ID: "c", ResponseCount: 0}, Rank: 3},
					}, nil
				},
			}
			engineer := engine.NewEngineer(store)

			features, err := engineer.EngineerFeatures(ctx, testAlert(), testStats())
			Expect(err).NotTo(HaveOccurred())
			Expect(features[engine.FeatureAvgSlackResponses]).To(BeNumerically("~", 2.0, 0.001))
		})
	})

	Context("when the historical store is unreachable", func() {
		It("propagates a retrieval-unavailable error", func() {
			store := &mockHistoryStore{
				searchFunc: func(ctx context.Context, query string, k int, filter map[string]string) ([]history.Hit, error) {
					return nil, fmt.Errorf("%w: connection refused", history.ErrRetrievalUnavailable)
				},
			}
			engineer := engine.NewEngineer(store)

			_, err := engineer.EngineerFeatures(ctx, testAlert(), testStats())
			Expect(err).To(HaveOccurred())
			Expect(engine.KindOf(err)).To(Equal(engine.KindRetrievalUnavailable))
		})
	})
})
