package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/model"
)

var _ = Describe("Classifier", func() {
	var (
		ctx       context.Context
		dir       string
		modelPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		modelPath = filepath.Join(dir, "alert_classifier_model.json")
	})

	writeArtifact := func(content string) {
		Expect(os.WriteFile(modelPath, []byte(content), 0o644)).To(Succeed())
	}

	validArtifact := `{
		"feature_names": ["severity_score", "is_noisy"],
		"coefficients": [1.0, -2.0],
		"intercept": -2.0,
		"classes": ["noisy", "actionable"]
	}`

	fullFeatures := func() model.FeatureRecord {
		return model.FeatureRecord{
			engine.FeatureSeverityScore: 3,
			engine.FeatureIsNoisy:       0,
		}
	}

	Context("when no model artifact exists", func() {
		It("returns the unavailable sentinel instead of an error", func() {
			classifier := engine.NewClassifier(modelPath)

			verdict, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(verdict.Label).To(Equal(model.LabelUnknown))
			Expect(verdict.Confidence).To(BeZero())
			Expect(verdict.Actionable).To(BeFalse())
		})
	})

	Context("with a valid artifact", func() {
		BeforeEach(func() {
			writeArtifact(validArtifact)
		})

		It("computes the positive-class probability from the feature vector", func() {
			classifier := engine.NewClassifier(modelPath)

			verdict, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())
			// z = -2 + 1.0*3 + (-2.0)*0 = 1
			Expect(verdict.Confidence).To(BeNumerically("~", 0.7311, 0.001))
			Expect(verdict.Strategy).To(Equal(engine.StrategyClassifier))
		})

		It("fails fast when a declared feature is absent", func() {
			classifier := engine.NewClassifier(modelPath)

			_, err := classifier.Classify(ctx, testAlert(), testStats(), model.FeatureRecord{
				engine.FeatureSeverityScore: 3,
			})
			Expect(err).To(HaveOccurred())
			Expect(engine.KindOf(err)).To(Equal(engine.KindMissingFeature))
			Expect(err.Error()).To(ContainSubstring("is_noisy"))
		})

		It("exposes additive attributions with the intercept as base value", func() {
			classifier := engine.NewClassifier(modelPath)

			verdict, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(verdict.Explanation.BaseValue).To(Equal(-2.0))
			Expect(verdict.Explanation.Importances).To(HaveKeyWithValue("severity_score", 3.0))
			Expect(len(verdict.Explanation.TopContributors)).To(BeNumerically("<=", 3))
			Expect(verdict.Explanation.TopContributors[0].Feature).To(Equal("severity_score"))
		})
	})

	Context("when the artifact shape is wrong", func() {
		It("degrades to the unknown verdict on a coefficient mismatch", func() {
			writeArtifact(`{
				"feature_names": ["severity_score", "is_noisy"],
				"coefficients": [1.0],
				"intercept": 0,
				"classes": ["noisy", "actionable"]
			}`)
			classifier := engine.NewClassifier(modelPath)

			verdict, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(verdict.Label).To(Equal(model.LabelUnknown))
		})

		It("degrades to the unknown verdict on an unsupported class count", func() {
			writeArtifact(`{
				"feature_names": ["severity_score", "is_noisy"],
				"coefficients": [1.0, -2.0],
				"intercept": 0,
				"classes": ["a", "b", "c"]
			}`)
			classifier := engine.NewClassifier(modelPath)

			verdict, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(verdict.Label).To(Equal(model.LabelUnknown))
		})
	})

	Context("when the artifact file is replaced", func() {
		It("hot-reloads once the modification time advances", func() {
			writeArtifact(validArtifact)
			classifier := engine.NewClassifier(modelPath)

			first, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Confidence).To(BeNumerically("~", 0.7311, 0.001))

			writeArtifact(`{
				"feature_names": ["severity_score", "is_noisy"],
				"coefficients": [0.0, 0.0],
				"intercept": 0.0,
				"classes": ["noisy", "actionable"]
			}`)
			future := time.Now().Add(2 * time.Second)
			Expect(os.Chtimes(modelPath, future, future)).To(Succeed())

			second, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Confidence).To(BeNumerically("~", 0.5, 0.001))
		})

		It("falls back to the unavailable sentinel if the file disappears", func() {
			writeArtifact(validArtifact)
			classifier := engine.NewClassifier(modelPath)

			_, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())

			Expect(os.Remove(modelPath)).To(Succeed())

			verdict, err := classifier.Classify(ctx, testAlert(), testStats(), fullFeatures())
			Expect(err).NotTo(HaveOccurred())
			Expect(verdict.Label).To(Equal(model.LabelUnknown))
		})
	})
})
