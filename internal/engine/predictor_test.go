package engine_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"noiseguard.app/engine/common/llm"
	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/history"
)

var _ = Describe("LLMPredictor", func() {
	var (
		ctx       context.Context
		client    *mockLLMClient
		alertHist *mockHistoryStore
		knowledge *mockHistoryStore
	)

	validResponse := `{"score": 0.8, "reasoning": "Novel failure mode on a high-severity monitor.", "additional_info": {"summary": "Gateway CPU saturation"}}`

	BeforeEach(func() {
		ctx = context.Background()
	})

	newPredictor := func() *engine.LLMPredictor {
		return engine.NewLLMPredictor(client, alertHist, knowledge)
	}

	Context("with historical context available", func() {
		BeforeEach(func() {
			alertHist = &mockHistoryStore{
				searchFunc: func(ctx context.Context, query string, k int, filter map[string]string) ([]history.Hit, error) {
					Expect(k).To(Equal(5))
					Expect(filter).To(HaveKeyWithValue("kind", history.KindAlert))
					return []history.Hit{
						{Document: history.Document{ID: "past-1", Severity: "high", ResponseCount: 3, Content: "CPU spiked, scaled out the pool"}, Rank: 1},
						{Document: history.Document{ID: "past-2", Severity: "low", ResponseCount: 0, Content: "Auto-resolved in 40 seconds"}, Rank: 2},
					}, nil
				},
			}
			knowledge = &mockHistoryStore{
				searchFunc: func(ctx context.Context, query string, k int, filter map[string]string) ([]history.Hit, error) {
					Expect(k).To(Equal(2))
					return []history.Hit{
						{Document: history.Document{ID: "kb-1", Title: "CPU saturation runbook", Content: "Scale the gateway pool"}, Rank: 1},
					}, nil
				},
			}
			client = &mockLLMClient{}
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: validResponse, Structured: true}, nil
			}
		})

		It("returns the model's score and reasoning as the verdict", func() {
			verdict, err := newPredictor().Classify(ctx, testAlert(), testStats(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(verdict.Confidence).To(BeNumerically("~", 0.8, 0.001))
			Expect(verdict.Reasoning).To(ContainSubstring("Novel failure mode"))
			Expect(verdict.Strategy).To(Equal(engine.StrategyLLM))
		})

		It("references the retrieved context in the explanation", func() {
			verdict, err := newPredictor().Classify(ctx, testAlert(), testStats(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(verdict.Explanation.Context).To(HaveKeyWithValue("similar_alert_ids", "past-1,past-2"))
			Expect(verdict.Explanation.Context).To(HaveKeyWithValue("knowledge_article_ids", "kb-1"))
			Expect(verdict.Explanation.Context).To(HaveKeyWithValue("summary", "Gateway CPU saturation"))
		})

		It("embeds the alert, monitor history, retrieved context, and priority order in the prompt", func() {
			_, err := newPredictor().Classify(ctx, testAlert(), testStats(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.calls).To(HaveLen(1))

			prompt := client.calls[0].Messages[1].Content
			Expect(prompt).To(ContainSubstring("High CPU on api-gateway"))
			Expect(prompt).To(ContainSubstring("Currently open alerts from this monitor: 2"))
			Expect(prompt).To(ContainSubstring("scaled out the pool"))
			Expect(prompt).To(ContainSubstring("CPU saturation runbook"))
			Expect(prompt).To(ContainSubstring("Repetition frequency"))
			Expect(prompt).To(ContainSubstring("below 0.5"))
			Expect(prompt).To(ContainSubstring("0.5 or above"))
		})
	})

	Context("when retrieval is unavailable", func() {
		BeforeEach(func() {
			alertHist = &mockHistoryStore{
				searchFunc: func(ctx context.Context, query string, k int, filter map[string]string) ([]history.Hit, error) {
					return nil, fmt.Errorf("%w: dial tcp refused", history.ErrRetrievalUnavailable)
				},
			}
			knowledge = emptyHistory()
			client = &mockLLMClient{}
		})

		It("propagates the retrieval-unavailable kind without calling the model", func() {
			_, err := newPredictor().Classify(ctx, testAlert(), testStats(), nil)
			Expect(err).To(HaveOccurred())
			Expect(engine.KindOf(err)).To(Equal(engine.KindRetrievalUnavailable))
			Expect(client.calls).To(BeEmpty())
		})
	})

	Context("when the model never produces valid output", func() {
		BeforeEach(func() {
			alertHist = emptyHistory()
			knowledge = emptyHistory()
			client = &mockLLMClient{}
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: "garbage", Structured: true}, nil
			}
		})

		It("surfaces the structured-output-invalid kind after the retry budget", func() {
			_, err := newPredictor().Classify(ctx, testAlert(), testStats(), nil)
			Expect(err).To(HaveOccurred())
			Expect(engine.KindOf(err)).To(Equal(engine.KindStructuredOutputInvalid))
		})
	})

	Context("when the caller deadline expires mid-call", func() {
		BeforeEach(func() {
			alertHist = emptyHistory()
			knowledge = emptyHistory()
			client = &mockLLMClient{}
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}
		})

		It("surfaces the timeout kind, not structured-output-invalid", func() {
			timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()

			_, err := newPredictor().Classify(timeoutCtx, testAlert(), testStats(), nil)
			Expect(err).To(HaveOccurred())
			Expect(engine.KindOf(err)).To(Equal(engine.KindTimeout))
		})
	})
})
