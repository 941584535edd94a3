package llm_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"noiseguard.app/engine/common/llm"
)

type verdictOutput struct {
	Actionable     bool    `json:"actionable"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

func (v verdictOutput) Validate() error {
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("confidence %f out of range [0, 1]", v.Confidence)
	}
	if v.Recommendation == "" {
		return fmt.Errorf("recommendation must not be empty")
	}
	return nil
}

type mockClient struct {
	chatFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)
	calls    []llm.Request
}

func (m *mockClient) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.calls = append(m.calls, req)
	return m.chatFunc(ctx, req)
}

func (m *mockClient) Model() string { return "mock-model" }

var _ = Describe("CallStructured", func() {
	var (
		ctx    context.Context
		client *mockClient
		req    llm.Request
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockClient{}
		req = llm.Request{
			Messages:   []llm.Message{{Role: "user", Content: "classify this alert"}},
			SchemaName: "alert_verdict",
		}
	})

	Context("when the first response is valid", func() {
		BeforeEach(func() {
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				return &llm.Response{
					Content:    `{"actionable": true, "confidence": 0.87, "recommendation": "Investigate the upstream dependency."}`,
					Structured: true,
				}, nil
			}
		})

		It("returns the parsed output without retrying", func() {
			result, err := llm.CallStructured[verdictOutput](ctx, client, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Actionable).To(BeTrue())
			Expect(result.Confidence).To(BeNumerically("~", 0.87, 0.001))
			Expect(client.calls).To(HaveLen(1))
		})

		It("generates a schema when none is provided", func() {
			_, err := llm.CallStructured[verdictOutput](ctx, client, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.calls[0].Schema).NotTo(BeNil())
		})
	})

	Context("when the first response is malformed JSON", func() {
		BeforeEach(func() {
			attempt := 0
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				attempt++
				if attempt == 1 {
					return &llm.Response{Content: `{"actionable": true, "confi`, Structured: true}, nil
				}
				return &llm.Response{
					Content:    `{"actionable": false, "confidence": 0.2, "recommendation": "Likely noise, suppress."}`,
					Structured: true,
				}, nil
			}
		})

		It("retries with a corrective turn and succeeds", func() {
			result, err := llm.CallStructured[verdictOutput](ctx, client, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Actionable).To(BeFalse())
			Expect(client.calls).To(HaveLen(2))
		})

		It("appends the bad output and a correction to the retry conversation", func() {
			_, err := llm.CallStructured[verdictOutput](ctx, client, req)
			Expect(err).NotTo(HaveOccurred())

			retry := client.calls[1]
			Expect(retry.Messages).To(HaveLen(3))
			Expect(retry.Messages[1].Role).To(Equal("assistant"))
			Expect(retry.Messages[1].Content).To(ContainSubstring(`"confi`))
			Expect(retry.Messages[2].Role).To(Equal("user"))
			Expect(retry.Messages[2].Content).To(ContainSubstring("invalid"))
		})

		It("does not mutate the caller's request messages", func() {
			_, err := llm.CallStructured[verdictOutput](ctx, client, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Messages).To(HaveLen(1))
		})
	})

	Context("when the response parses but fails validation", func() {
		BeforeEach(func() {
			attempt := 0
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				attempt++
				if attempt == 1 {
					return &llm.Response{
						Content:    `{"actionable": true, "confidence": 4.2, "recommendation": "Check the disk."}`,
						Structured: true,
					}, nil
				}
				return &llm.Response{
					Content:    `{"actionable": true, "confidence": 0.9, "recommendation": "Check the disk."}`,
					Structured: true,
				}, nil
			}
		})

		It("treats the validation failure as retryable", func() {
			result, err := llm.CallStructured[verdictOutput](ctx, client, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Confidence).To(BeNumerically("~", 0.9, 0.001))
			Expect(client.calls).To(HaveLen(2))
		})
	})

	Context("when the model never invokes the structuring mechanism", func() {
		BeforeEach(func() {
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: "I cannot classify this alert.", Structured: false}, nil
			}
		})

		It("exhausts the retry budget and returns StructuredOutputError", func() {
			_, err := llm.CallStructured[verdictOutput](ctx, client, req)

			var soErr *llm.StructuredOutputError
			Expect(errors.As(err, &soErr)).To(BeTrue())
			Expect(soErr.LastOutput).To(Equal("I cannot classify this alert."))
			Expect(soErr.Attempts).To(Equal(llm.DefaultMaxRetries + 1))
			Expect(client.calls).To(HaveLen(llm.DefaultMaxRetries + 1))
		})
	})

	Context("when every response is invalid", func() {
		BeforeEach(func() {
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				return &llm.Response{Content: "not json at all", Structured: true}, nil
			}
		})

		It("terminates within the retry budget", func() {
			_, err := llm.CallStructured[verdictOutput](ctx, client, req)

			var soErr *llm.StructuredOutputError
			Expect(errors.As(err, &soErr)).To(BeTrue())
			Expect(soErr.LastOutput).To(Equal("not json at all"))
			Expect(client.calls).To(HaveLen(llm.DefaultMaxRetries + 1))
		})

		It("grows the conversation by two turns per failed attempt", func() {
			_, _ = llm.CallStructured[verdictOutput](ctx, client, req)

			last := client.calls[len(client.calls)-1]
			Expect(last.Messages).To(HaveLen(1 + 2*llm.DefaultMaxRetries))
		})
	})

	Context("when the transport fails", func() {
		BeforeEach(func() {
			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				return nil, errors.New("connection refused")
			}
		})

		It("aborts immediately without consuming the retry budget", func() {
			_, err := llm.CallStructured[verdictOutput](ctx, client, req)
			Expect(err).To(MatchError("connection refused"))
			Expect(client.calls).To(HaveLen(1))
		})
	})

	Context("when the context deadline expires mid-retry", func() {
		It("surfaces the context error, not a structured output error", func() {
			timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()

			client.chatFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}

			_, err := llm.CallStructured[verdictOutput](timeoutCtx, client, req)
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())

			var soErr *llm.StructuredOutputError
			Expect(errors.As(err, &soErr)).To(BeFalse())
		})
	})
})
