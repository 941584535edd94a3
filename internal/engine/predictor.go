package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"noiseguard.app/engine/common/llm"
	"noiseguard.app/engine/internal/history"
	"noiseguard.app/engine/internal/model"
)

const StrategyLLM = "llm"

const (
	similarContextK   = 5
	knowledgeContextK = 2
)

// verdictPayload is the schema the model must return.
type verdictPayload struct {
	Score          float64           `json:"score" jsonschema_description:"Actionability score between 0 and 1"`
	Reasoning      string            `json:"reasoning" jsonschema_description:"Human-readable rationale for the score"`
	AdditionalInfo map[string]string `json:"additional_info" jsonschema_description:"Contextual extras: noise precedent or remediation references"`
}

// Validate rejects out-of-range scores so a misbehaving model retries
// instead of being clamped silently.
func (v verdictPayload) Validate() error {
	if v.Score < 0 || v.Score > 1 {
		return fmt.Errorf("score %f out of range [0, 1]", v.Score)
	}
	if strings.TrimSpace(v.Reasoning) == "" {
		return fmt.Errorf("reasoning must not be empty")
	}
	return nil
}

// LLMPredictor scores alerts with a retrieval-augmented structured model
// call: similar past alerts plus knowledge articles are folded into one
// prompt, and the response must conform to the verdict schema.
type LLMPredictor struct {
	client       llm.Client
	alertHistory history.Store
	knowledge    history.Store
}

func NewLLMPredictor(client llm.Client, alertHistory, knowledge history.Store) *LLMPredictor {
	return &LLMPredictor{client: client, alertHistory: alertHistory, knowledge: knowledge}
}

func (p *LLMPredictor) Name() string {
	return StrategyLLM
}

func (p *LLMPredictor) Classify(ctx context.Context, alert *model.Alert, stats *model.ConfigurationStats, features model.FeatureRecord) (*model.Verdict, error) {
	query := strings.TrimSpace(alert.Title + " " + alert.Description)

	similar, err := p.alertHistory.Search(ctx, query, similarContextK, map[string]string{"kind": history.KindAlert})
	if err != nil {
		return nil, wrapError(KindRetrievalUnavailable, err, "retrieving similar alerts")
	}

	articles, err := p.knowledge.Search(ctx, query, knowledgeContextK, nil)
	if err != nil {
		return nil, wrapError(KindRetrievalUnavailable, err, "retrieving knowledge articles")
	}

	prompt := buildPredictionPrompt(alert, stats, similar, articles)

	payload, err := llm.CallStructured[verdictPayload](ctx, p.client, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: predictionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		SchemaName:  "alert_verdict",
		Temperature: llm.Temp(0),
	})
	if err != nil {
		return nil, p.mapCallError(err)
	}

	return &model.Verdict{
		AlertID:    alert.ID,
		Confidence: payload.Score,
		Strategy:   StrategyLLM,
		Reasoning:  payload.Reasoning,
		Explanation: model.Explanation{
			Context: contextReferences(payload.AdditionalInfo, similar, articles),
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// mapCallError keeps deadline expiry distinguishable from an exhausted
// retry budget.
func (p *LLMPredictor) mapCallError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return wrapError(KindTimeout, err, "prediction call deadline expired")
	}

	var soErr *llm.StructuredOutputError
	if errors.As(err, &soErr) {
		return wrapError(KindStructuredOutputInvalid, err,
			"model output invalid after %d attempts", soErr.Attempts)
	}
	return fmt.Errorf("invoking prediction model: %w", err)
}

const predictionSystemPrompt = `You are an SRE triage assistant. You decide whether an operational alert is actionable (requires human response) or noisy (safe to suppress). You always respond with the requested structured verdict.`

func buildPredictionPrompt(alert *model.Alert, stats *model.ConfigurationStats, similar, articles []history.Hit) string {
	var b strings.Builder

	b.WriteString("Evaluate the actionability of the following alert.\n\n")

	b.WriteString("## Alert\n")
	fmt.Fprintf(&b, "Title: %s\n", alert.Title)
	fmt.Fprintf(&b, "Description: %s\n", alert.Description)
	fmt.Fprintf(&b, "Severity: %s\n", alert.Severity)
	fmt.Fprintf(&b, "Fired at: %s\n\n", alert.CreatedAt.Format(time.RFC3339))

	b.WriteString("## Monitor history\n")
	fmt.Fprintf(&b, "Monitor: %s\n", stats.ConfigurationName)
	fmt.Fprintf(&b, "Currently open alerts from this monitor: %d\n", stats.OpenAlertCount)
	fmt.Fprintf(&b, "Average resolution time: %.0f seconds\n", stats.AvgResolutionSecs)
	fmt.Fprintf(&b, "Dominant severity: %s\n", stats.DominantSeverity)
	if stats.IsNoisy {
		fmt.Fprintf(&b, "Previously marked noisy by a human: yes (%s)\n", stats.NoisyReason)
	} else {
		b.WriteString("Previously marked noisy by a human: no\n")
	}
	b.WriteString("\n")

	b.WriteString("## Similar past alerts\n")
	if len(similar) == 0 {
		b.WriteString("None found.\n")
	}
	for _, hit := range similar {
		fmt.Fprintf(&b, "%d. [%s, %d human responses] %s\n",
			hit.Rank, hit.Document.Severity, hit.Document.ResponseCount,
			summarize(hit.Document.Content, 300))
	}
	b.WriteString("\n")

	b.WriteString("## Relevant knowledge articles\n")
	if len(articles) == 0 {
		b.WriteString("None found.\n")
	}
	for _, hit := range articles {
		fmt.Fprintf(&b, "%d. %s: %s\n", hit.Rank, hit.Document.Title,
			summarize(hit.Document.Content, 300))
	}
	b.WriteString("\n")

	b.WriteString(`## Instructions
Weigh the signals in this priority order, highest first:
1. Repetition frequency: the same alert firing repeatedly without response suggests noise.
2. Resolution speed: alerts that auto-resolve quickly suggest noise.
3. Prior non-response: similar past alerts that nobody responded to suggest noise.
4. Severity: higher severity suggests actionability.
5. Correlation: alerts correlated with other open incidents suggest actionability.
6. Novel error type: a failure mode not seen before suggests actionability.
7. Threshold exceedance magnitude: a large breach suggests actionability.

Produce a score between 0 and 1 where 1 means definitely actionable.
If your score is below 0.5, additional_info must explain why this alert is noise, referencing the similar past alerts above as precedent.
If your score is 0.5 or above, additional_info must contain a short issue summary and references to remediation steps from the knowledge articles above.
`)

	return b.String()
}

func contextReferences(additionalInfo map[string]string, similar, articles []history.Hit) map[string]string {
	refs := make(map[string]string, len(additionalInfo)+2)
	for k, v := range additionalInfo {
		refs[k] = v
	}
	if len(similar) > 0 {
		ids := make([]string, 0, len(similar))
		for _, hit := range similar {
			ids = append(ids, hit.Document.ID)
		}
		refs["similar_alert_ids"] = strings.Join(ids, ",")
	}
	if len(articles) > 0 {
		ids := make([]string, 0, len(articles))
		for _, hit := range articles {
			ids = append(ids, hit.Document.ID)
		}
		refs["knowledge_article_ids"] = strings.Join(ids, ",")
	}
	return refs
}

func summarize(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
