package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/model"
)

// Notifier delivers classification outcomes to an alerting surface.
// Failures to classify are rendered as a graceful message, never a crash
// of the notification pipeline.
type Notifier interface {
	NotifyVerdict(ctx context.Context, alert *model.Alert, verdict *model.Verdict) error
	NotifyFailure(ctx context.Context, alert *model.Alert, err error) error
}

// LogNotifier writes verdicts to the structured log. Stands in for a chat
// integration in deployments without one.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyVerdict(ctx context.Context, alert *model.Alert, verdict *model.Verdict) error {
	slog.InfoContext(ctx, "verdict notification",
		"alert_id", alert.ID,
		"title", alert.Title,
		"label", verdict.Label,
		"confidence", fmt.Sprintf("%.2f", verdict.Confidence),
		"reasoning", verdict.Reasoning)
	return nil
}

func (n *LogNotifier) NotifyFailure(ctx context.Context, alert *model.Alert, err error) error {
	kind := engine.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	slog.WarnContext(ctx, "could not classify alert",
		"alert_id", alert.ID,
		"title", alert.Title,
		"error_kind", string(kind),
		"error", err)
	return nil
}
