package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"noiseguard.app/engine/common/logger"
	"noiseguard.app/engine/internal/model"
	"noiseguard.app/engine/internal/store"
)

// Recorder maps human approve/reject signals onto the owning
// configuration's noisy label. Idempotent: replaying a feedback event
// converges to the same configuration state.
type Recorder struct {
	configurations store.AlertConfigurationStore
}

func NewRecorder(configurations store.AlertConfigurationStore) *Recorder {
	return &Recorder{configurations: configurations}
}

func (r *Recorder) RecordFeedback(ctx context.Context, event model.FeedbackEvent) (*model.AlertConfiguration, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AlertID:         logger.Ptr(event.AlertID),
		ConfigurationID: logger.Ptr(event.ConfigurationID),
		Component:       "noiseguard.engine.feedback",
	})

	if event.PreviousLabel != model.LabelActionable && event.PreviousLabel != model.LabelNoisy {
		return nil, fmt.Errorf("feedback label must be %q or %q, got %q",
			model.LabelActionable, model.LabelNoisy, event.PreviousLabel)
	}

	// Disagreement with "actionable" or agreement with "noisy" both push
	// the configuration toward noisy.
	isNoisy := (event.PreviousLabel == model.LabelActionable && !event.Approved) ||
		(event.PreviousLabel == model.LabelNoisy && event.Approved)

	reason := "User feedback: marked not noisy"
	if isNoisy {
		reason = "User feedback: marked noisy"
	}

	configuration, err := r.configurations.SetNoisy(ctx, event.ConfigurationID, isNoisy, reason)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindConfigurationNotFound, "configuration %d not found", event.ConfigurationID)
		}
		return nil, fmt.Errorf("recording feedback for configuration %d: %w", event.ConfigurationID, err)
	}

	slog.InfoContext(ctx, "feedback recorded",
		"previous_label", event.PreviousLabel,
		"approved", event.Approved,
		"is_noisy", isNoisy)
	return configuration, nil
}
