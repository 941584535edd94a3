package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where business
// context (alert_id, configuration_id, etc.) is automatically included in all log statements.
type LogFields struct {
	AlertID         *int64  // Alert being classified
	ConfigurationID *int64  // Owning alert configuration
	MessageID       *string // Redis stream message ID
	Provider        *string // Monitoring provider (e.g., "datadog", "pagerduty")
	Strategy        *string // Scoring strategy in use
	Component       string  // Component name (e.g., "noiseguard.engine.predictor")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.AlertID != nil {
		result.AlertID = new.AlertID
	}
	if new.ConfigurationID != nil {
		result.ConfigurationID = new.ConfigurationID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Provider != nil {
		result.Provider = new.Provider
	}
	if new.Strategy != nil {
		result.Strategy = new.Strategy
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{AlertID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like prompts or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
