package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies classification failures so callers (notifiers,
// HTTP handlers) can render a meaningful "could not classify" message.
type ErrorKind string

const (
	// KindMissingFeature: a strategy's declared feature is absent from the
	// feature record. Schema drift; fatal, never retried.
	KindMissingFeature ErrorKind = "missing_feature"
	// KindModelUnavailable: trained model artifact missing or unloadable.
	KindModelUnavailable ErrorKind = "model_unavailable"
	// KindPredictionFormat: model output shape unexpected; artifact drift.
	KindPredictionFormat ErrorKind = "prediction_format_error"
	// KindRetrievalUnavailable: historical store unreachable.
	KindRetrievalUnavailable ErrorKind = "retrieval_unavailable"
	// KindStructuredOutputInvalid: LLM retry budget exhausted.
	KindStructuredOutputInvalid ErrorKind = "structured_output_invalid"
	// KindConfigurationNotFound: owning configuration does not exist.
	KindConfigurationNotFound ErrorKind = "configuration_not_found"
	// KindTimeout: caller deadline expired mid-classification.
	KindTimeout ErrorKind = "timeout"
)

// ClassificationError is the typed failure surfaced by Classify and
// RecordFeedback.
type ClassificationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...any) *ClassificationError {
	return &ClassificationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *ClassificationError {
	return &ClassificationError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the error kind, or empty string for untyped errors.
func KindOf(err error) ErrorKind {
	var ce *ClassificationError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
