package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"noiseguard.app/engine/common/logger"
)

// DefaultMaxRetries bounds the number of corrective re-invocations after
// the initial call produces unparseable or invalid output.
const DefaultMaxRetries = 3

// Validatable is implemented by output types that carry semantic constraints
// beyond what the JSON schema can express (value ranges, enum membership).
type Validatable interface {
	Validate() error
}

// StructuredOutputError is returned when the retry budget is exhausted
// without obtaining a parseable, valid payload. LastOutput preserves the
// model's final raw output for diagnostics.
type StructuredOutputError struct {
	SchemaName string
	Attempts   int
	LastOutput string
	LastErr    error
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("structured output for %s invalid after %d attempts: %v",
		e.SchemaName, e.Attempts, e.LastErr)
}

func (e *StructuredOutputError) Unwrap() error {
	return e.LastErr
}

// CallStructured invokes the model under a schema constraint and parses the
// output into T. On a parse or validation failure it appends the bad output
// and a corrective user turn to the conversation and re-invokes, up to
// DefaultMaxRetries times. Transport errors and context expiry abort
// immediately; only output-shape failures consume the retry budget.
func CallStructured[T Validatable](ctx context.Context, client Client, req Request) (T, error) {
	var zero T

	if req.Schema == nil {
		req.Schema = GenerateSchema[T]()
	}
	if req.SchemaName == "" {
		req.SchemaName = "structured_output"
	}

	messages := make([]Message, len(req.Messages))
	copy(messages, req.Messages)

	var lastOutput string
	var lastErr error

	for attempt := 0; attempt <= DefaultMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		attemptReq := req
		attemptReq.Messages = messages

		resp, err := client.Chat(ctx, attemptReq)
		if err != nil {
			return zero, err
		}

		lastOutput = resp.Content
		result, parseErr := parseStructured[T](resp)
		if parseErr == nil {
			return result, nil
		}
		lastErr = parseErr

		slog.WarnContext(ctx, "structured output invalid, requesting correction",
			"schema", req.SchemaName,
			"attempt", attempt+1,
			"error", parseErr,
			"output", logger.Truncate(resp.Content, 500))

		messages = append(messages,
			Message{Role: "assistant", Content: resp.Content},
			Message{Role: "user", Content: fmt.Sprintf(
				"Your previous response was invalid: %v. Respond again with only a JSON object matching the required schema.",
				parseErr)},
		)
	}

	return zero, &StructuredOutputError{
		SchemaName: req.SchemaName,
		Attempts:   DefaultMaxRetries + 1,
		LastOutput: lastOutput,
		LastErr:    lastErr,
	}
}

func parseStructured[T Validatable](resp *Response) (T, error) {
	var result T

	if !resp.Structured {
		return result, fmt.Errorf("model did not produce structured output")
	}
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		return result, fmt.Errorf("parsing output: %w", err)
	}
	if err := result.Validate(); err != nil {
		return result, fmt.Errorf("validating output: %w", err)
	}
	return result, nil
}
