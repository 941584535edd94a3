package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"noiseguard.app/engine/common/logger"
	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/notifier"
	"noiseguard.app/engine/internal/queue"
	"noiseguard.app/engine/internal/store"
)

type Config struct {
	MaxAttempts int
}

// Worker drains the classification stream: load the alert, classify it,
// deliver the outcome.
type Worker struct {
	consumer *queue.RedisConsumer
	alerts   store.AlertStore
	engine   *engine.Engine
	notifier notifier.Notifier
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, alerts store.AlertStore, eng *engine.Engine, n notifier.Notifier, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		alerts:    alerts,
		engine:    eng,
		notifier:  n,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"alert_id", msg.AlertID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"alert_id", msg.AlertID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage classifies one alert. Exported so it can be reused by the
// reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	span := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.classify_alert")
	defer span.End()
	ctx = logger.WithLogFields(span.Context(), logger.LogFields{
		AlertID:         logger.Ptr(msg.AlertID),
		ConfigurationID: logger.Ptr(msg.ConfigurationID),
		MessageID:       logger.Ptr(msg.ID),
		Component:       "noiseguard.worker",
	})

	slog.InfoContext(ctx, "processing message", "attempt", msg.Attempt)

	alert, err := w.alerts.GetByID(ctx, msg.AlertID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Nothing to classify; ack so the message doesn't loop.
			slog.WarnContext(ctx, "alert no longer exists, skipping")
			return w.ack(ctx, msg)
		}
		return fmt.Errorf("loading alert %d: %w", msg.AlertID, err)
	}

	verdict, err := w.engine.Classify(ctx, alert)
	if err != nil {
		span.RecordError(err)
		if retryable(err) {
			return fmt.Errorf("classifying alert %d: %w", msg.AlertID, err)
		}
		// A permanent failure still gets a graceful notification.
		if notifyErr := w.notifier.NotifyFailure(ctx, alert, err); notifyErr != nil {
			slog.ErrorContext(ctx, "failure notification failed", "error", notifyErr)
		}
		return w.ack(ctx, msg)
	}

	if err := w.alerts.RecordVerdict(ctx, alert.ID, verdict.Label, verdict.Confidence); err != nil {
		// Notification still goes out; the snapshot catches up on reclaim.
		slog.ErrorContext(ctx, "failed to record verdict on alert", "error", err)
	}

	if err := w.notifier.NotifyVerdict(ctx, alert, verdict); err != nil {
		slog.ErrorContext(ctx, "verdict notification failed", "error", err)
	}

	return w.ack(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) error {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be reclaimed; reprocessing a classification is safe.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}
	return nil
}

// retryable reports whether the classification failure may succeed on a
// later attempt. Schema drift and unknown configurations will not.
func retryable(err error) bool {
	switch engine.KindOf(err) {
	case engine.KindRetrievalUnavailable, engine.KindTimeout, engine.KindStructuredOutputInvalid:
		return true
	case engine.KindMissingFeature, engine.KindConfigurationNotFound:
		return false
	default:
		return true
	}
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"alert_id", msg.AlertID,
			"attempts", msg.Attempt)
		if alert, getErr := w.alerts.GetByID(ctx, msg.AlertID); getErr == nil {
			_ = w.notifier.NotifyFailure(ctx, alert, err)
		}
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"alert_id", msg.AlertID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
