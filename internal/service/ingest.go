package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"noiseguard.app/engine/common/id"
	"noiseguard.app/engine/common/logger"
	"noiseguard.app/engine/internal/history"
	"noiseguard.app/engine/internal/model"
	"noiseguard.app/engine/internal/provider"
	"noiseguard.app/engine/internal/queue"
	"noiseguard.app/engine/internal/store"
)

// IngestResult reports what happened to one webhook delivery.
type IngestResult struct {
	AlertID         int64
	ConfigurationID int64
	Duplicated      bool
	Enqueued        bool
}

// IngestService turns provider webhooks into stored, indexed, enqueued
// alerts.
type IngestService struct {
	registry       *provider.Registry
	alerts         store.AlertStore
	configurations store.AlertConfigurationStore
	alertHistory   history.Store
	producer       queue.Producer
}

func NewIngestService(registry *provider.Registry, alerts store.AlertStore, configurations store.AlertConfigurationStore, alertHistory history.Store, producer queue.Producer) *IngestService {
	return &IngestService{
		registry:       registry,
		alerts:         alerts,
		configurations: configurations,
		alertHistory:   alertHistory,
		producer:       producer,
	}
}

// Ingest normalizes the payload, upserts the owning configuration,
// persists the alert, indexes it for similarity search, and enqueues a
// classification task. A redelivered event id is deduplicated; a
// resolution transition closes the stored alert instead of creating a
// second one.
func (s *IngestService) Ingest(ctx context.Context, providerKey string, payload []byte, traceID string) (*IngestResult, error) {
	normalizer, err := s.registry.Get(providerKey)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizer.Normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s payload: %w", providerKey, err)
	}

	configuration, err := s.getOrCreateConfiguration(ctx, providerKey, normalized.Configuration)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConfigurationID: logger.Ptr(configuration.ID),
		Provider:        logger.Ptr(providerKey),
		Component:       "noiseguard.service.ingest",
	})

	existing, err := s.alerts.GetByEventID(ctx, configuration.ID, normalized.EventID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking for duplicate event: %w", err)
	}
	if existing != nil {
		return s.handleRedelivery(ctx, existing, normalized, configuration)
	}

	alert := &model.Alert{
		ID:              id.New(),
		ConfigurationID: configuration.ID,
		EventID:         normalized.EventID,
		Title:           normalized.Title,
		Description:     normalized.Description,
		Severity:        normalized.Severity,
		Status:          normalized.Status,
		Tags:            normalized.Tags,
		CreatedAt:       normalized.CreatedAt,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("storing alert: %w", err)
	}

	s.indexAlert(ctx, alert, providerKey)

	enqueued := true
	if err := s.producer.Enqueue(ctx, queue.AlertMessage{
		AlertID:         alert.ID,
		ConfigurationID: configuration.ID,
		TraceID:         traceID,
	}); err != nil {
		// The alert is stored; classification can be replayed later.
		slog.ErrorContext(ctx, "failed to enqueue alert for classification",
			"alert_id", alert.ID, "error", err)
		enqueued = false
	}

	return &IngestResult{
		AlertID:         alert.ID,
		ConfigurationID: configuration.ID,
		Enqueued:        enqueued,
	}, nil
}

func (s *IngestService) getOrCreateConfiguration(ctx context.Context, providerKey string, normalized provider.NormalizedConfiguration) (*model.AlertConfiguration, error) {
	configuration, err := s.configurations.GetByProviderID(ctx, providerKey, normalized.ProviderID)
	if err == nil {
		return configuration, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("fetching configuration: %w", err)
	}

	configuration = &model.AlertConfiguration{
		ID:         id.New(),
		Provider:   providerKey,
		ProviderID: normalized.ProviderID,
		Name:       normalized.Name,
		Query:      normalized.Query,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.configurations.Create(ctx, configuration); err != nil {
		return nil, fmt.Errorf("creating configuration: %w", err)
	}

	// A concurrent ingest may have created it first; the insert is a no-op
	// then, so re-read to get the committed row.
	committed, err := s.configurations.GetByProviderID(ctx, providerKey, normalized.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("re-reading configuration: %w", err)
	}
	return committed, nil
}

// handleRedelivery applies status transitions from a provider re-sending
// an event we already hold.
func (s *IngestService) handleRedelivery(ctx context.Context, existing *model.Alert, normalized *provider.NormalizedAlert, configuration *model.AlertConfiguration) (*IngestResult, error) {
	if normalized.Status == model.StatusResolved && existing.Status != model.StatusResolved {
		duration := time.Since(existing.CreatedAt).Seconds()
		if err := s.alerts.UpdateStatus(ctx, existing.ID, model.StatusResolved, &duration); err != nil {
			return nil, fmt.Errorf("resolving alert %d: %w", existing.ID, err)
		}
		slog.InfoContext(ctx, "alert resolved",
			"alert_id", existing.ID,
			"duration_seconds", duration)
	} else {
		slog.InfoContext(ctx, "duplicate event ignored",
			"alert_id", existing.ID,
			"event_id", normalized.EventID)
	}

	return &IngestResult{
		AlertID:         existing.ID,
		ConfigurationID: configuration.ID,
		Duplicated:      true,
	}, nil
}

// indexAlert adds the alert to the similarity index. Best effort: a down
// index must not block ingestion.
func (s *IngestService) indexAlert(ctx context.Context, alert *model.Alert, providerKey string) {
	doc := history.Document{
		ID:              strconv.FormatInt(alert.ID, 10),
		Kind:            history.KindAlert,
		Title:           alert.Title,
		Content:         alert.Title + "\n" + alert.Description,
		Provider:        providerKey,
		ConfigurationID: alert.ConfigurationID,
		Severity:        string(alert.Severity),
		CreatedAt:       alert.CreatedAt.Unix(),
	}
	if err := s.alertHistory.Add(ctx, doc); err != nil {
		slog.WarnContext(ctx, "failed to index alert for similarity search",
			"alert_id", alert.ID, "error", err)
	}
}
