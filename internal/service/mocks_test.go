package service_test

import (
	"context"
	"time"

	"noiseguard.app/engine/internal/history"
	"noiseguard.app/engine/internal/model"
	"noiseguard.app/engine/internal/queue"
	"noiseguard.app/engine/internal/store"
)

// Mock AlertStore
type mockAlertStore struct {
	createFn       func(ctx context.Context, alert *model.Alert) error
	getByEventIDFn func(ctx context.Context, configurationID int64, eventID string) (*model.Alert, error)
	updateStatusFn func(ctx context.Context, id int64, status model.Status, durationSeconds *float64) error

	capturedAlert *model.Alert
}

func (m *mockAlertStore) Create(ctx context.Context, alert *model.Alert) error {
	m.capturedAlert = alert
	if m.createFn != nil {
		return m.createFn(ctx, alert)
	}
	return nil
}

func (m *mockAlertStore) GetByID(ctx context.Context, id int64) (*model.Alert, error) {
	return nil, store.ErrNotFound
}

func (m *mockAlertStore) GetByEventID(ctx context.Context, configurationID int64, eventID string) (*model.Alert, error) {
	if m.getByEventIDFn != nil {
		return m.getByEventIDFn(ctx, configurationID, eventID)
	}
	return nil, store.ErrNotFound
}

func (m *mockAlertStore) UpdateStatus(ctx context.Context, id int64, status model.Status, durationSeconds *float64) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, durationSeconds)
	}
	return nil
}

func (m *mockAlertStore) RecordVerdict(ctx context.Context, id int64, label string, confidence float64) error {
	return nil
}

func (m *mockAlertStore) ListByConfiguration(ctx context.Context, configurationID int64, limit int32) ([]model.Alert, error) {
	return nil, nil
}

func (m *mockAlertStore) CountOpenSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (m *mockAlertStore) TopTitles(ctx context.Context, since time.Time, limit int32) ([]model.TitleCount, error) {
	return nil, nil
}

func (m *mockAlertStore) CountOpen(ctx context.Context, configurationID int64) (int64, error) {
	return 0, nil
}

func (m *mockAlertStore) CountTotal(ctx context.Context, configurationID int64) (int64, error) {
	return 0, nil
}

func (m *mockAlertStore) AvgResolutionSeconds(ctx context.Context, configurationID int64) (float64, error) {
	return 0, nil
}

func (m *mockAlertStore) DominantSeverity(ctx context.Context, configurationID int64) (model.Severity, error) {
	return model.SeverityLow, nil
}

// Mock AlertConfigurationStore
type mockConfigurationStore struct {
	createFn          func(ctx context.Context, configuration *model.AlertConfiguration) error
	getByProviderIDFn func(ctx context.Context, provider, providerID string) (*model.AlertConfiguration, error)

	capturedConfiguration *model.AlertConfiguration
}

func (m *mockConfigurationStore) Create(ctx context.Context, configuration *model.AlertConfiguration) error {
	m.capturedConfiguration = configuration
	if m.createFn != nil {
		return m.createFn(ctx, configuration)
	}
	return nil
}

func (m *mockConfigurationStore) GetByID(ctx context.Context, id int64) (*model.AlertConfiguration, error) {
	return nil, store.ErrNotFound
}

func (m *mockConfigurationStore) GetByProviderID(ctx context.Context, provider, providerID string) (*model.AlertConfiguration, error) {
	if m.getByProviderIDFn != nil {
		return m.getByProviderIDFn(ctx, provider, providerID)
	}
	return nil, store.ErrNotFound
}

func (m *mockConfigurationStore) SetNoisy(ctx context.Context, id int64, isNoisy bool, reason string) (*model.AlertConfiguration, error) {
	return nil, store.ErrNotFound
}

func (m *mockConfigurationStore) CountNoisy(ctx context.Context) (int64, error) {
	return 0, nil
}

// Mock history.Store
type mockHistoryStore struct {
	addFn func(ctx context.Context, doc history.Document) error

	indexed []history.Document
}

func (m *mockHistoryStore) Search(ctx context.Context, query string, k int, filters map[string]string) ([]history.Hit, error) {
	return nil, nil
}

func (m *mockHistoryStore) Add(ctx context.Context, doc history.Document) error {
	m.indexed = append(m.indexed, doc)
	if m.addFn != nil {
		return m.addFn(ctx, doc)
	}
	return nil
}

func (m *mockHistoryStore) Exists(ctx context.Context, id string) (bool, error) {
	return false, nil
}

// Mock queue.Producer
type mockProducer struct {
	enqueueFn func(ctx context.Context, msg queue.AlertMessage) error

	enqueued []queue.AlertMessage
}

func (m *mockProducer) Enqueue(ctx context.Context, msg queue.AlertMessage) error {
	m.enqueued = append(m.enqueued, msg)
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, msg)
	}
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
