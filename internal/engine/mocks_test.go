package engine_test

import (
	"context"
	"time"

	"noiseguard.app/engine/common/llm"
	"noiseguard.app/engine/internal/history"
	"noiseguard.app/engine/internal/model"
)

type mockAlertStore struct {
	createFunc               func(ctx context.Context, alert *model.Alert) error
	getByIDFunc              func(ctx context.Context, id int64) (*model.Alert, error)
	getByEventIDFunc         func(ctx context.Context, configurationID int64, eventID string) (*model.Alert, error)
	updateStatusFunc         func(ctx context.Context, id int64, status model.Status, durationSeconds *float64) error
	listByConfigurationFunc  func(ctx context.Context, configurationID int64, limit int32) ([]model.Alert, error)
	countOpenFunc            func(ctx context.Context, configurationID int64) (int64, error)
	countTotalFunc           func(ctx context.Context, configurationID int64) (int64, error)
	avgResolutionSecondsFunc func(ctx context.Context, configurationID int64) (float64, error)
	dominantSeverityFunc     func(ctx context.Context, configurationID int64) (model.Severity, error)
}

func (m *mockAlertStore) Create(ctx context.Context, alert *model.Alert) error {
	return m.createFunc(ctx, alert)
}

func (m *mockAlertStore) GetByID(ctx context.Context, id int64) (*model.Alert, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockAlertStore) GetByEventID(ctx context.Context, configurationID int64, eventID string) (*model.Alert, error) {
	return m.getByEventIDFunc(ctx, configurationID, eventID)
}

func (m *mockAlertStore) UpdateStatus(ctx context.Context, id int64, status model.Status, durationSeconds *float64) error {
	return m.updateStatusFunc(ctx, id, status, durationSeconds)
}

func (m *mockAlertStore) RecordVerdict(ctx context.Context, id int64, label string, confidence float64) error {
	return nil
}

func (m *mockAlertStore) CountOpenSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (m *mockAlertStore) TopTitles(ctx context.Context, since time.Time, limit int32) ([]model.TitleCount, error) {
	return nil, nil
}

func (m *mockAlertStore) ListByConfiguration(ctx context.Context, configurationID int64, limit int32) ([]model.Alert, error) {
	return m.listByConfigurationFunc(ctx, configurationID, limit)
}

func (m *mockAlertStore) CountOpen(ctx context.Context, configurationID int64) (int64, error) {
	return m.countOpenFunc(ctx, configurationID)
}

func (m *mockAlertStore) CountTotal(ctx context.Context, configurationID int64) (int64, error) {
	return m.countTotalFunc(ctx, configurationID)
}

func (m *mockAlertStore) AvgResolutionSeconds(ctx context.Context, configurationID int64) (float64, error) {
	return m.avgResolutionSecondsFunc(ctx, configurationID)
}

func (m *mockAlertStore) DominantSeverity(ctx context.Context, configurationID int64) (model.Severity, error) {
	return m.dominantSeverityFunc(ctx, configurationID)
}

type mockConfigurationStore struct {
	createFunc          func(ctx context.Context, configuration *model.AlertConfiguration) error
	getByIDFunc         func(ctx context.Context, id int64) (*model.AlertConfiguration, error)
	getByProviderIDFunc func(ctx context.Context, provider, providerID string) (*model.AlertConfiguration, error)
	setNoisyFunc        func(ctx context.Context, id int64, isNoisy bool, reason string) (*model.AlertConfiguration, error)
}

func (m *mockConfigurationStore) Create(ctx context.Context, configuration *model.AlertConfiguration) error {
	return m.createFunc(ctx, configuration)
}

func (m *mockConfigurationStore) GetByID(ctx context.Context, id int64) (*model.AlertConfiguration, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockConfigurationStore) GetByProviderID(ctx context.Context, provider, providerID string) (*model.AlertConfiguration, error) {
	return m.getByProviderIDFunc(ctx, provider, providerID)
}

func (m *mockConfigurationStore) SetNoisy(ctx context.Context, id int64, isNoisy bool, reason string) (*model.AlertConfiguration, error) {
	return m.setNoisyFunc(ctx, id, isNoisy, reason)
}

func (m *mockConfigurationStore) CountNoisy(ctx context.Context) (int64, error) {
	return 0, nil
}

type mockHistoryStore struct {
	searchFunc func(ctx context.Context, query string, k int, filter map[string]string) ([]history.Hit, error)
	addFunc    func(ctx context.Context, doc history.Document) error
	existsFunc func(ctx context.Context, id string) (bool, error)
}

func (m *mockHistoryStore) Search(ctx context.Context, query string, k int, filter map[string]string) ([]history.Hit, error) {
	return m.searchFunc(ctx, query, k, filter)
}

func (m *mockHistoryStore) Add(ctx context.Context, doc history.Document) error {
	return m.addFunc(ctx, doc)
}

func (m *mockHistoryStore) Exists(ctx context.Context, id string) (bool, error) {
	return m.existsFunc(ctx, id)
}

// emptyHistory is a history store that always finds nothing.
func emptyHistory() *mockHistoryStore {
	return &mockHistoryStore{
		searchFunc: func(ctx context.Context, query string, k int, filter map[string]string) ([]history.Hit, error) {
			return nil, nil
		},
	}
}

type mockLLMClient struct {
	chatFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)
	calls    []llm.Request
}

func (m *mockLLMClient) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.calls = append(m.calls, req)
	return m.chatFunc(ctx, req)
}

func (m *mockLLMClient) Model() string { return "mock-model" }
