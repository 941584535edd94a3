package store

import (
	"context"
	"errors"
	"time"

	"noiseguard.app/engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
// Callers should check with errors.Is.
var ErrNotFound = errors.New("record not found")

// AlertStore persists normalized alerts and serves the aggregate reads the
// configuration aggregator needs.
type AlertStore interface {
	Create(ctx context.Context, alert *model.Alert) error
	GetByID(ctx context.Context, id int64) (*model.Alert, error)
	GetByEventID(ctx context.Context, configurationID int64, eventID string) (*model.Alert, error)
	UpdateStatus(ctx context.Context, id int64, status model.Status, durationSeconds *float64) error
	RecordVerdict(ctx context.Context, id int64, label string, confidence float64) error
	ListByConfiguration(ctx context.Context, configurationID int64, limit int32) ([]model.Alert, error)

	CountOpen(ctx context.Context, configurationID int64) (int64, error)
	CountTotal(ctx context.Context, configurationID int64) (int64, error)
	AvgResolutionSeconds(ctx context.Context, configurationID int64) (float64, error)
	DominantSeverity(ctx context.Context, configurationID int64) (model.Severity, error)

	CountOpenSince(ctx context.Context, since time.Time) (int64, error)
	TopTitles(ctx context.Context, since time.Time, limit int32) ([]model.TitleCount, error)
}

// AlertConfigurationStore persists monitor configurations. SetNoisy is the
// single engine-owned mutation and must write both fields atomically.
type AlertConfigurationStore interface {
	Create(ctx context.Context, configuration *model.AlertConfiguration) error
	GetByID(ctx context.Context, id int64) (*model.AlertConfiguration, error)
	GetByProviderID(ctx context.Context, provider, providerID string) (*model.AlertConfiguration, error)
	SetNoisy(ctx context.Context, id int64, isNoisy bool, reason string) (*model.AlertConfiguration, error)
	CountNoisy(ctx context.Context) (int64, error)
}
