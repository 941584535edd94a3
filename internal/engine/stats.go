package engine

import (
	"context"
	"errors"
	"fmt"

	"noiseguard.app/engine/internal/model"
	"noiseguard.app/engine/internal/store"
)

// Aggregator computes point-in-time statistics over one configuration's
// alert history. Read-only; every call reflects the latest committed state.
type Aggregator struct {
	alerts         store.AlertStore
	configurations store.AlertConfigurationStore
}

func NewAggregator(alerts store.AlertStore, configurations store.AlertConfigurationStore) *Aggregator {
	return &Aggregator{alerts: alerts, configurations: configurations}
}

func (a *Aggregator) GetConfigurationStats(ctx context.Context, configurationID int64) (*model.ConfigurationStats, error) {
	configuration, err := a.configurations.GetByID(ctx, configurationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindConfigurationNotFound, "configuration %d not found", configurationID)
		}
		return nil, fmt.Errorf("fetching configuration %d: %w", configurationID, err)
	}

	openCount, err := a.alerts.CountOpen(ctx, configurationID)
	if err != nil {
		return nil, fmt.Errorf("counting open alerts for configuration %d: %w", configurationID, err)
	}

	totalCount, err := a.alerts.CountTotal(ctx, configurationID)
	if err != nil {
		return nil, fmt.Errorf("counting alerts for configuration %d: %w", configurationID, err)
	}

	avgResolution, err := a.alerts.AvgResolutionSeconds(ctx, configurationID)
	if err != nil {
		return nil, fmt.Errorf("averaging resolution for configuration %d: %w", configurationID, err)
	}

	dominant, err := a.alerts.DominantSeverity(ctx, configurationID)
	if err != nil {
		return nil, fmt.Errorf("computing dominant severity for configuration %d: %w", configurationID, err)
	}

	return &model.ConfigurationStats{
		ConfigurationID:    configurationID,
		OpenAlertCount:     openCount,
		TotalAlertCount:    totalCount,
		AvgResolutionSecs:  avgResolution,
		DominantSeverity:   dominant,
		IsNoisy:            configuration.IsNoisy,
		NoisyReason:        configuration.NoisyReason,
		ConfigurationName:  configuration.Name,
		ConfigurationQuery: configuration.Query,
	}, nil
}
