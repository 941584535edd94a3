package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"noiseguard.app/engine/internal/model"
)

type alertConfigurationStore struct {
	pool *pgxpool.Pool
}

func newAlertConfigurationStore(pool *pgxpool.Pool) AlertConfigurationStore {
	return &alertConfigurationStore{pool: pool}
}

func (s *alertConfigurationStore) Create(ctx context.Context, configuration *model.AlertConfiguration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_configurations (id, provider, provider_id, name, query, is_noisy, noisy_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (provider, provider_id) DO NOTHING`,
		configuration.ID, configuration.Provider, configuration.ProviderID, configuration.Name,
		configuration.Query, configuration.IsNoisy, configuration.NoisyReason, configuration.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting alert configuration: %w", err)
	}
	return nil
}

func (s *alertConfigurationStore) GetByID(ctx context.Context, id int64) (*model.AlertConfiguration, error) {
	return s.scanOne(ctx, `
		SELECT id, provider, provider_id, name, query, is_noisy, noisy_reason, created_at, updated_at
		FROM alert_configurations WHERE id = $1`, id)
}

func (s *alertConfigurationStore) GetByProviderID(ctx context.Context, provider, providerID string) (*model.AlertConfiguration, error) {
	return s.scanOne(ctx, `
		SELECT id, provider, provider_id, name, query, is_noisy, noisy_reason, created_at, updated_at
		FROM alert_configurations WHERE provider = $1 AND provider_id = $2`, provider, providerID)
}

// SetNoisy writes both noisy fields in one statement so a reader never
// observes a half-applied feedback update.
func (s *alertConfigurationStore) SetNoisy(ctx context.Context, id int64, isNoisy bool, reason string) (*model.AlertConfiguration, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE alert_configurations
		SET is_noisy = $2, noisy_reason = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, provider, provider_id, name, query, is_noisy, noisy_reason, created_at, updated_at`,
		id, isNoisy, reason,
	)
	configuration, err := scanConfiguration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating noisy label: %w", err)
	}
	return configuration, nil
}

func (s *alertConfigurationStore) CountNoisy(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alert_configurations WHERE is_noisy`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting noisy configurations: %w", err)
	}
	return count, nil
}

func (s *alertConfigurationStore) scanOne(ctx context.Context, query string, args ...any) (*model.AlertConfiguration, error) {
	row := s.pool.QueryRow(ctx, query, args...)
	configuration, err := scanConfiguration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying alert configuration: %w", err)
	}
	return configuration, nil
}

func scanConfiguration(row pgx.Row) (*model.AlertConfiguration, error) {
	var configuration model.AlertConfiguration
	err := row.Scan(
		&configuration.ID, &configuration.Provider, &configuration.ProviderID, &configuration.Name,
		&configuration.Query, &configuration.IsNoisy, &configuration.NoisyReason,
		&configuration.CreatedAt, &configuration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &configuration, nil
}
