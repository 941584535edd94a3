package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"noiseguard.app/engine/internal/model"
)

type alertStore struct {
	pool *pgxpool.Pool
}

func newAlertStore(pool *pgxpool.Pool) AlertStore {
	return &alertStore{pool: pool}
}

func (s *alertStore) Create(ctx context.Context, alert *model.Alert) error {
	tags, err := json.Marshal(alert.Tags)
	if err != nil {
		return fmt.Errorf("marshalling alert tags: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO alerts (id, configuration_id, event_id, title, description, severity, status, tags, duration_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		alert.ID, alert.ConfigurationID, alert.EventID, alert.Title, alert.Description,
		alert.Severity, alert.Status, tags, alert.DurationSeconds, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

func (s *alertStore) GetByID(ctx context.Context, id int64) (*model.Alert, error) {
	return s.scanOne(ctx, `
		SELECT id, configuration_id, event_id, title, description, severity, status, tags, duration_seconds, last_label, last_confidence, created_at, updated_at
		FROM alerts WHERE id = $1`, id)
}

func (s *alertStore) GetByEventID(ctx context.Context, configurationID int64, eventID string) (*model.Alert, error) {
	return s.scanOne(ctx, `
		SELECT id, configuration_id, event_id, title, description, severity, status, tags, duration_seconds, last_label, last_confidence, created_at, updated_at
		FROM alerts WHERE configuration_id = $1 AND event_id = $2`, configurationID, eventID)
}

func (s *alertStore) scanOne(ctx context.Context, query string, args ...any) (*model.Alert, error) {
	row := s.pool.QueryRow(ctx, query, args...)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying alert: %w", err)
	}
	return alert, nil
}

func (s *alertStore) UpdateStatus(ctx context.Context, id int64, status model.Status, durationSeconds *float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts
		SET status = $2, duration_seconds = COALESCE($3, duration_seconds), updated_at = now()
		WHERE id = $1`,
		id, status, durationSeconds,
	)
	if err != nil {
		return fmt.Errorf("updating alert status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *alertStore) RecordVerdict(ctx context.Context, id int64, label string, confidence float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts
		SET last_label = $2, last_confidence = $3, updated_at = now()
		WHERE id = $1`,
		id, label, confidence,
	)
	if err != nil {
		return fmt.Errorf("recording verdict: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *alertStore) ListByConfiguration(ctx context.Context, configurationID int64, limit int32) ([]model.Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, configuration_id, event_id, title, description, severity, status, tags, duration_seconds, last_label, last_confidence, created_at, updated_at
		FROM alerts WHERE configuration_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		configurationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

func (s *alertStore) CountOpen(ctx context.Context, configurationID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT id) FROM alerts
		WHERE configuration_id = $1 AND status = $2`,
		configurationID, model.StatusOpen,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting open alerts: %w", err)
	}
	return count, nil
}

func (s *alertStore) CountTotal(ctx context.Context, configurationID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE configuration_id = $1`,
		configurationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting alerts: %w", err)
	}
	return count, nil
}

func (s *alertStore) AvgResolutionSeconds(ctx context.Context, configurationID int64) (float64, error) {
	// COALESCE keeps downstream arithmetic total when nothing has resolved.
	var avg float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(duration_seconds), 0) FROM alerts
		WHERE configuration_id = $1 AND duration_seconds IS NOT NULL`,
		configurationID,
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("averaging resolution duration: %w", err)
	}
	return avg, nil
}

func (s *alertStore) DominantSeverity(ctx context.Context, configurationID int64) (model.Severity, error) {
	// Ties break toward the higher severity.
	var severity model.Severity
	err := s.pool.QueryRow(ctx, `
		SELECT severity FROM alerts
		WHERE configuration_id = $1
		GROUP BY severity
		ORDER BY COUNT(*) DESC,
			CASE severity
				WHEN 'critical' THEN 4
				WHEN 'high' THEN 3
				WHEN 'medium' THEN 2
				ELSE 1
			END DESC
		LIMIT 1`,
		configurationID,
	).Scan(&severity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SeverityLow, nil
		}
		return "", fmt.Errorf("computing dominant severity: %w", err)
	}
	return severity, nil
}

func (s *alertStore) CountOpenSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM alerts
		WHERE status = $1 AND created_at >= $2`,
		model.StatusOpen, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting open alerts since %s: %w", since.Format(time.RFC3339), err)
	}
	return count, nil
}

func (s *alertStore) TopTitles(ctx context.Context, since time.Time, limit int32) ([]model.TitleCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT title, COUNT(*) AS n FROM alerts
		WHERE created_at >= $1
		GROUP BY title
		ORDER BY n DESC, title
		LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing top alert titles: %w", err)
	}
	defer rows.Close()

	var titles []model.TitleCount
	for rows.Next() {
		var tc model.TitleCount
		if err := rows.Scan(&tc.Title, &tc.Count); err != nil {
			return nil, fmt.Errorf("scanning title count: %w", err)
		}
		titles = append(titles, tc)
	}
	return titles, rows.Err()
}

func scanAlert(row pgx.Row) (*model.Alert, error) {
	var alert model.Alert
	var tags []byte
	var lastLabel *string
	err := row.Scan(
		&alert.ID, &alert.ConfigurationID, &alert.EventID, &alert.Title, &alert.Description,
		&alert.Severity, &alert.Status, &tags, &alert.DurationSeconds, &lastLabel, &alert.LastConfidence,
		&alert.CreatedAt, &alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastLabel != nil {
		alert.LastLabel = *lastLabel
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &alert.Tags); err != nil {
			return nil, fmt.Errorf("unmarshalling alert tags: %w", err)
		}
	}
	return &alert, nil
}
