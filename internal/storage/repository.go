package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createAlertsTableSQL = `CREATE TABLE IF NOT EXISTS surge_alerts (
        id            BIGSERIAL PRIMARY KEY,
        symbol        TEXT NOT NULL,
        price         NUMERIC NOT NULL,
        ratio         NUMERIC NOT NULL,
        threshold_pct NUMERIC NOT NULL,
        volume        NUMERIC NOT NULL,
        tier          TEXT NOT NULL,
        emitted_at    TIMESTAMPTZ NOT NULL,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS surge_alerts_emitted_at_idx ON surge_alerts (emitted_at);`

	insertAlertSQL = `INSERT INTO surge_alerts (
        symbol,
        price,
        ratio,
        threshold_pct,
        volume,
        tier,
        emitted_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        symbol,
        price,
        ratio,
        threshold_pct,
        volume,
        tier,
        emitted_at,
        created_at
    FROM surge_alerts
    ORDER BY emitted_at DESC
    LIMIT $1;`

	listAlertsBetweenSQL = `SELECT
        id,
        symbol,
        price,
        ratio,
        threshold_pct,
        volume,
        tier,
        emitted_at,
        created_at
    FROM surge_alerts
    WHERE emitted_at >= $1
      AND emitted_at < $2
    ORDER BY emitted_at;`

	deleteAlertsBeforeSQL = `DELETE FROM surge_alerts WHERE emitted_at < $1;`

	countAlertsSQL = `SELECT COUNT(*) FROM surge_alerts;`
)

// AlertStore defines operations for the alert audit trail.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error)
	CountAlerts(ctx context.Context) (int64, error)
}

// Store provides Postgres-backed alert auditing.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the audit table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, createAlertsTableSQL); execErr != nil {
		return fmt.Errorf("ensure alerts schema: %w", execErr)
	}
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Symbol,
		alert.Price.String(),
		alert.Ratio.String(),
		alert.ThresholdPct.String(),
		alert.Volume.String(),
		alert.Tier,
		alert.EmittedAt,
	)

	rec := alert
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts ordered by descending emission time.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows, limit)
}

// ListAlertsBetween lists alerts within a time window in chronological order.
func (s *Store) ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts between: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows, 0)
}

// DeleteAlertsBefore prunes historical alerts and reports how many went away.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete alerts before: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// CountAlerts counts audited alerts.
func (s *Store) CountAlerts(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAlertsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count alerts: %w", scanErr)
	}
	return count, nil
}

func collectAlerts(rows pgx.Rows, sizeHint int) ([]AlertRecord, error) {
	alerts := make([]AlertRecord, 0, sizeHint)
	for rows.Next() {
		rec, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanAlert(rows pgx.Rows) (AlertRecord, error) {
	var (
		rec          AlertRecord
		priceStr     string
		ratioStr     string
		thresholdStr string
		volumeStr    string
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.Symbol,
		&priceStr,
		&ratioStr,
		&thresholdStr,
		&volumeStr,
		&rec.Tier,
		&rec.EmittedAt,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	if rec.Price, convErr = decimal.NewFromString(priceStr); convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse price: %w", convErr)
	}
	if rec.Ratio, convErr = decimal.NewFromString(ratioStr); convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse ratio: %w", convErr)
	}
	if rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr); convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse threshold: %w", convErr)
	}
	if rec.Volume, convErr = decimal.NewFromString(volumeStr); convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse volume: %w", convErr)
	}

	return rec, nil
}

var _ AlertStore = (*Store)(nil)
