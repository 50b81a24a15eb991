package clickhouse

import (
	"context"
	"fmt"
	"time"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
// MergeTree does not enforce uniqueness at insert time, so duplicates are
// rejected by an explicit existence check before the batch is sent.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk adds multiple observations. Fails entire batch on duplicate
// (series_id, date).
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if o == nil || o.SeriesID == "" || o.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	// Check for intra-batch duplicates
	type key struct {
		seriesID string
		date     time.Time
	}
	seen := make(map[key]struct{}, len(obs))
	for _, o := range obs {
		k := key{o.SeriesID, o.Date}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, o := range obs {
		exists, err := s.exists(ctx, o.SeriesID, o.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO series_observations (series_id, obs_date, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		if err := batch.Append(o.SeriesID, o.Date, o.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySeriesID retrieves all observations for a series, ordered by date ASC.
func (s *ObservationStore) GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.Observation, error) {
	query := `
		SELECT series_id, obs_date, value
		FROM series_observations
		WHERE series_id = ?
		ORDER BY obs_date ASC
	`

	rows, err := s.conn.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query by series id: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByDateRange retrieves observations for a series within [start, end] (inclusive).
func (s *ObservationStore) GetByDateRange(ctx context.Context, seriesID string, start, end time.Time) ([]*domain.Observation, error) {
	query := `
		SELECT series_id, obs_date, value
		FROM series_observations
		WHERE series_id = ? AND obs_date >= ? AND obs_date <= ?
		ORDER BY obs_date ASC
	`

	rows, err := s.conn.Query(ctx, query, seriesID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// exists checks if an observation with the given key exists.
func (s *ObservationStore) exists(ctx context.Context, seriesID string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM series_observations
		WHERE series_id = ? AND obs_date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, seriesID, date).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.Observation, error) {
	var obs []*domain.Observation

	for rows.Next() {
		var o domain.Observation
		var date time.Time

		if err := rows.Scan(&o.SeriesID, &date, &o.Value); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		// Date columns come back in the server zone; pin to UTC midnight.
		o.Date = domain.Date(date.Year(), date.Month(), date.Day())
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return obs, nil
}
