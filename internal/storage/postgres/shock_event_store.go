package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// ShockEventStore implements storage.ShockEventStore using PostgreSQL.
type ShockEventStore struct {
	pool *Pool
}

// NewShockEventStore creates a new ShockEventStore.
func NewShockEventStore(pool *Pool) *ShockEventStore {
	return &ShockEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ShockEventStore = (*ShockEventStore)(nil)

const insertShockEventQuery = `
	INSERT INTO shock_events (series_id, event_date, rate_before, rate_after, delta, class)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// Insert adds a new event. Returns ErrDuplicateKey if (series_id, date) exists.
func (s *ShockEventStore) Insert(ctx context.Context, e *domain.ShockEvent) error {
	if e == nil || e.SeriesID == "" || e.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertShockEventQuery,
		e.SeriesID, e.Date, e.RateBefore, e.RateAfter, e.Delta, string(e.Class),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert shock event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *ShockEventStore) InsertBulk(ctx context.Context, events []*domain.ShockEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.SeriesID == "" || e.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin shock event bulk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		_, err := tx.Exec(ctx, insertShockEventQuery,
			e.SeriesID, e.Date, e.RateBefore, e.RateAfter, e.Delta, string(e.Class),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert shock event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit shock event bulk insert: %w", err)
	}
	return nil
}

// GetBySeriesID retrieves all events for a rate series, ordered by date ASC.
func (s *ShockEventStore) GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.ShockEvent, error) {
	query := `
		SELECT series_id, event_date, rate_before, rate_after, delta, class
		FROM shock_events
		WHERE series_id = $1
		ORDER BY event_date ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("get shock events by series: %w", err)
	}
	defer rows.Close()

	return scanShockEvents(rows)
}

// GetByClass retrieves all events of one class for a rate series, ordered by date ASC.
func (s *ShockEventStore) GetByClass(ctx context.Context, seriesID string, class domain.ShockClass) ([]*domain.ShockEvent, error) {
	query := `
		SELECT series_id, event_date, rate_before, rate_after, delta, class
		FROM shock_events
		WHERE series_id = $1 AND class = $2
		ORDER BY event_date ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesID, string(class))
	if err != nil {
		return nil, fmt.Errorf("get shock events by class: %w", err)
	}
	defer rows.Close()

	return scanShockEvents(rows)
}

// GetByDateRange retrieves events for a rate series within [start, end] (inclusive).
func (s *ShockEventStore) GetByDateRange(ctx context.Context, seriesID string, start, end time.Time) ([]*domain.ShockEvent, error) {
	query := `
		SELECT series_id, event_date, rate_before, rate_after, delta, class
		FROM shock_events
		WHERE series_id = $1 AND event_date >= $2 AND event_date <= $3
		ORDER BY event_date ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get shock events by date range: %w", err)
	}
	defer rows.Close()

	return scanShockEvents(rows)
}

func scanShockEvents(rows pgx.Rows) ([]*domain.ShockEvent, error) {
	var events []*domain.ShockEvent

	for rows.Next() {
		var e domain.ShockEvent
		var date time.Time
		var classStr string

		err := rows.Scan(&e.SeriesID, &date, &e.RateBefore, &e.RateAfter, &e.Delta, &classStr)
		if err != nil {
			return nil, fmt.Errorf("scan shock event row: %w", err)
		}

		e.Date = domain.Date(date.Year(), date.Month(), date.Day())
		e.Class = domain.ShockClass(classStr)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shock event rows: %w", err)
	}

	return events, nil
}
