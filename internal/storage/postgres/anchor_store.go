package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// AnchorStore implements storage.AnchorStore using PostgreSQL.
type AnchorStore struct {
	pool *Pool
}

// NewAnchorStore creates a new AnchorStore.
func NewAnchorStore(pool *Pool) *AnchorStore {
	return &AnchorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnchorStore = (*AnchorStore)(nil)

// Insert adds a new anchor. Returns ErrDuplicateKey if (calendar, date) exists.
func (s *AnchorStore) Insert(ctx context.Context, a *domain.AnchorDate) error {
	if a == nil || a.Calendar == "" || a.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO anchor_dates (calendar, anchor_date, note)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, a.Calendar, a.Date, a.Note)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert anchor: %w", err)
	}
	return nil
}

// InsertBulk adds multiple anchors atomically. Fails entire batch on any duplicate.
func (s *AnchorStore) InsertBulk(ctx context.Context, anchors []*domain.AnchorDate) error {
	if len(anchors) == 0 {
		return nil
	}
	for _, a := range anchors {
		if a == nil || a.Calendar == "" || a.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin anchor bulk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO anchor_dates (calendar, anchor_date, note)
		VALUES ($1, $2, $3)
	`
	for _, a := range anchors {
		if _, err := tx.Exec(ctx, query, a.Calendar, a.Date, a.Note); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert anchor in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit anchor bulk insert: %w", err)
	}
	return nil
}

// GetByCalendar retrieves all anchors on a calendar, ordered by date ASC.
func (s *AnchorStore) GetByCalendar(ctx context.Context, calendar string) ([]*domain.AnchorDate, error) {
	query := `
		SELECT calendar, anchor_date, note
		FROM anchor_dates
		WHERE calendar = $1
		ORDER BY anchor_date ASC
	`

	rows, err := s.pool.Query(ctx, query, calendar)
	if err != nil {
		return nil, fmt.Errorf("get anchors by calendar: %w", err)
	}
	defer rows.Close()

	return scanAnchors(rows)
}

// GetByDateRange retrieves anchors on a calendar within [start, end] (inclusive).
func (s *AnchorStore) GetByDateRange(ctx context.Context, calendar string, start, end time.Time) ([]*domain.AnchorDate, error) {
	query := `
		SELECT calendar, anchor_date, note
		FROM anchor_dates
		WHERE calendar = $1 AND anchor_date >= $2 AND anchor_date <= $3
		ORDER BY anchor_date ASC
	`

	rows, err := s.pool.Query(ctx, query, calendar, start, end)
	if err != nil {
		return nil, fmt.Errorf("get anchors by date range: %w", err)
	}
	defer rows.Close()

	return scanAnchors(rows)
}

func scanAnchors(rows pgx.Rows) ([]*domain.AnchorDate, error) {
	var anchors []*domain.AnchorDate

	for rows.Next() {
		var a domain.AnchorDate
		var date time.Time

		if err := rows.Scan(&a.Calendar, &date, &a.Note); err != nil {
			return nil, fmt.Errorf("scan anchor row: %w", err)
		}

		// DATE columns come back at UTC midnight either way; normalize anyway.
		a.Date = domain.Date(date.Year(), date.Month(), date.Day())
		anchors = append(anchors, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anchor rows: %w", err)
	}

	return anchors, nil
}
