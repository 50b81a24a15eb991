package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// SeriesMetadataStore implements storage.SeriesMetadataStore using PostgreSQL.
type SeriesMetadataStore struct {
	pool *Pool
}

// NewSeriesMetadataStore creates a new SeriesMetadataStore.
func NewSeriesMetadataStore(pool *Pool) *SeriesMetadataStore {
	return &SeriesMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeriesMetadataStore = (*SeriesMetadataStore)(nil)

// Insert registers a new series. Returns ErrDuplicateKey if series_id exists.
func (s *SeriesMetadataStore) Insert(ctx context.Context, m *domain.SeriesMetadata) error {
	if m == nil || m.SeriesID == "" || !m.Frequency.Valid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO series_metadata (series_id, name, frequency, units, source)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		m.SeriesID,
		m.Name,
		string(m.Frequency),
		m.Units,
		m.Source,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert series metadata: %w", err)
	}
	return nil
}

// GetByID retrieves metadata by series ID. Returns ErrNotFound if not exists.
func (s *SeriesMetadataStore) GetByID(ctx context.Context, seriesID string) (*domain.SeriesMetadata, error) {
	query := `
		SELECT series_id, name, frequency, units, source
		FROM series_metadata
		WHERE series_id = $1
	`

	row := s.pool.QueryRow(ctx, query, seriesID)
	m, err := scanSeriesMetadata(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get series metadata by id: %w", err)
	}
	return m, nil
}

// GetAll retrieves all registered series, ordered by series_id ASC.
func (s *SeriesMetadataStore) GetAll(ctx context.Context) ([]*domain.SeriesMetadata, error) {
	query := `
		SELECT series_id, name, frequency, units, source
		FROM series_metadata
		ORDER BY series_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all series metadata: %w", err)
	}
	defer rows.Close()

	var result []*domain.SeriesMetadata
	for rows.Next() {
		m, err := scanSeriesMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan series metadata row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series metadata rows: %w", err)
	}
	return result, nil
}

func scanSeriesMetadata(row pgx.Row) (*domain.SeriesMetadata, error) {
	var m domain.SeriesMetadata
	var freqStr string

	err := row.Scan(&m.SeriesID, &m.Name, &freqStr, &m.Units, &m.Source)
	if err != nil {
		return nil, err
	}

	m.Frequency = domain.Frequency(freqStr)
	return &m, nil
}
