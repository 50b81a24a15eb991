package memory

import (
	"context"
	"sort"
	"sync"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// SeriesMetadataStore is an in-memory implementation of storage.SeriesMetadataStore.
type SeriesMetadataStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SeriesMetadata // keyed by series_id
}

// NewSeriesMetadataStore creates a new in-memory series metadata store.
func NewSeriesMetadataStore() *SeriesMetadataStore {
	return &SeriesMetadataStore{
		data: make(map[string]*domain.SeriesMetadata),
	}
}

// Insert registers a new series. Returns ErrDuplicateKey if series_id exists.
func (s *SeriesMetadataStore) Insert(_ context.Context, m *domain.SeriesMetadata) error {
	if m == nil || m.SeriesID == "" || !m.Frequency.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.SeriesID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	metaCopy := *m
	s.data[m.SeriesID] = &metaCopy
	return nil
}

// GetByID retrieves metadata by series ID. Returns ErrNotFound if not exists.
func (s *SeriesMetadataStore) GetByID(_ context.Context, seriesID string) (*domain.SeriesMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[seriesID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	metaCopy := *m
	return &metaCopy, nil
}

// GetAll retrieves all registered series, ordered by series_id ASC.
func (s *SeriesMetadataStore) GetAll(_ context.Context) ([]*domain.SeriesMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SeriesMetadata, 0, len(s.data))
	for _, m := range s.data {
		metaCopy := *m
		result = append(result, &metaCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SeriesID < result[j].SeriesID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SeriesMetadataStore = (*SeriesMetadataStore)(nil)
