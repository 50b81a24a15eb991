package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

type obsKey struct {
	seriesID string
	date     time.Time
}

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[obsKey]*domain.Observation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[obsKey]*domain.Observation),
	}
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate
// (series_id, date); nothing is written on failure.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if o == nil || o.SeriesID == "" || o.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[obsKey]struct{}, len(obs))
	for _, o := range obs {
		k := obsKey{o.SeriesID, o.Date}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, o := range obs {
		obsCopy := *o
		s.data[obsKey{o.SeriesID, o.Date}] = &obsCopy
	}
	return nil
}

// GetBySeriesID retrieves all observations for a series, ordered by date ASC.
func (s *ObservationStore) GetBySeriesID(_ context.Context, seriesID string) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for k, o := range s.data {
		if k.seriesID == seriesID {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// GetByDateRange retrieves observations for a series within [start, end] (inclusive).
func (s *ObservationStore) GetByDateRange(_ context.Context, seriesID string, start, end time.Time) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for k, o := range s.data {
		if k.seriesID != seriesID {
			continue
		}
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		obsCopy := *o
		result = append(result, &obsCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ObservationStore = (*ObservationStore)(nil)
