package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

type eventKey struct {
	seriesID string
	date     time.Time
}

// ShockEventStore is an in-memory implementation of storage.ShockEventStore.
type ShockEventStore struct {
	mu   sync.RWMutex
	data map[eventKey]*domain.ShockEvent
}

// NewShockEventStore creates a new in-memory shock event store.
func NewShockEventStore() *ShockEventStore {
	return &ShockEventStore{
		data: make(map[eventKey]*domain.ShockEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if (series_id, date) exists.
func (s *ShockEventStore) Insert(_ context.Context, e *domain.ShockEvent) error {
	if e == nil || e.SeriesID == "" || e.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := eventKey{e.SeriesID, e.Date}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.data[k] = &eventCopy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *ShockEventStore) InsertBulk(_ context.Context, events []*domain.ShockEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.SeriesID == "" || e.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[eventKey]struct{}, len(events))
	for _, e := range events {
		k := eventKey{e.SeriesID, e.Date}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.data[eventKey{e.SeriesID, e.Date}] = &eventCopy
	}
	return nil
}

// GetBySeriesID retrieves all events for a rate series, ordered by date ASC.
func (s *ShockEventStore) GetBySeriesID(_ context.Context, seriesID string) ([]*domain.ShockEvent, error) {
	return s.filter(func(e *domain.ShockEvent) bool {
		return e.SeriesID == seriesID
	}), nil
}

// GetByClass retrieves all events of one class for a rate series, ordered by date ASC.
func (s *ShockEventStore) GetByClass(_ context.Context, seriesID string, class domain.ShockClass) ([]*domain.ShockEvent, error) {
	return s.filter(func(e *domain.ShockEvent) bool {
		return e.SeriesID == seriesID && e.Class == class
	}), nil
}

// GetByDateRange retrieves events for a rate series within [start, end] (inclusive).
func (s *ShockEventStore) GetByDateRange(_ context.Context, seriesID string, start, end time.Time) ([]*domain.ShockEvent, error) {
	return s.filter(func(e *domain.ShockEvent) bool {
		return e.SeriesID == seriesID && !e.Date.Before(start) && !e.Date.After(end)
	}), nil
}

func (s *ShockEventStore) filter(keep func(*domain.ShockEvent) bool) []*domain.ShockEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ShockEvent
	for _, e := range s.data {
		if keep(e) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result
}

// Verify interface compliance at compile time.
var _ storage.ShockEventStore = (*ShockEventStore)(nil)
