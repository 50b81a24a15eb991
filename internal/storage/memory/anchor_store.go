package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

type anchorKey struct {
	calendar string
	date     time.Time
}

// AnchorStore is an in-memory implementation of storage.AnchorStore.
type AnchorStore struct {
	mu   sync.RWMutex
	data map[anchorKey]*domain.AnchorDate
}

// NewAnchorStore creates a new in-memory anchor store.
func NewAnchorStore() *AnchorStore {
	return &AnchorStore{
		data: make(map[anchorKey]*domain.AnchorDate),
	}
}

// Insert adds a new anchor. Returns ErrDuplicateKey if (calendar, date) exists.
func (s *AnchorStore) Insert(_ context.Context, a *domain.AnchorDate) error {
	if a == nil || a.Calendar == "" || a.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(a)
}

// InsertBulk adds multiple anchors atomically. Fails entire batch on any duplicate.
func (s *AnchorStore) InsertBulk(_ context.Context, anchors []*domain.AnchorDate) error {
	if len(anchors) == 0 {
		return nil
	}
	for _, a := range anchors {
		if a == nil || a.Calendar == "" || a.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[anchorKey]struct{}, len(anchors))
	for _, a := range anchors {
		k := anchorKey{a.Calendar, a.Date}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, a := range anchors {
		if err := s.insertLocked(a); err != nil {
			return err
		}
	}
	return nil
}

func (s *AnchorStore) insertLocked(a *domain.AnchorDate) error {
	k := anchorKey{a.Calendar, a.Date}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}
	anchorCopy := *a
	s.data[k] = &anchorCopy
	return nil
}

// GetByCalendar retrieves all anchors on a calendar, ordered by date ASC.
func (s *AnchorStore) GetByCalendar(_ context.Context, calendar string) ([]*domain.AnchorDate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnchorDate
	for k, a := range s.data {
		if k.calendar == calendar {
			anchorCopy := *a
			result = append(result, &anchorCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// GetByDateRange retrieves anchors on a calendar within [start, end] (inclusive).
func (s *AnchorStore) GetByDateRange(_ context.Context, calendar string, start, end time.Time) ([]*domain.AnchorDate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnchorDate
	for k, a := range s.data {
		if k.calendar != calendar {
			continue
		}
		if a.Date.Before(start) || a.Date.After(end) {
			continue
		}
		anchorCopy := *a
		result = append(result, &anchorCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.AnchorStore = (*AnchorStore)(nil)
