package memory

import (
	"context"
	"sort"
	"sync"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// FittedModelStore is an in-memory implementation of storage.FittedModelStore.
type FittedModelStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FittedModel // keyed by model_id
}

// NewFittedModelStore creates a new in-memory fitted model store.
func NewFittedModelStore() *FittedModelStore {
	return &FittedModelStore{
		data: make(map[string]*domain.FittedModel),
	}
}

// Insert adds a new model. Returns ErrDuplicateKey if model_id exists.
func (s *FittedModelStore) Insert(_ context.Context, m *domain.FittedModel) error {
	if m == nil || m.ModelID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.ModelID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[m.ModelID] = copyModel(m)
	return nil
}

// GetByID retrieves a model by its ID. Returns ErrNotFound if not exists.
func (s *FittedModelStore) GetByID(_ context.Context, modelID string) (*domain.FittedModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[modelID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyModel(m), nil
}

// GetAll retrieves all models, ordered by created_at ASC.
func (s *FittedModelStore) GetAll(_ context.Context) ([]*domain.FittedModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FittedModel, 0, len(s.data))
	for _, m := range s.data {
		result = append(result, copyModel(m))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ModelID < result[j].ModelID
	})

	return result, nil
}

// copyModel deep-copies a model. The maps inside must not be shared with
// callers or the append-only guarantee breaks.
func copyModel(m *domain.FittedModel) *domain.FittedModel {
	modelCopy := *m
	modelCopy.Spec.ShockLags = append([]int(nil), m.Spec.ShockLags...)
	modelCopy.Spec.Controls = append([]string(nil), m.Spec.Controls...)

	if m.Coefficients != nil {
		modelCopy.Coefficients = make(map[string]domain.Coefficient, len(m.Coefficients))
		for k, v := range m.Coefficients {
			modelCopy.Coefficients[k] = v
		}
	}
	if m.FixedEffects != nil {
		modelCopy.FixedEffects = make(map[string]float64, len(m.FixedEffects))
		for k, v := range m.FixedEffects {
			modelCopy.FixedEffects[k] = v
		}
	}
	if m.ControlBaseline != nil {
		modelCopy.ControlBaseline = make(map[string]float64, len(m.ControlBaseline))
		for k, v := range m.ControlBaseline {
			modelCopy.ControlBaseline[k] = v
		}
	}
	return &modelCopy
}

// Verify interface compliance at compile time.
var _ storage.FittedModelStore = (*FittedModelStore)(nil)
