package storage

import (
	"context"
	"time"

	"policy-shock-lab/internal/domain"
)

// SeriesMetadataStore provides access to series_metadata storage.
type SeriesMetadataStore interface {
	// Insert registers a new series. Returns ErrDuplicateKey if series_id exists.
	Insert(ctx context.Context, m *domain.SeriesMetadata) error

	// GetByID retrieves metadata by series ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, seriesID string) (*domain.SeriesMetadata, error)

	// GetAll retrieves all registered series, ordered by series_id ASC.
	GetAll(ctx context.Context) ([]*domain.SeriesMetadata, error)
}

// ObservationStore provides access to series_observations storage.
type ObservationStore interface {
	// InsertBulk adds multiple observations. Fails entire batch on duplicate
	// (series_id, date).
	InsertBulk(ctx context.Context, obs []*domain.Observation) error

	// GetBySeriesID retrieves all observations for a series, ordered by date ASC.
	GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.Observation, error)

	// GetByDateRange retrieves observations for a series within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, seriesID string, start, end time.Time) ([]*domain.Observation, error)
}

// AnchorStore provides access to anchor_dates storage.
type AnchorStore interface {
	// Insert adds a new anchor. Returns ErrDuplicateKey if (calendar, date) exists.
	Insert(ctx context.Context, a *domain.AnchorDate) error

	// InsertBulk adds multiple anchors atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, anchors []*domain.AnchorDate) error

	// GetByCalendar retrieves all anchors on a calendar, ordered by date ASC.
	GetByCalendar(ctx context.Context, calendar string) ([]*domain.AnchorDate, error)

	// GetByDateRange retrieves anchors on a calendar within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, calendar string, start, end time.Time) ([]*domain.AnchorDate, error)
}

// ShockEventStore provides access to shock_events storage.
type ShockEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if (series_id, date) exists.
	Insert(ctx context.Context, e *domain.ShockEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.ShockEvent) error

	// GetBySeriesID retrieves all events for a rate series, ordered by date ASC.
	GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.ShockEvent, error)

	// GetByClass retrieves all events of one class for a rate series, ordered by date ASC.
	GetByClass(ctx context.Context, seriesID string, class domain.ShockClass) ([]*domain.ShockEvent, error)

	// GetByDateRange retrieves events for a rate series within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, seriesID string, start, end time.Time) ([]*domain.ShockEvent, error)
}

// FittedModelStore provides access to fitted_models storage.
type FittedModelStore interface {
	// Insert adds a new model. Returns ErrDuplicateKey if model_id exists.
	Insert(ctx context.Context, m *domain.FittedModel) error

	// GetByID retrieves a model by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, modelID string) (*domain.FittedModel, error)

	// GetAll retrieves all models, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.FittedModel, error)
}
