package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// Result contains statistics from one ingestion run.
type Result struct {
	SeriesRegistered     int
	ObservationsIngested int
	AnchorsIngested      int
}

// Loader writes parsed CSV content into the stores. Duplicate series
// registration is tolerated (re-ingesting a known series is routine);
// duplicate observations or anchors fail the batch, matching store semantics.
type Loader struct {
	metadata     storage.SeriesMetadataStore
	observations storage.ObservationStore
	anchors      storage.AnchorStore
	log          zerolog.Logger
}

// NewLoader wires the loader to its stores.
func NewLoader(
	metadata storage.SeriesMetadataStore,
	observations storage.ObservationStore,
	anchors storage.AnchorStore,
	log zerolog.Logger,
) *Loader {
	return &Loader{
		metadata:     metadata,
		observations: observations,
		anchors:      anchors,
		log:          log,
	}
}

// LoadSeries registers the series and ingests its observation CSV.
func (l *Loader) LoadSeries(ctx context.Context, r io.Reader, meta *domain.SeriesMetadata) (*Result, error) {
	result := &Result{}

	err := l.metadata.Insert(ctx, meta)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		l.log.Debug().Str("series_id", meta.SeriesID).Msg("series already registered")
	case err != nil:
		return nil, fmt.Errorf("register series %s: %w", meta.SeriesID, err)
	default:
		result.SeriesRegistered = 1
	}

	obs, err := ParseObservations(r, meta.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("parse observations for %s: %w", meta.SeriesID, err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations for %s", meta.SeriesID)
	}
	if err := l.observations.InsertBulk(ctx, obs); err != nil {
		return nil, fmt.Errorf("insert observations for %s: %w", meta.SeriesID, err)
	}
	result.ObservationsIngested = len(obs)

	l.log.Info().
		Str("series_id", meta.SeriesID).
		Str("frequency", string(meta.Frequency)).
		Int("observations", len(obs)).
		Msg("series ingested")
	return result, nil
}

// LoadAnchors ingests an anchor calendar CSV.
func (l *Loader) LoadAnchors(ctx context.Context, r io.Reader, calendar string) (*Result, error) {
	anchors, err := ParseAnchors(r, calendar)
	if err != nil {
		return nil, fmt.Errorf("parse anchors for %s: %w", calendar, err)
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("no anchors for %s", calendar)
	}
	if err := l.anchors.InsertBulk(ctx, anchors); err != nil {
		return nil, fmt.Errorf("insert anchors for %s: %w", calendar, err)
	}

	l.log.Info().
		Str("calendar", calendar).
		Int("anchors", len(anchors)).
		Msg("anchor calendar ingested")
	return &Result{AnchorsIngested: len(anchors)}, nil
}
