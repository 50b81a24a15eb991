package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"policy-shock-lab/internal/align"
	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/regress"
	"policy-shock-lab/internal/shock"
	"policy-shock-lab/internal/storage"
)

// ErrInsufficientData aborts a run before alignment when the configured
// sufficiency checks fail.
var ErrInsufficientData = errors.New("pipeline: data sufficiency checks failed")

// Config controls one batch run: which series to align, where the anchors
// come from, and what to estimate.
type Config struct {
	// Series lists the series IDs to load and align. Native frequency comes
	// from the metadata store.
	Series []string

	Target        domain.Frequency
	Fill          align.FillPolicy
	MaxGap        int
	AllowUpsample bool

	// AnchorCalendar names the announcement calendar (e.g. "FOMC").
	AnchorCalendar string
	RateSeries     string
	// Threshold in rate units. Zero or negative derives it from the rate
	// series' first differences.
	Threshold float64

	ModelType     string
	OutcomeSeries string
	ShockLags     []int
	Controls      []string
	// EntityOutcomes maps entity ID to its aligned outcome column. Required
	// for PANEL_FE, ignored for OLS.
	EntityOutcomes map[string]string

	// Event window extent in target periods around each shock.
	WindowBefore int
	WindowAfter  int
}

func (c *Config) validate() error {
	if len(c.Series) == 0 {
		return fmt.Errorf("pipeline: no input series configured")
	}
	if !c.Target.Valid() {
		return fmt.Errorf("pipeline: invalid target frequency %q", c.Target)
	}
	if c.AnchorCalendar == "" {
		return fmt.Errorf("pipeline: anchor calendar not set")
	}
	if c.RateSeries == "" {
		return fmt.Errorf("pipeline: rate series not set")
	}
	if c.OutcomeSeries == "" {
		return fmt.Errorf("pipeline: outcome series not set")
	}
	switch c.ModelType {
	case domain.ModelTypeOLS:
	case domain.ModelTypePanelFE:
		if len(c.EntityOutcomes) == 0 {
			return fmt.Errorf("pipeline: %s requires entity outcome mapping", domain.ModelTypePanelFE)
		}
	default:
		return fmt.Errorf("pipeline: unknown model type %q", c.ModelType)
	}
	if c.WindowBefore < 0 || c.WindowAfter < 0 {
		return fmt.Errorf("pipeline: event window extents must be non-negative")
	}
	return nil
}

// RunResult is everything one batch run produced, for reporting and callers.
type RunResult struct {
	Table     *domain.AlignedTable
	Events    []domain.ShockEvent
	Skipped   []shock.SkippedAnchor
	Threshold float64
	Model     *domain.FittedModel
	Windows   []shock.EventWindow
}

// Runner executes the batch stages in order: load, align, classify, estimate,
// persist. Each run is independent; re-running against already persisted
// results is a no-op for storage (duplicates are tolerated, not re-written).
type Runner struct {
	metadata     storage.SeriesMetadataStore
	observations storage.ObservationStore
	anchors      storage.AnchorStore
	events       storage.ShockEventStore
	models       storage.FittedModelStore
	sufficiency  *SufficiencyChecker
	cfg          Config
	log          zerolog.Logger
	clock        func() time.Time
}

// NewRunner validates the configuration and wires the stores.
func NewRunner(
	metadata storage.SeriesMetadataStore,
	observations storage.ObservationStore,
	anchors storage.AnchorStore,
	events storage.ShockEventStore,
	models storage.FittedModelStore,
	cfg Config,
	log zerolog.Logger,
) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.WindowBefore == 0 && cfg.WindowAfter == 0 {
		cfg.WindowBefore, cfg.WindowAfter = 3, 6
	}
	return &Runner{
		metadata:     metadata,
		observations: observations,
		anchors:      anchors,
		events:       events,
		models:       models,
		cfg:          cfg,
		log:          log,
		clock:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock sets a custom clock for deterministic model timestamps.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// WithSufficiencyChecker makes Run verify data coverage before aligning.
// A failed check aborts the run with ErrInsufficientData.
func (r *Runner) WithSufficiencyChecker(c *SufficiencyChecker) *Runner {
	r.sufficiency = c
	return r
}

// Run executes the full batch. Shock events and the fitted model are
// persisted; the aligned table, diagnostics and event windows are returned
// in-memory for reporting.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if r.sufficiency != nil {
		suff, err := r.sufficiency.Check(ctx)
		if err != nil {
			return nil, fmt.Errorf("sufficiency check: %w", err)
		}
		if !suff.AllPass {
			for _, check := range suff.Checks {
				if !check.Pass {
					r.log.Warn().
						Str("check", check.Name).
						Str("threshold", check.Threshold).
						Str("actual", check.Actual).
						Msg("sufficiency check failed")
				}
			}
			return nil, fmt.Errorf("%w: %d of %d checks failed",
				ErrInsufficientData, countFailed(suff.Checks), len(suff.Checks))
		}
	}

	series, err := r.loadSeries(ctx)
	if err != nil {
		return nil, err
	}

	aligner, err := align.New(align.Config{
		Target:        r.cfg.Target,
		Fill:          r.cfg.Fill,
		MaxGap:        r.cfg.MaxGap,
		AllowUpsample: r.cfg.AllowUpsample,
	})
	if err != nil {
		return nil, err
	}
	table, err := aligner.Align(series...)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	r.log.Info().
		Int("series", len(series)).
		Int("slots", table.Len()).
		Str("target", string(r.cfg.Target)).
		Msg("series aligned")

	anchorDates, err := r.loadAnchors(ctx)
	if err != nil {
		return nil, err
	}

	classifier, err := shock.New(shock.Config{
		RateSeries: r.cfg.RateSeries,
		Anchors:    anchorDates,
		Threshold:  r.cfg.Threshold,
	})
	if err != nil {
		return nil, err
	}
	classified, err := classifier.Classify(table)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	for _, skipped := range classified.Skipped {
		r.log.Warn().
			Time("anchor", skipped.Date).
			Str("reason", skipped.Reason).
			Msg("anchor skipped")
	}
	r.log.Info().
		Int("events", len(classified.Events)).
		Int("skipped", len(classified.Skipped)).
		Float64("threshold", classified.Threshold).
		Msg("anchors classified")

	if err := r.persistEvents(ctx, classified.Events); err != nil {
		return nil, err
	}

	model, err := r.estimate(table, classified.Events)
	if err != nil {
		return nil, err
	}
	if err := r.persistModel(ctx, model); err != nil {
		return nil, err
	}
	r.log.Info().
		Str("model_id", model.ModelID).
		Str("model_type", model.Spec.ModelType).
		Int("n_obs", model.NObs).
		Int("excluded_rows", model.ExcludedRows).
		Float64("r_squared", model.RSquared).
		Msg("model fitted")

	windows := shock.BuildEventWindows(table, r.cfg.OutcomeSeries, classified.Events,
		r.cfg.WindowBefore, r.cfg.WindowAfter)

	return &RunResult{
		Table:     table,
		Events:    classified.Events,
		Skipped:   classified.Skipped,
		Threshold: classified.Threshold,
		Model:     model,
		Windows:   windows,
	}, nil
}

// loadSeries fetches each configured series with its registered frequency.
func (r *Runner) loadSeries(ctx context.Context) ([]*domain.TimeSeries, error) {
	series := make([]*domain.TimeSeries, 0, len(r.cfg.Series))
	for _, id := range r.cfg.Series {
		meta, err := r.metadata.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load metadata for %s: %w", id, err)
		}
		obs, err := r.observations.GetBySeriesID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load observations for %s: %w", id, err)
		}
		if len(obs) == 0 {
			return nil, fmt.Errorf("series %s has no observations", id)
		}
		series = append(series, domain.SeriesFromObservations(id, meta.Frequency, obs))
	}
	return series, nil
}

func (r *Runner) loadAnchors(ctx context.Context) ([]time.Time, error) {
	anchors, err := r.anchors.GetByCalendar(ctx, r.cfg.AnchorCalendar)
	if err != nil {
		return nil, fmt.Errorf("load anchors for %s: %w", r.cfg.AnchorCalendar, err)
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("anchor calendar %s is empty", r.cfg.AnchorCalendar)
	}
	dates := make([]time.Time, len(anchors))
	for i, a := range anchors {
		dates[i] = a.Date
	}
	return dates, nil
}

// persistEvents writes classified events. Intra-batch key collisions are
// rejected up front, so ErrDuplicateKey from the store can only mean this
// batch was persisted by an earlier run; the replay is logged and skipped.
func (r *Runner) persistEvents(ctx context.Context, events []domain.ShockEvent) error {
	if len(events) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(events))
	batch := make([]*domain.ShockEvent, len(events))
	for i := range events {
		ev := events[i]
		key := ev.SeriesID + "/" + ev.Date.Format("2006-01-02")
		if seen[key] {
			return fmt.Errorf("persist shock events: duplicate event %s in batch", key)
		}
		seen[key] = true
		batch[i] = &ev
	}
	err := r.events.InsertBulk(ctx, batch)
	if errors.Is(err, storage.ErrDuplicateKey) {
		r.log.Info().Int("events", len(events)).Msg("shock events already persisted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist shock events: %w", err)
	}
	return nil
}

func (r *Runner) estimate(table *domain.AlignedTable, events []domain.ShockEvent) (*domain.FittedModel, error) {
	spec := domain.ModelSpec{
		ModelType:     r.cfg.ModelType,
		Frequency:     r.cfg.Target,
		OutcomeSeries: r.cfg.OutcomeSeries,
		RateSeries:    r.cfg.RateSeries,
		ShockLags:     r.cfg.ShockLags,
		Controls:      r.cfg.Controls,
	}

	var (
		rows []domain.PanelRow
		err  error
	)
	if r.cfg.ModelType == domain.ModelTypePanelFE {
		rows, err = regress.BuildEntityRows(table, r.cfg.EntityOutcomes, events, spec)
	} else {
		rows, err = regress.BuildMarketRows(table, events, spec)
	}
	if err != nil {
		return nil, fmt.Errorf("build design rows: %w", err)
	}

	model, err := regress.NewEstimator().WithClock(r.clock).Fit(rows, spec)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	return model, nil
}

// persistModel writes the fitted model. The model ID is a content hash of the
// spec, so re-running an identical configuration hits the same key.
func (r *Runner) persistModel(ctx context.Context, model *domain.FittedModel) error {
	err := r.models.Insert(ctx, model)
	if errors.Is(err, storage.ErrDuplicateKey) {
		r.log.Info().Str("model_id", model.ModelID).Msg("model already persisted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist model: %w", err)
	}
	return nil
}

func countFailed(checks []SufficiencyCheck) int {
	n := 0
	for _, c := range checks {
		if !c.Pass {
			n++
		}
	}
	return n
}
