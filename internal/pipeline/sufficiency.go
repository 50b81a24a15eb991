package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"policy-shock-lab/internal/storage"
)

// Default coverage bounds. A regression on fewer than minObservations slots
// per series is not worth running; one anchor is the floor for a
// classification pass to mean anything.
const (
	DefaultMinObservations = 8
	DefaultMinAnchors      = 1
)

// SufficiencyCheck is one data coverage criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult aggregates all checks plus per-item errors.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string
}

// SufficiencyChecker verifies stored data coverage before a pipeline run:
// every configured series must be registered and carry enough observations,
// and the anchor calendar must have anchors inside the observation span.
type SufficiencyChecker struct {
	metadata        storage.SeriesMetadataStore
	observations    storage.ObservationStore
	anchors         storage.AnchorStore
	series          []string
	anchorCalendar  string
	minObservations int
	minAnchors      int
}

// NewSufficiencyChecker builds a checker for the given series and calendar.
func NewSufficiencyChecker(
	metadata storage.SeriesMetadataStore,
	observations storage.ObservationStore,
	anchors storage.AnchorStore,
	series []string,
	anchorCalendar string,
) *SufficiencyChecker {
	return &SufficiencyChecker{
		metadata:        metadata,
		observations:    observations,
		anchors:         anchors,
		series:          series,
		anchorCalendar:  anchorCalendar,
		minObservations: DefaultMinObservations,
		minAnchors:      DefaultMinAnchors,
	}
}

// WithThresholds overrides the default coverage bounds.
func (c *SufficiencyChecker) WithThresholds(minObservations, minAnchors int) *SufficiencyChecker {
	c.minObservations = minObservations
	c.minAnchors = minAnchors
	return c
}

// Check runs all coverage checks. A store error aborts; failed criteria are
// reported in the result, not as errors.
func (c *SufficiencyChecker) Check(ctx context.Context) (*SufficiencyResult, error) {
	result := &SufficiencyResult{AllPass: true}

	spanStart, spanEnd, err := c.checkSeries(ctx, result)
	if err != nil {
		return nil, err
	}
	if err := c.checkAnchors(ctx, result, spanStart, spanEnd); err != nil {
		return nil, err
	}

	return result, nil
}

// checkSeries verifies registration and observation counts, and returns the
// union observation span for the anchor coverage check.
func (c *SufficiencyChecker) checkSeries(ctx context.Context, result *SufficiencyResult) (time.Time, time.Time, error) {
	var spanStart, spanEnd time.Time

	registered := 0
	for _, id := range c.series {
		_, err := c.metadata.GetByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("series %s not registered", id))
			continue
		}
		if err != nil {
			return spanStart, spanEnd, fmt.Errorf("check metadata for %s: %w", id, err)
		}
		registered++
	}
	appendCheck(result, SufficiencyCheck{
		Name:      "Registered series",
		Threshold: fmt.Sprintf("= %d", len(c.series)),
		Actual:    fmt.Sprintf("%d", registered),
		Pass:      registered == len(c.series),
	})

	underCovered := 0
	for _, id := range c.series {
		obs, err := c.observations.GetBySeriesID(ctx, id)
		if err != nil {
			return spanStart, spanEnd, fmt.Errorf("check observations for %s: %w", id, err)
		}
		if len(obs) < c.minObservations {
			underCovered++
			result.Errors = append(result.Errors,
				fmt.Sprintf("series %s has %d observations, need %d", id, len(obs), c.minObservations))
		}
		for _, o := range obs {
			if spanStart.IsZero() || o.Date.Before(spanStart) {
				spanStart = o.Date
			}
			if spanEnd.IsZero() || o.Date.After(spanEnd) {
				spanEnd = o.Date
			}
		}
	}
	appendCheck(result, SufficiencyCheck{
		Name:      "Series observation coverage",
		Threshold: fmt.Sprintf(">= %d observations each", c.minObservations),
		Actual:    fmt.Sprintf("%d series under threshold", underCovered),
		Pass:      underCovered == 0,
	})

	return spanStart, spanEnd, nil
}

// checkAnchors verifies the calendar is populated and its anchors fall
// inside the observation span. Out-of-span anchors would only inflate the
// skipped-anchor diagnostics downstream.
func (c *SufficiencyChecker) checkAnchors(ctx context.Context, result *SufficiencyResult, spanStart, spanEnd time.Time) error {
	anchors, err := c.anchors.GetByCalendar(ctx, c.anchorCalendar)
	if err != nil {
		return fmt.Errorf("check anchors for %s: %w", c.anchorCalendar, err)
	}
	appendCheck(result, SufficiencyCheck{
		Name:      "Anchor calendar size",
		Threshold: fmt.Sprintf(">= %d", c.minAnchors),
		Actual:    fmt.Sprintf("%d", len(anchors)),
		Pass:      len(anchors) >= c.minAnchors,
	})

	inSpan := 0
	for _, a := range anchors {
		if spanStart.IsZero() {
			break
		}
		if !a.Date.Before(spanStart) && !a.Date.After(spanEnd) {
			inSpan++
		} else {
			result.Errors = append(result.Errors,
				fmt.Sprintf("anchor %s outside observation span", a.Date.Format("2006-01-02")))
		}
	}
	appendCheck(result, SufficiencyCheck{
		Name:      "Anchors inside observation span",
		Threshold: fmt.Sprintf(">= %d", c.minAnchors),
		Actual:    fmt.Sprintf("%d of %d", inSpan, len(anchors)),
		Pass:      inSpan >= c.minAnchors,
	})

	return nil
}

func appendCheck(result *SufficiencyResult, check SufficiencyCheck) {
	result.Checks = append(result.Checks, check)
	if !check.Pass {
		result.AllPass = false
	}
}
