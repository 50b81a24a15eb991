package shock

import (
	"fmt"
	"math"
	"sort"
	"time"

	"policy-shock-lab/internal/domain"
)

// SkippedAnchor reports an anchor date that could not be classified.
// Recoverable: the batch continues for the remaining anchors.
type SkippedAnchor struct {
	Date   time.Time
	Reason string
}

// Result is the classifier output: ordered events plus gap diagnostics.
type Result struct {
	Events    []domain.ShockEvent
	Skipped   []SkippedAnchor
	Threshold float64 // threshold actually applied (derived or overridden)
}

// Config controls one classification run.
type Config struct {
	RateSeries string      // aligned column holding the policy rate
	Anchors    []time.Time // announcement dates to classify
	// Threshold is the magnitude bound in rate units. Zero or negative means
	// derive it from the series: sample stddev of its first differences.
	Threshold float64
}

// Classifier scans an aligned policy-rate series at anchor dates and tags
// each as Hike, Cut, or NoShock. Pure and deterministic: identical inputs
// yield an identical ordered event sequence.
type Classifier struct {
	cfg Config
}

// New validates the configuration and returns a Classifier.
func New(cfg Config) (*Classifier, error) {
	if cfg.RateSeries == "" {
		return nil, fmt.Errorf("classifier: rate series not set")
	}
	if len(cfg.Anchors) == 0 {
		return nil, fmt.Errorf("classifier: no anchor dates")
	}
	return &Classifier{cfg: cfg}, nil
}

// Classify computes delta = rate(anchor) - rate(anchor - 1 period) for each
// anchor and classifies with an inclusive boundary: a delta exactly at the
// threshold is a shock, never NoShock. At most one event is emitted per
// aligned period: when several anchors fall in the same period (the March
// 2020 FOMC pattern on a monthly calendar) the earliest is classified and
// the rest carry no new information, so they are skipped. Anchors
// unreachable in the aligned table are reported in Result.Skipped, not
// silently dropped.
func (c *Classifier) Classify(table *domain.AlignedTable) (*Result, error) {
	rates, ok := table.Column(c.cfg.RateSeries)
	if !ok {
		return nil, fmt.Errorf("classifier: series %s not present in aligned table", c.cfg.RateSeries)
	}

	threshold := c.cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold(rates)
		if threshold <= 0 {
			if len(firstDifferences(rates)) < 2 {
				return nil, fmt.Errorf("classifier: cannot derive threshold for %s: fewer than two adjacent observation pairs", c.cfg.RateSeries)
			}
			return nil, fmt.Errorf("classifier: cannot derive threshold for %s: first differences have zero variance", c.cfg.RateSeries)
		}
	}

	anchors := make([]time.Time, len(c.cfg.Anchors))
	copy(anchors, c.cfg.Anchors)
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].Before(anchors[j]) })

	result := &Result{Threshold: threshold}
	for _, anchor := range anchors {
		slot := table.Frequency.Truncate(anchor)

		// Anchors are sorted, so anchors sharing a slot are adjacent.
		if n := len(result.Events); n > 0 && result.Events[n-1].Date.Equal(slot) {
			result.Skipped = append(result.Skipped, SkippedAnchor{
				Date: anchor, Reason: "period already classified by an earlier anchor",
			})
			continue
		}

		i, found := table.Index(slot)
		if !found {
			result.Skipped = append(result.Skipped, SkippedAnchor{
				Date: anchor, Reason: "anchor not on aligned calendar",
			})
			continue
		}
		if i == 0 {
			result.Skipped = append(result.Skipped, SkippedAnchor{
				Date: anchor, Reason: "no prior period before anchor",
			})
			continue
		}

		after, ok := table.Value(c.cfg.RateSeries, i)
		if !ok {
			result.Skipped = append(result.Skipped, SkippedAnchor{
				Date: anchor, Reason: "rate missing at anchor (gap exceeded fill policy)",
			})
			continue
		}
		before, ok := table.Value(c.cfg.RateSeries, i-1)
		if !ok {
			result.Skipped = append(result.Skipped, SkippedAnchor{
				Date: anchor, Reason: "rate missing one period before anchor",
			})
			continue
		}

		delta := after - before
		result.Events = append(result.Events, domain.ShockEvent{
			SeriesID:   c.cfg.RateSeries,
			Date:       slot,
			RateBefore: before,
			RateAfter:  after,
			Delta:      delta,
			Class:      domain.ClassifyDelta(delta, threshold),
		})
	}

	return result, nil
}

// DefaultThreshold derives a magnitude threshold from the rate series itself:
// sample standard deviation (n-1) of first differences over adjacent
// non-missing slots. Returns 0 when fewer than two differences exist or the
// differences have zero variance.
func DefaultThreshold(rates []float64) float64 {
	diffs := firstDifferences(rates)
	n := len(diffs)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, d := range diffs {
		mean += d
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, d := range diffs {
		sumSq += (d - mean) * (d - mean)
	}
	return math.Sqrt(sumSq / float64(n-1))
}

func firstDifferences(rates []float64) []float64 {
	var diffs []float64
	for i := 1; i < len(rates); i++ {
		if domain.IsMissing(rates[i]) || domain.IsMissing(rates[i-1]) {
			continue
		}
		diffs = append(diffs, rates[i]-rates[i-1])
	}
	return diffs
}
