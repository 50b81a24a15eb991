package align

import (
	"fmt"
	"time"

	"policy-shock-lab/internal/domain"
)

// FillPolicy selects how missing target slots are filled.
// Exactly one policy applies per run; policies are never mixed.
type FillPolicy string

// Supported fill policies.
const (
	FillForward     FillPolicy = "ffill"       // carry last known value forward
	FillInterpolate FillPolicy = "interpolate" // linear between bounding observations
)

// Config controls one alignment run.
type Config struct {
	Target Frequency // target calendar frequency
	Fill   FillPolicy
	// MaxGap is the largest run of consecutive missing target slots the fill
	// policy may bridge. Gaps longer than MaxGap stay missing. Zero or
	// negative means unbounded.
	MaxGap int
	// AllowUpsample permits a target finer than a series' native frequency
	// (e.g. daily target from a quarterly series). Off by default because the
	// filled values are then pure carry-forward artifacts.
	AllowUpsample bool
}

// Frequency aliases domain.Frequency for config readability.
type Frequency = domain.Frequency

// Aligner merges heterogeneous series onto one target calendar.
type Aligner struct {
	cfg Config
}

// New validates the configuration and returns an Aligner.
func New(cfg Config) (*Aligner, error) {
	if !cfg.Target.Valid() {
		return nil, fmt.Errorf("aligner: invalid target frequency %q", cfg.Target)
	}
	if cfg.Fill != FillForward && cfg.Fill != FillInterpolate {
		return nil, fmt.Errorf("aligner: invalid fill policy %q (want %q or %q)",
			cfg.Fill, FillForward, FillInterpolate)
	}
	return &Aligner{cfg: cfg}, nil
}

// Align merges the given series onto the target calendar.
// The calendar spans the union of all series' date ranges. Slots a series
// does not cover are filled per the configured policy up to MaxGap;
// everything else stays missing (NaN).
func (a *Aligner) Align(series ...*domain.TimeSeries) (*domain.AlignedTable, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("aligner: no input series")
	}

	for _, ts := range series {
		if err := ts.Validate(); err != nil {
			return nil, err
		}
		if len(ts.Points) < 2 {
			return nil, &AlignmentError{
				SeriesID:     ts.ID,
				Observations: len(ts.Points),
				Reason:       "fewer than two non-missing observations",
			}
		}
		if a.cfg.Target.FinerThan(ts.Frequency) && !a.cfg.AllowUpsample {
			return nil, &AlignmentError{
				SeriesID:     ts.ID,
				Observations: len(ts.Points),
				Reason: fmt.Sprintf("target frequency %s finer than native %s and upsampling not allowed",
					a.cfg.Target, ts.Frequency),
			}
		}
	}

	dates := a.calendar(series)
	table := &domain.AlignedTable{
		Frequency: a.cfg.Target,
		Dates:     dates,
		Columns:   make(map[string][]float64, len(series)),
	}

	for _, ts := range series {
		table.Columns[ts.ID] = a.fill(ts, dates)
	}

	return table, nil
}

// calendar builds the target calendar covering all series.
func (a *Aligner) calendar(series []*domain.TimeSeries) []time.Time {
	first := series[0].Points[0].Date
	last := series[0].Points[len(series[0].Points)-1].Date
	for _, ts := range series[1:] {
		if ts.Points[0].Date.Before(first) {
			first = ts.Points[0].Date
		}
		if end := ts.Points[len(ts.Points)-1].Date; end.After(last) {
			last = end
		}
	}

	start := a.cfg.Target.Truncate(first)
	end := a.cfg.Target.Truncate(last)

	var dates []time.Time
	for d := start; !d.After(end); d = a.cfg.Target.Next(d) {
		dates = append(dates, d)
	}
	return dates
}

// fill maps one series onto the calendar and applies the fill policy.
func (a *Aligner) fill(ts *domain.TimeSeries, dates []time.Time) []float64 {
	// Snap observations to calendar slots. Multiple observations landing in
	// one coarser slot resolve to the last one, matching period-end sampling.
	actual := make(map[time.Time]float64, len(ts.Points))
	for _, p := range ts.Points {
		actual[a.cfg.Target.Truncate(p.Date)] = p.Value
	}

	values := make([]float64, len(dates))
	known := make([]bool, len(dates))
	for i, d := range dates {
		if v, ok := actual[d]; ok {
			values[i] = v
			known[i] = true
		} else {
			values[i] = domain.Missing
		}
	}

	switch a.cfg.Fill {
	case FillForward:
		a.forwardFill(values, known)
	case FillInterpolate:
		a.interpolate(values, known)
	}
	return values
}

func (a *Aligner) forwardFill(values []float64, known []bool) {
	lastKnown := -1
	for i := range values {
		if known[i] {
			lastKnown = i
			continue
		}
		if lastKnown < 0 {
			continue // nothing to carry before the first observation
		}
		gap := i - lastKnown
		if a.cfg.MaxGap > 0 && gap > a.cfg.MaxGap {
			continue
		}
		values[i] = values[lastKnown]
	}
}

func (a *Aligner) interpolate(values []float64, known []bool) {
	prev := -1
	for i := range values {
		if !known[i] {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			gapLen := i - prev - 1
			if a.cfg.MaxGap <= 0 || gapLen <= a.cfg.MaxGap {
				step := (values[i] - values[prev]) / float64(i-prev)
				for j := prev + 1; j < i; j++ {
					values[j] = values[prev] + step*float64(j-prev)
				}
			}
		}
		prev = i
	}
	// Leading and trailing gaps have no bounding pair; they stay missing.
}
