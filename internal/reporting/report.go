package reporting

import (
	"time"

	"policy-shock-lab/internal/domain"
)

// Report is the rendered-form view of one pipeline run: classified shocks,
// the fitted model, and average outcome paths around events.
type Report struct {
	GeneratedAt time.Time
	Threshold   float64

	ShockEvents []ShockEventRow
	Skipped     []SkippedAnchorRow

	Model        ModelSummary
	Coefficients []CoefficientRow
	FixedEffects []FixedEffectRow

	// EventPaths holds the average cumulative outcome per offset, pooled by
	// shock class. Ordered by class, then offset.
	EventPaths []EventPathRow
}

// ShockEventRow is one classified anchor.
type ShockEventRow struct {
	Date       time.Time
	RateBefore float64
	RateAfter  float64
	Delta      float64
	Class      domain.ShockClass
}

// SkippedAnchorRow is one anchor the classifier could not reach.
type SkippedAnchorRow struct {
	Date   time.Time
	Reason string
}

// ModelSummary is the fit header.
type ModelSummary struct {
	ModelID          string
	ModelType        string
	Frequency        domain.Frequency
	OutcomeSeries    string
	RateSeries       string
	SampleStart      time.Time
	SampleEnd        time.Time
	NObs             int
	ExcludedRows     int
	RSquared         float64
	ResidualVariance float64
}

// CoefficientRow is one regressor estimate, in design order.
type CoefficientRow struct {
	Name     string
	Estimate float64
	StdErr   float64
	TStat    float64
}

// FixedEffectRow is one entity intercept (panel models only).
type FixedEffectRow struct {
	EntityID  string
	Intercept float64
}

// EventPathRow is the average cumulative outcome at one offset for one class.
type EventPathRow struct {
	Class        domain.ShockClass
	Offset       int
	AvgCumReturn float64
}
