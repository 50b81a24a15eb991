package domain

import (
	"fmt"
	"time"
)

// Model types.
const (
	ModelTypeOLS     = "OLS"      // single-entity time series regression
	ModelTypePanelFE = "PANEL_FE" // panel with entity fixed effects
)

// Regressor naming. Shock indicators carry their lag in the name so the
// simulator can reconstruct the exact lag structure used at fit time.
const (
	RegressorIntercept = "const"
	// ControlLaggedOutcome is the prior-period outcome control. The simulator
	// feeds it back dynamically instead of holding it at a baseline.
	ControlLaggedOutcome = "outcome_lag1"
)

// HikeRegressor returns the hike indicator name for a lag, e.g. "hike_lag0".
func HikeRegressor(lag int) string { return fmt.Sprintf("hike_lag%d", lag) }

// CutRegressor returns the cut indicator name for a lag, e.g. "cut_lag2".
func CutRegressor(lag int) string { return fmt.Sprintf("cut_lag%d", lag) }

// ModelSpec records the estimation design: what was regressed on what, at which
// lags and frequency. The simulator validates scenario input against it.
type ModelSpec struct {
	ModelType     string    // ModelTypeOLS or ModelTypePanelFE
	Frequency     Frequency // frequency of the aligned sample
	OutcomeSeries string    // aligned column used as outcome
	RateSeries    string    // policy-rate series the shocks came from
	ShockLags     []int     // lags at which shock indicators enter, ASC
	Controls      []string  // control regressor names
	SampleStart   time.Time // first date in the estimation sample
	SampleEnd     time.Time // last date in the estimation sample
}

// Coefficient is one estimated regression coefficient with its diagnostics.
type Coefficient struct {
	Estimate float64
	StdErr   float64
	TStat    float64
}

// FittedModel is the estimator's output: coefficients plus enough metadata to
// simulate from. Owned by the estimator, consumed read-only by the simulator.
type FittedModel struct {
	ModelID          string                 // unique identifier
	Spec             ModelSpec              // design used at fit time
	Coefficients     map[string]Coefficient // regressor name -> estimate
	FixedEffects     map[string]float64     // entity -> intercept offset (panel only)
	ResidualVariance float64                // sigma^2 of residuals
	RSquared         float64
	NObs             int // rows used in the fit
	ExcludedRows     int // complete-case rows dropped
	// ControlBaseline holds the last in-sample value of each control, used by
	// the simulator for controls it cannot evolve itself.
	ControlBaseline map[string]float64
	CreatedAt       time.Time
}

// Coefficient returns the named coefficient and whether it exists.
func (m *FittedModel) Coefficient(name string) (Coefficient, bool) {
	c, ok := m.Coefficients[name]
	return c, ok
}
