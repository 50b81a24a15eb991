package domain

import (
	"fmt"
	"time"
)

// Decision is a hypothetical policy action at one scenario step.
type Decision string

// Scenario decisions. Ease is a gradual cut (QE-style); it enters the design
// through the cut indicators just like Cut.
const (
	DecisionHike Decision = "HIKE"
	DecisionCut  Decision = "CUT"
	DecisionHold Decision = "HOLD"
	DecisionEase Decision = "EASE"
)

// ScenarioStep is one hypothetical rate decision at a future date.
type ScenarioStep struct {
	Date      time.Time
	Decision  Decision
	DeltaRate float64 // signed rate change; 0 for Hold
}

// ScenarioPath is a caller-supplied sequence of hypothetical policy decisions.
// Step frequency must match the frequency the model was fitted at.
type ScenarioPath struct {
	Name      string
	Frequency Frequency
	Steps     []ScenarioStep
}

// Validate checks ordering and decision/delta sign consistency.
func (p *ScenarioPath) Validate() error {
	if !p.Frequency.Valid() {
		return fmt.Errorf("scenario %q: invalid frequency %q", p.Name, p.Frequency)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("scenario %q: no steps", p.Name)
	}
	for i, s := range p.Steps {
		if i > 0 && !s.Date.After(p.Steps[i-1].Date) {
			return fmt.Errorf("scenario %q: step dates not strictly increasing at index %d", p.Name, i)
		}
		switch s.Decision {
		case DecisionHike:
			if s.DeltaRate <= 0 {
				return fmt.Errorf("scenario %q: HIKE step at %s needs positive delta, got %g",
					p.Name, s.Date.Format("2006-01-02"), s.DeltaRate)
			}
		case DecisionCut, DecisionEase:
			if s.DeltaRate >= 0 {
				return fmt.Errorf("scenario %q: %s step at %s needs negative delta, got %g",
					p.Name, s.Decision, s.Date.Format("2006-01-02"), s.DeltaRate)
			}
		case DecisionHold:
			if s.DeltaRate != 0 {
				return fmt.Errorf("scenario %q: HOLD step at %s must have zero delta, got %g",
					p.Name, s.Date.Format("2006-01-02"), s.DeltaRate)
			}
		default:
			return fmt.Errorf("scenario %q: unknown decision %q", p.Name, s.Decision)
		}
	}
	return nil
}

// ProjectedPoint is one step of a projected outcome path.
type ProjectedPoint struct {
	Date       time.Time
	Value      float64 // projected per-period outcome (e.g. return)
	Cumulative float64 // compounded cumulative outcome since the start
}

// Projection is the simulator's output for one (model, scenario) run.
// Not persisted; handed to the reporting layer.
type Projection struct {
	ScenarioName string
	ModelID      string
	Points       []ProjectedPoint
	Noisy        bool  // whether noise draws were applied
	Seed         int64 // seed used when Noisy
}
