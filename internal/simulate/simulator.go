package simulate

import (
	"fmt"
	"math"
	"sort"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/regress"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseConfig enables residual-variance-scaled noise draws per step.
// The seed is mandatory when noise is on so runs are reproducible.
type NoiseConfig struct {
	Enabled bool
	Seed    int64
}

// Simulator projects outcome paths from a fitted model under hypothetical
// policy scenarios. Pure function of (model, path, noise config): callers may
// run independent simulations in parallel.
type Simulator struct {
	model *domain.FittedModel
}

// New validates the model against its own spec and returns a Simulator.
// A model missing a coefficient for any spec-implied regressor was fitted
// with a different design than it claims; that is fatal.
func New(model *domain.FittedModel) (*Simulator, error) {
	if model == nil {
		return nil, fmt.Errorf("simulator: nil model")
	}
	if !model.Spec.Frequency.Valid() {
		return nil, &SpecificationMismatchError{
			Field: "frequency", Want: "daily, monthly, or quarterly", Got: string(model.Spec.Frequency),
		}
	}

	expected := regress.RegressorNames(model.Spec)
	if model.Spec.ModelType == domain.ModelTypeOLS {
		expected = append(expected, domain.RegressorIntercept)
	}
	for _, name := range expected {
		if _, ok := model.Coefficient(name); !ok {
			return nil, &SpecificationMismatchError{
				Field: "coefficients", Want: name, Got: "absent",
			}
		}
	}

	return &Simulator{model: model}, nil
}

// Project runs a scenario against the model. For panel models the intercept
// is the average fixed effect (a typical entity); use ProjectEntity for a
// specific one. Deterministic unless noise is enabled, in which case the
// draws come from the given seed and are reproducible per seed.
func (s *Simulator) Project(path *domain.ScenarioPath, noise NoiseConfig) (*domain.Projection, error) {
	return s.project(path, noise, s.intercept())
}

// ProjectEntity projects the path for one panel entity using its fixed
// effect. Calling it on a non-panel model or an unknown entity is a
// specification error.
func (s *Simulator) ProjectEntity(entityID string, path *domain.ScenarioPath, noise NoiseConfig) (*domain.Projection, error) {
	if s.model.Spec.ModelType != domain.ModelTypePanelFE {
		return nil, &SpecificationMismatchError{
			Field: "model type", Want: domain.ModelTypePanelFE, Got: s.model.Spec.ModelType,
		}
	}
	effect, ok := s.model.FixedEffects[entityID]
	if !ok {
		return nil, &SpecificationMismatchError{
			Field: "entity", Want: "entity present in fitted panel", Got: entityID,
		}
	}
	return s.project(path, noise, effect)
}

func (s *Simulator) project(path *domain.ScenarioPath, noise NoiseConfig, intercept float64) (*domain.Projection, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	if path.Frequency != s.model.Spec.Frequency {
		return nil, &SpecificationMismatchError{
			Field: "frequency",
			Want:  string(s.model.Spec.Frequency),
			Got:   string(path.Frequency),
		}
	}

	// Non-dynamic controls need a recorded baseline to hold them at.
	for _, ctrl := range s.model.Spec.Controls {
		if ctrl == domain.ControlLaggedOutcome {
			continue
		}
		if _, ok := s.model.ControlBaseline[ctrl]; !ok {
			return nil, &SpecificationMismatchError{
				Field: "control baseline", Want: ctrl, Got: "absent",
			}
		}
	}

	var draw func() float64
	if noise.Enabled {
		dist := distuv.Normal{
			Mu:    0,
			Sigma: math.Sqrt(s.model.ResidualVariance),
			Src:   rand.NewSource(uint64(noise.Seed)),
		}
		draw = dist.Rand
	}

	lastOutcome, hasLastOutcome := s.model.ControlBaseline[domain.ControlLaggedOutcome]

	projection := &domain.Projection{
		ScenarioName: path.Name,
		ModelID:      s.model.ModelID,
		Points:       make([]domain.ProjectedPoint, 0, len(path.Steps)),
		Noisy:        noise.Enabled,
		Seed:         noise.Seed,
	}

	cum := 1.0
	for k, step := range path.Steps {
		value := intercept

		// Shock indicators: a decision at step k-lag contributes through the
		// lag-lag coefficient at step k, reconstructing the fit-time design.
		for _, lag := range s.model.Spec.ShockLags {
			src := k - lag
			if src < 0 {
				continue
			}
			switch path.Steps[src].Decision {
			case domain.DecisionHike:
				c, _ := s.model.Coefficient(domain.HikeRegressor(lag))
				value += c.Estimate
			case domain.DecisionCut, domain.DecisionEase:
				c, _ := s.model.Coefficient(domain.CutRegressor(lag))
				value += c.Estimate
			}
		}

		for _, ctrl := range s.model.Spec.Controls {
			c, _ := s.model.Coefficient(ctrl)
			if ctrl == domain.ControlLaggedOutcome {
				if hasLastOutcome {
					value += c.Estimate * lastOutcome
				}
				continue
			}
			value += c.Estimate * s.model.ControlBaseline[ctrl]
		}

		if draw != nil {
			value += draw()
		}

		cum *= 1 + value
		projection.Points = append(projection.Points, domain.ProjectedPoint{
			Date:       step.Date,
			Value:      value,
			Cumulative: cum - 1,
		})

		lastOutcome = value
		hasLastOutcome = true
	}

	return projection, nil
}

// intercept returns the constant for projection: the fitted intercept for
// OLS, or the mean fixed effect for panel models.
func (s *Simulator) intercept() float64 {
	if s.model.Spec.ModelType == domain.ModelTypeOLS {
		c, _ := s.model.Coefficient(domain.RegressorIntercept)
		return c.Estimate
	}

	if len(s.model.FixedEffects) == 0 {
		return 0
	}
	entities := make([]string, 0, len(s.model.FixedEffects))
	for e := range s.model.FixedEffects {
		entities = append(entities, e)
	}
	sort.Strings(entities)

	sum := 0.0
	for _, e := range entities {
		sum += s.model.FixedEffects[e]
	}
	return sum / float64(len(entities))
}
