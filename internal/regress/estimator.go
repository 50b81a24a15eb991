package regress

import (
	"fmt"
	"sort"
	"time"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/idhash"

	"gonum.org/v1/gonum/mat"
)

// Estimator fits impact regressions: plain OLS for single-entity series and
// entity fixed effects (within-transformation) for panels. Fixed effects are
// absorbed by demeaning each entity's outcome and regressors by its own mean;
// the slope estimates are identical to explicit entity dummies.
type Estimator struct {
	now func() time.Time // injectable clock for deterministic output
}

// NewEstimator creates an Estimator.
func NewEstimator() *Estimator {
	return &Estimator{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function for deterministic output.
func (e *Estimator) WithClock(now func() time.Time) *Estimator {
	e.now = now
	return e
}

// Fit estimates the model described by spec over the given panel rows.
// Rows with a missing outcome or regressor are excluded (complete-case) and
// counted in FittedModel.ExcludedRows. A rank-deficient design aborts with
// EstimationError naming the collinear columns.
func (e *Estimator) Fit(rows []domain.PanelRow, spec domain.ModelSpec) (*domain.FittedModel, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	names := RegressorNames(spec)
	intercept := spec.ModelType == domain.ModelTypeOLS

	design, err := BuildDesign(rows, names, intercept)
	if err != nil {
		return nil, err
	}

	X, y := design.X, design.Y
	groups := countEntities(design.Entities)

	if spec.ModelType == domain.ModelTypePanelFE {
		X, y = withinTransform(design)
	}

	if err := checkRank(X, design.Names); err != nil {
		return nil, err
	}

	ls, err := solveLS(X, y)
	if err != nil {
		return nil, err
	}

	n, p := X.Dims()
	dof := n - p
	if spec.ModelType == domain.ModelTypePanelFE {
		dof -= groups // entity means absorbed by the within-transform
	}
	if dof <= 0 {
		return nil, &EstimationError{
			Reason:  fmt.Sprintf("insufficient degrees of freedom (n=%d, p=%d, entities=%d)", n, p, groups),
			Columns: design.Names,
			Rows:    n,
			Rank:    p,
		}
	}

	sigma2 := ls.rss / float64(dof)

	// Cluster by entity whenever any entity contributes more than one row.
	var se []float64
	if spec.ModelType == domain.ModelTypePanelFE && maxClusterSize(design.Entities) > 1 {
		se = clusteredStdErrs(X, ls.resid, design.Entities, ls.xtxInv)
	} else {
		se = plainStdErrs(ls.xtxInv, sigma2)
	}

	coeffs := make(map[string]domain.Coefficient, len(design.Names))
	for j, name := range design.Names {
		c := domain.Coefficient{Estimate: ls.beta[j], StdErr: se[j]}
		if se[j] > 0 {
			c.TStat = ls.beta[j] / se[j]
		}
		coeffs[name] = c
	}

	// Record the realized sample window before hashing the spec.
	spec.SampleStart, spec.SampleEnd = sampleWindow(design.Dates)

	model := &domain.FittedModel{
		Spec:             spec,
		Coefficients:     coeffs,
		ResidualVariance: sigma2,
		RSquared:         rSquared(y, ls.rss),
		NObs:             n,
		ExcludedRows:     design.Excluded,
		ControlBaseline:  controlBaseline(rows, spec.Controls),
		CreatedAt:        e.now(),
	}

	if spec.ModelType == domain.ModelTypePanelFE {
		model.FixedEffects = recoverFixedEffects(design, ls.beta)
	}

	model.ModelID = idhash.ComputeModelID(spec)
	return model, nil
}

func validateSpec(spec domain.ModelSpec) error {
	if spec.ModelType != domain.ModelTypeOLS && spec.ModelType != domain.ModelTypePanelFE {
		return fmt.Errorf("unknown model type %q", spec.ModelType)
	}
	if !spec.Frequency.Valid() {
		return fmt.Errorf("invalid model frequency %q", spec.Frequency)
	}
	if len(spec.ShockLags) == 0 {
		return fmt.Errorf("model spec has no shock lags")
	}
	for i, lag := range spec.ShockLags {
		if lag < 0 {
			return fmt.Errorf("negative shock lag %d", lag)
		}
		if i > 0 && lag <= spec.ShockLags[i-1] {
			return fmt.Errorf("shock lags must be strictly increasing, got %v", spec.ShockLags)
		}
	}
	return nil
}

// withinTransform demeans outcome and regressors by entity.
// Entities are contiguous in design rows (BuildDesign sorts them).
func withinTransform(d *Design) (*mat.Dense, []float64) {
	n, p := d.X.Dims()
	out := mat.NewDense(n, p, nil)
	y := make([]float64, n)

	start := 0
	for start < n {
		end := start
		for end < n && d.Entities[end] == d.Entities[start] {
			end++
		}
		size := float64(end - start)

		yMean := 0.0
		xMean := make([]float64, p)
		for i := start; i < end; i++ {
			yMean += d.Y[i]
			for j := 0; j < p; j++ {
				xMean[j] += d.X.At(i, j)
			}
		}
		yMean /= size
		for j := range xMean {
			xMean[j] /= size
		}

		for i := start; i < end; i++ {
			y[i] = d.Y[i] - yMean
			for j := 0; j < p; j++ {
				out.Set(i, j, d.X.At(i, j)-xMean[j])
			}
		}
		start = end
	}

	return out, y
}

// recoverFixedEffects computes each entity's intercept offset after the
// within fit: alpha_e = mean_e(y) - mean_e(x)' beta.
func recoverFixedEffects(d *Design, beta []float64) map[string]float64 {
	n, p := d.X.Dims()
	effects := make(map[string]float64)

	start := 0
	for start < n {
		end := start
		for end < n && d.Entities[end] == d.Entities[start] {
			end++
		}
		size := float64(end - start)

		yMean := 0.0
		alpha := 0.0
		for i := start; i < end; i++ {
			yMean += d.Y[i]
		}
		yMean /= size

		for j := 0; j < p; j++ {
			xMean := 0.0
			for i := start; i < end; i++ {
				xMean += d.X.At(i, j)
			}
			alpha += beta[j] * xMean / size
		}

		effects[d.Entities[start]] = yMean - alpha
		start = end
	}

	return effects
}

func sampleWindow(dates []time.Time) (time.Time, time.Time) {
	if len(dates) == 0 {
		return time.Time{}, time.Time{}
	}
	start, end := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}
	return start, end
}

func countEntities(entities []string) int {
	count := 0
	for i := range entities {
		if i == 0 || entities[i] != entities[i-1] {
			count++
		}
	}
	return count
}

func maxClusterSize(entities []string) int {
	best, run := 0, 0
	for i := range entities {
		if i == 0 || entities[i] != entities[i-1] {
			run = 0
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

func rSquared(y []float64, rss float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	tss := 0.0
	for _, v := range y {
		tss += (v - mean) * (v - mean)
	}
	if tss == 0 {
		return 0
	}
	return 1 - rss/tss
}

// controlBaseline records the most recent non-missing value of each control
// across the input rows. The simulator uses these for controls it cannot
// evolve itself.
func controlBaseline(rows []domain.PanelRow, controls []string) map[string]float64 {
	if len(controls) == 0 {
		return nil
	}

	ordered := make([]domain.PanelRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	baseline := make(map[string]float64, len(controls))
	for _, ctrl := range controls {
		for i := len(ordered) - 1; i >= 0; i-- {
			if v, ok := ordered[i].Regressors[ctrl]; ok && !domain.IsMissing(v) {
				baseline[ctrl] = v
				break
			}
		}
	}
	return baseline
}
