package regress

import (
	"errors"
	"math"
	"testing"
	"time"

	"policy-shock-lab/internal/domain"
)

// marketRow builds a single-entity row with shock indicators at lag 0.
func marketRow(date time.Time, outcome, hike, cut float64) domain.PanelRow {
	return domain.PanelRow{
		EntityID: domain.MarketEntityID,
		Date:     date,
		Outcome:  outcome,
		Regressors: map[string]float64{
			domain.HikeRegressor(0): hike,
			domain.CutRegressor(0):  cut,
		},
	}
}

func monthlySpec(modelType string) domain.ModelSpec {
	return domain.ModelSpec{
		ModelType:     modelType,
		Frequency:     domain.FrequencyMonthly,
		OutcomeSeries: "sp500_return",
		RateSeries:    "fed_funds",
		ShockLags:     []int{0},
	}
}

func TestFitRecoversExactCoefficients(t *testing.T) {
	const (
		alpha = 0.01
		bHike = -0.02
		bCut  = 0.03
	)

	var rows []domain.PanelRow
	date := domain.Date(2024, 1, 31)
	for i := 0; i < 8; i++ {
		hike, cut := 0.0, 0.0
		if i == 2 {
			hike = 1
		}
		if i == 5 {
			cut = 1
		}
		y := alpha + bHike*hike + bCut*cut
		rows = append(rows, marketRow(date, y, hike, cut))
		date = domain.FrequencyMonthly.Next(date)
	}

	fixed := domain.Date(2026, 8, 1)
	model, err := NewEstimator().WithClock(func() time.Time { return fixed }).Fit(rows, monthlySpec(domain.ModelTypeOLS))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	checks := map[string]float64{
		domain.RegressorIntercept: alpha,
		domain.HikeRegressor(0):   bHike,
		domain.CutRegressor(0):    bCut,
	}
	for name, want := range checks {
		c, ok := model.Coefficient(name)
		if !ok {
			t.Fatalf("missing coefficient %s", name)
		}
		if math.Abs(c.Estimate-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, c.Estimate, want)
		}
	}

	if model.NObs != 8 {
		t.Errorf("NObs = %d, want 8", model.NObs)
	}
	if model.ExcludedRows != 0 {
		t.Errorf("ExcludedRows = %d, want 0", model.ExcludedRows)
	}
	if model.ResidualVariance > 1e-18 {
		t.Errorf("noiseless fit should have ~zero residual variance, got %v", model.ResidualVariance)
	}
	if math.Abs(model.RSquared-1) > 1e-9 {
		t.Errorf("RSquared = %v, want 1", model.RSquared)
	}
	if !model.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want injected clock time %v", model.CreatedAt, fixed)
	}
	if model.ModelID == "" {
		t.Error("model ID not set")
	}
}

func TestFitRecordsSampleWindow(t *testing.T) {
	var rows []domain.PanelRow
	date := domain.Date(2024, 1, 31)
	for i := 0; i < 6; i++ {
		hike, cut := 0.0, 0.0
		if i == 1 {
			hike = 1
		}
		if i == 4 {
			cut = 1
		}
		rows = append(rows, marketRow(date, 0.01*float64(i)+0.02*hike-0.01*cut, hike, cut))
		date = domain.FrequencyMonthly.Next(date)
	}

	model, err := NewEstimator().Fit(rows, monthlySpec(domain.ModelTypeOLS))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if !model.Spec.SampleStart.Equal(domain.Date(2024, 1, 31)) {
		t.Errorf("SampleStart = %v, want 2024-01-31", model.Spec.SampleStart)
	}
	if !model.Spec.SampleEnd.Equal(domain.Date(2024, 6, 30)) {
		t.Errorf("SampleEnd = %v, want 2024-06-30", model.Spec.SampleEnd)
	}
}

func TestFitPanelRecoversFixedEffects(t *testing.T) {
	const (
		bHike = -0.03
		bCut  = 0.04
	)
	alphas := map[string]float64{"AAA": 0.02, "BBB": 0.05}

	var rows []domain.PanelRow
	for entity, alpha := range alphas {
		date := domain.Date(2023, 3, 31)
		for i := 0; i < 6; i++ {
			hike, cut := 0.0, 0.0
			if i == 1 {
				hike = 1
			}
			if i == 4 {
				cut = 1
			}
			rows = append(rows, domain.PanelRow{
				EntityID: entity,
				Date:     date,
				Outcome:  alpha + bHike*hike + bCut*cut,
				Regressors: map[string]float64{
					domain.HikeRegressor(0): hike,
					domain.CutRegressor(0):  cut,
				},
			})
			date = domain.FrequencyQuarterly.Next(date)
		}
	}

	spec := monthlySpec(domain.ModelTypePanelFE)
	spec.Frequency = domain.FrequencyQuarterly
	spec.OutcomeSeries = "capex_growth"

	model, err := NewEstimator().Fit(rows, spec)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if c, _ := model.Coefficient(domain.HikeRegressor(0)); math.Abs(c.Estimate-bHike) > 1e-9 {
		t.Errorf("hike slope = %v, want %v", c.Estimate, bHike)
	}
	if c, _ := model.Coefficient(domain.CutRegressor(0)); math.Abs(c.Estimate-bCut) > 1e-9 {
		t.Errorf("cut slope = %v, want %v", c.Estimate, bCut)
	}

	// Panel fits have no global intercept; entity levels live in FixedEffects.
	if _, ok := model.Coefficient(domain.RegressorIntercept); ok {
		t.Error("panel fit should not carry a const coefficient")
	}
	for entity, want := range alphas {
		got, ok := model.FixedEffects[entity]
		if !ok {
			t.Fatalf("missing fixed effect for %s", entity)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("fixed effect %s = %v, want %v", entity, got, want)
		}
	}
}

func TestFitCountsExcludedRows(t *testing.T) {
	// 3 entities x 4 quarters, one missing outcome: the row is dropped and
	// counted, the remaining 11 are fit.
	var rows []domain.PanelRow
	for _, entity := range []string{"AAA", "BBB", "CCC"} {
		date := domain.Date(2023, 3, 31)
		for i := 0; i < 4; i++ {
			hike, cut := 0.0, 0.0
			if i == 1 {
				hike = 1
			}
			if i == 3 {
				cut = 1
			}
			outcome := 0.01 - 0.02*hike + 0.03*cut
			if entity == "BBB" && i == 2 {
				outcome = domain.Missing
			}
			rows = append(rows, domain.PanelRow{
				EntityID: entity,
				Date:     date,
				Outcome:  outcome,
				Regressors: map[string]float64{
					domain.HikeRegressor(0): hike,
					domain.CutRegressor(0):  cut,
				},
			})
			date = domain.FrequencyQuarterly.Next(date)
		}
	}

	spec := monthlySpec(domain.ModelTypePanelFE)
	spec.Frequency = domain.FrequencyQuarterly

	model, err := NewEstimator().Fit(rows, spec)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if model.NObs != 11 {
		t.Errorf("NObs = %d, want 11", model.NObs)
	}
	if model.ExcludedRows != 1 {
		t.Errorf("ExcludedRows = %d, want 1", model.ExcludedRows)
	}
}

func TestFitRejectsRankDeficientDesign(t *testing.T) {
	var rows []domain.PanelRow
	date := domain.Date(2024, 1, 31)
	for i := 0; i < 8; i++ {
		hike, cut := 0.0, 0.0
		if i == 2 {
			hike = 1
		}
		if i == 5 {
			cut = 1
		}
		rows = append(rows, domain.PanelRow{
			EntityID: domain.MarketEntityID,
			Date:     date,
			Outcome:  0.01 + 0.02*hike,
			Regressors: map[string]float64{
				domain.HikeRegressor(0): hike,
				domain.CutRegressor(0):  cut,
				"hike_copy":             hike, // duplicates the hike column
			},
		})
		date = domain.FrequencyMonthly.Next(date)
	}

	spec := monthlySpec(domain.ModelTypeOLS)
	spec.Controls = []string{"hike_copy"}

	_, err := NewEstimator().Fit(rows, spec)
	var estErr *EstimationError
	if !errors.As(err, &estErr) {
		t.Fatalf("expected EstimationError, got %v", err)
	}
	if len(estErr.Columns) == 0 {
		t.Error("rank error should name the collinear columns")
	}
}

func TestFitRejectsBadSpecs(t *testing.T) {
	rows := []domain.PanelRow{marketRow(domain.Date(2024, 1, 31), 0.01, 0, 0)}

	cases := []struct {
		name   string
		mutate func(*domain.ModelSpec)
	}{
		{"unknown model type", func(s *domain.ModelSpec) { s.ModelType = "GARCH" }},
		{"invalid frequency", func(s *domain.ModelSpec) { s.Frequency = "weekly" }},
		{"no shock lags", func(s *domain.ModelSpec) { s.ShockLags = nil }},
		{"negative lag", func(s *domain.ModelSpec) { s.ShockLags = []int{-1} }},
		{"non-increasing lags", func(s *domain.ModelSpec) { s.ShockLags = []int{0, 2, 2} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := monthlySpec(domain.ModelTypeOLS)
			tc.mutate(&spec)
			if _, err := NewEstimator().Fit(rows, spec); err == nil {
				t.Error("expected spec validation error")
			}
		})
	}
}
