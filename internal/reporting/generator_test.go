package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/shock"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func testInput() Input {
	model := &domain.FittedModel{
		ModelID: "abc123",
		Spec: domain.ModelSpec{
			ModelType:     domain.ModelTypeOLS,
			Frequency:     domain.FrequencyMonthly,
			OutcomeSeries: "SPX_RET",
			RateSeries:    "DFF",
			ShockLags:     []int{0},
			Controls:      []string{domain.ControlLaggedOutcome},
			SampleStart:   domain.Date(2023, time.January, 31),
			SampleEnd:     domain.Date(2024, time.December, 31),
		},
		Coefficients: map[string]domain.Coefficient{
			domain.RegressorIntercept:   {Estimate: 0.01, StdErr: 0.002, TStat: 5.0},
			domain.HikeRegressor(0):     {Estimate: -0.02, StdErr: 0.008, TStat: -2.5},
			domain.CutRegressor(0):      {Estimate: 0.03, StdErr: 0.009, TStat: 3.3},
			domain.ControlLaggedOutcome: {Estimate: 0.1, StdErr: 0.05, TStat: 2.0},
		},
		ResidualVariance: 0.0004,
		RSquared:         0.42,
		NObs:             23,
		ExcludedRows:     1,
	}

	events := []domain.ShockEvent{
		{SeriesID: "DFF", Date: domain.Date(2023, time.March, 31), RateBefore: 4.75, RateAfter: 5.00, Delta: 0.25, Class: domain.ShockHike},
		{SeriesID: "DFF", Date: domain.Date(2023, time.February, 28), RateBefore: 4.50, RateAfter: 4.75, Delta: 0.25, Class: domain.ShockHike},
		{SeriesID: "DFF", Date: domain.Date(2024, time.September, 30), RateBefore: 5.50, RateAfter: 5.00, Delta: -0.50, Class: domain.ShockCut},
	}

	windows := []shock.EventWindow{
		{
			EventDate: domain.Date(2023, time.February, 28),
			Class:     domain.ShockHike,
			Points: []shock.WindowPoint{
				{Offset: 0, Outcome: -0.02, CumReturn: -0.02},
				{Offset: 1, Outcome: 0.01, CumReturn: -0.0102},
			},
		},
		{
			EventDate: domain.Date(2023, time.March, 31),
			Class:     domain.ShockHike,
			Points: []shock.WindowPoint{
				{Offset: 0, Outcome: -0.04, CumReturn: -0.04},
				{Offset: 1, Outcome: 0.03, CumReturn: -0.0112},
			},
		},
	}

	return Input{
		Threshold: 0.10,
		Events:    events,
		Skipped: []shock.SkippedAnchor{
			{Date: domain.Date(2022, time.December, 14), Reason: "no prior period before anchor"},
		},
		Model:   model,
		Windows: windows,
	}
}

func TestGenerateOrdersAndSummarizes(t *testing.T) {
	report := NewGenerator().WithClock(fixedClock()).Generate(testInput())

	require.Len(t, report.ShockEvents, 3)
	// Events sorted by date regardless of input order.
	assert.True(t, report.ShockEvents[0].Date.Before(report.ShockEvents[1].Date))
	assert.True(t, report.ShockEvents[1].Date.Before(report.ShockEvents[2].Date))

	assert.Equal(t, "abc123", report.Model.ModelID)
	assert.Equal(t, 23, report.Model.NObs)
	assert.Equal(t, 1, report.Model.ExcludedRows)
	assert.InDelta(t, 0.42, report.Model.RSquared, 1e-12)

	require.Len(t, report.Coefficients, 4)
	// Intercept first, then shock indicators, then controls.
	assert.Equal(t, domain.RegressorIntercept, report.Coefficients[0].Name)
	assert.Equal(t, domain.HikeRegressor(0), report.Coefficients[1].Name)
	assert.Equal(t, domain.CutRegressor(0), report.Coefficients[2].Name)
	assert.Equal(t, domain.ControlLaggedOutcome, report.Coefficients[3].Name)

	assert.Empty(t, report.FixedEffects)
	require.Len(t, report.Skipped, 1)
}

func TestGenerateEventPaths(t *testing.T) {
	report := NewGenerator().WithClock(fixedClock()).Generate(testInput())

	require.Len(t, report.EventPaths, 2)
	for _, p := range report.EventPaths {
		assert.Equal(t, domain.ShockHike, p.Class)
	}
	assert.Equal(t, 0, report.EventPaths[0].Offset)
	assert.Equal(t, 1, report.EventPaths[1].Offset)
	assert.InDelta(t, -0.03, report.EventPaths[0].AvgCumReturn, 1e-12)
	assert.InDelta(t, -0.0107, report.EventPaths[1].AvgCumReturn, 1e-12)
}

func TestGeneratePanelFixedEffectsSorted(t *testing.T) {
	in := testInput()
	in.Model.Spec.ModelType = domain.ModelTypePanelFE
	in.Model.FixedEffects = map[string]float64{
		"XOM": 0.02,
		"AAPL": 0.05,
		"JPM": -0.01,
	}

	report := NewGenerator().WithClock(fixedClock()).Generate(in)
	require.Len(t, report.FixedEffects, 3)
	assert.Equal(t, "AAPL", report.FixedEffects[0].EntityID)
	assert.Equal(t, "JPM", report.FixedEffects[1].EntityID)
	assert.Equal(t, "XOM", report.FixedEffects[2].EntityID)
}

func TestGenerateDeterministicClock(t *testing.T) {
	report := NewGenerator().WithClock(fixedClock()).Generate(testInput())
	assert.Equal(t, time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC), report.GeneratedAt)
}

func TestRenderMarkdownSections(t *testing.T) {
	report := NewGenerator().WithClock(fixedClock()).Generate(testInput())
	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Policy Shock Report",
		"## Shock Events",
		"## Skipped Anchors",
		"## Model",
		"### Coefficients",
		"## Average Outcome Path Around Events",
		"abc123",
		"hike_lag0",
		"2024-09-30",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "Entity Fixed Effects")
}

func TestRenderMarkdownEmptyReport(t *testing.T) {
	report := NewGenerator().WithClock(fixedClock()).Generate(Input{Threshold: 0.25})
	md := RenderMarkdown(report)

	assert.Contains(t, md, "No shock events classified.")
	assert.Contains(t, md, "No model fitted.")
	assert.Contains(t, md, "No event windows available.")
}

func TestRenderCSVs(t *testing.T) {
	report := NewGenerator().WithClock(fixedClock()).Generate(testInput())

	events := RenderShockEventsCSV(report.ShockEvents)
	lines := strings.Split(strings.TrimSpace(events), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,rate_before,rate_after,delta,class", lines[0])
	assert.Contains(t, lines[1], "HIKE")

	coeffs := RenderCoefficientsCSV(report.Coefficients)
	require.Len(t, strings.Split(strings.TrimSpace(coeffs), "\n"), 5)

	paths := RenderEventPathsCSV(report.EventPaths)
	require.Len(t, strings.Split(strings.TrimSpace(paths), "\n"), 3)
}

func TestRenderProjection(t *testing.T) {
	p := &domain.Projection{
		ScenarioName: "two_cuts",
		ModelID:      "abc123",
		Noisy:        true,
		Seed:         42,
		Points: []domain.ProjectedPoint{
			{Date: domain.Date(2025, time.January, 31), Value: 0.012, Cumulative: 0.012},
			{Date: domain.Date(2025, time.February, 28), Value: 0.008, Cumulative: 0.020096},
		},
	}

	md := RenderProjectionMarkdown(p)
	assert.Contains(t, md, "## Scenario: two_cuts")
	assert.Contains(t, md, "seed 42")
	assert.Contains(t, md, "2025-02-28")

	csv := RenderProjectionCSV(p)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "scenario,date,value,cumulative", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "two_cuts,2025-01-31,"))
}
