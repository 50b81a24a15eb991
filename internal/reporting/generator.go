package reporting

import (
	"sort"
	"time"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/regress"
	"policy-shock-lab/internal/shock"
)

// Input is everything one pipeline run produced that the report renders.
type Input struct {
	Threshold float64
	Events    []domain.ShockEvent
	Skipped   []shock.SkippedAnchor
	Model     *domain.FittedModel
	Windows   []shock.EventWindow
}

// Generator builds reports from run output.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a report generator.
func NewGenerator() *Generator {
	return &Generator{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles the report. Pure given its input and the clock.
func (g *Generator) Generate(in Input) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		Threshold:   in.Threshold,
	}

	for _, ev := range in.Events {
		r.ShockEvents = append(r.ShockEvents, ShockEventRow{
			Date:       ev.Date,
			RateBefore: ev.RateBefore,
			RateAfter:  ev.RateAfter,
			Delta:      ev.Delta,
			Class:      ev.Class,
		})
	}
	sort.Slice(r.ShockEvents, func(i, j int) bool {
		return r.ShockEvents[i].Date.Before(r.ShockEvents[j].Date)
	})

	for _, s := range in.Skipped {
		r.Skipped = append(r.Skipped, SkippedAnchorRow{Date: s.Date, Reason: s.Reason})
	}
	sort.Slice(r.Skipped, func(i, j int) bool {
		return r.Skipped[i].Date.Before(r.Skipped[j].Date)
	})

	if in.Model != nil {
		r.Model = summarizeModel(in.Model)
		r.Coefficients = coefficientRows(in.Model)
		r.FixedEffects = fixedEffectRows(in.Model)
	}

	r.EventPaths = eventPathRows(in.Windows)
	return r
}

func summarizeModel(m *domain.FittedModel) ModelSummary {
	return ModelSummary{
		ModelID:          m.ModelID,
		ModelType:        m.Spec.ModelType,
		Frequency:        m.Spec.Frequency,
		OutcomeSeries:    m.Spec.OutcomeSeries,
		RateSeries:       m.Spec.RateSeries,
		SampleStart:      m.Spec.SampleStart,
		SampleEnd:        m.Spec.SampleEnd,
		NObs:             m.NObs,
		ExcludedRows:     m.ExcludedRows,
		RSquared:         m.RSquared,
		ResidualVariance: m.ResidualVariance,
	}
}

// coefficientRows lists coefficients in design order: intercept first, then
// shock indicators by lag, then controls.
func coefficientRows(m *domain.FittedModel) []CoefficientRow {
	names := regress.RegressorNames(m.Spec)
	if _, ok := m.Coefficient(domain.RegressorIntercept); ok {
		names = append([]string{domain.RegressorIntercept}, names...)
	}

	rows := make([]CoefficientRow, 0, len(names))
	for _, name := range names {
		c, ok := m.Coefficient(name)
		if !ok {
			continue
		}
		rows = append(rows, CoefficientRow{
			Name:     name,
			Estimate: c.Estimate,
			StdErr:   c.StdErr,
			TStat:    c.TStat,
		})
	}
	return rows
}

func fixedEffectRows(m *domain.FittedModel) []FixedEffectRow {
	if len(m.FixedEffects) == 0 {
		return nil
	}
	rows := make([]FixedEffectRow, 0, len(m.FixedEffects))
	for entity, alpha := range m.FixedEffects {
		rows = append(rows, FixedEffectRow{EntityID: entity, Intercept: alpha})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EntityID < rows[j].EntityID })
	return rows
}

func eventPathRows(windows []shock.EventWindow) []EventPathRow {
	var rows []EventPathRow
	for _, class := range []domain.ShockClass{domain.ShockHike, domain.ShockCut, domain.ShockNoShock} {
		avg := shock.AverageCumReturnByOffset(windows, class)
		if len(avg) == 0 {
			continue
		}
		offsets := make([]int, 0, len(avg))
		for off := range avg {
			offsets = append(offsets, off)
		}
		sort.Ints(offsets)
		for _, off := range offsets {
			rows = append(rows, EventPathRow{Class: class, Offset: off, AvgCumReturn: avg[off]})
		}
	}
	return rows
}
