package regress

import (
	"fmt"
	"sort"
	"time"

	"policy-shock-lab/internal/domain"

	"gonum.org/v1/gonum/mat"
)

// Design is a regression design matrix with its row bookkeeping.
type Design struct {
	Names    []string    // regressor names, column order of X
	X        *mat.Dense  // n x p design matrix
	Y        []float64   // n outcomes
	Entities []string    // entity of each row (parallel to Y)
	Dates    []time.Time // date of each row (parallel to Y)
	Excluded int         // complete-case rows dropped
}

// RegressorNames returns the ordered regressor list implied by a model spec,
// excluding the intercept: shock indicators per lag, then controls.
func RegressorNames(spec domain.ModelSpec) []string {
	names := make([]string, 0, 2*len(spec.ShockLags)+len(spec.Controls))
	for _, lag := range spec.ShockLags {
		names = append(names, domain.HikeRegressor(lag), domain.CutRegressor(lag))
	}
	names = append(names, spec.Controls...)
	return names
}

// BuildMarketRows turns an aligned table plus shock events into single-entity
// panel rows: the outcome column regressed on lagged shock indicators and
// control columns. The lagged-outcome control is taken from the outcome
// column itself, one slot back.
func BuildMarketRows(table *domain.AlignedTable, events []domain.ShockEvent, spec domain.ModelSpec) ([]domain.PanelRow, error) {
	if _, ok := table.Column(spec.OutcomeSeries); !ok {
		return nil, fmt.Errorf("outcome series %s not in aligned table", spec.OutcomeSeries)
	}
	for _, ctrl := range spec.Controls {
		if ctrl == domain.ControlLaggedOutcome {
			continue
		}
		if _, ok := table.Column(ctrl); !ok {
			return nil, fmt.Errorf("control series %s not in aligned table", ctrl)
		}
	}

	eventAt := eventIndexMap(table, events)
	maxLag := maxShockLag(spec)

	rows := make([]domain.PanelRow, 0, table.Len())
	for i := maxLag; i < table.Len(); i++ {
		outcome, ok := table.Value(spec.OutcomeSeries, i)
		if !ok {
			// Row is still created so the excluded-row count is visible to the
			// design builder; outcome stays missing.
			outcome = domain.Missing
		}

		rows = append(rows, domain.PanelRow{
			EntityID:   domain.MarketEntityID,
			Date:       table.Dates[i],
			Outcome:    outcome,
			Regressors: slotRegressors(table, i, eventAt, spec, spec.OutcomeSeries),
		})
	}

	return rows, nil
}

// eventIndexMap maps calendar positions to the shock class occurring there.
func eventIndexMap(table *domain.AlignedTable, events []domain.ShockEvent) map[int]domain.ShockClass {
	eventAt := make(map[int]domain.ShockClass, len(events))
	for _, ev := range events {
		if i, ok := table.Index(ev.Date); ok {
			eventAt[i] = ev.Class
		}
	}
	return eventAt
}

func maxShockLag(spec domain.ModelSpec) int {
	maxLag := 0
	for _, lag := range spec.ShockLags {
		if lag > maxLag {
			maxLag = lag
		}
	}
	return maxLag
}

// slotRegressors builds the regressor map for one calendar slot. The
// lagged-outcome control reads outcomeSeries one slot back, which differs
// per entity in panel builds.
func slotRegressors(table *domain.AlignedTable, i int, eventAt map[int]domain.ShockClass, spec domain.ModelSpec, outcomeSeries string) map[string]float64 {
	regs := make(map[string]float64, 2*len(spec.ShockLags)+len(spec.Controls))
	for _, lag := range spec.ShockLags {
		hike, cut := 0.0, 0.0
		switch eventAt[i-lag] {
		case domain.ShockHike:
			hike = 1
		case domain.ShockCut:
			cut = 1
		}
		regs[domain.HikeRegressor(lag)] = hike
		regs[domain.CutRegressor(lag)] = cut
	}

	for _, ctrl := range spec.Controls {
		if ctrl == domain.ControlLaggedOutcome {
			if v, ok := table.Value(outcomeSeries, i-1); ok && i > 0 {
				regs[ctrl] = v
			} else {
				regs[ctrl] = domain.Missing
			}
			continue
		}
		if v, ok := table.Value(ctrl, i); ok {
			regs[ctrl] = v
		} else {
			regs[ctrl] = domain.Missing
		}
	}
	return regs
}

// BuildDesign assembles the design matrix from panel rows, excluding rows with
// a missing outcome or any missing named regressor (complete-case). The count
// of excluded rows is reported, never hidden. Rows are ordered by entity then
// date so clustered-error grouping is contiguous and deterministic.
func BuildDesign(rows []domain.PanelRow, names []string, intercept bool) (*Design, error) {
	if len(names) == 0 && !intercept {
		return nil, fmt.Errorf("design has no regressors")
	}

	ordered := make([]domain.PanelRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].EntityID != ordered[j].EntityID {
			return ordered[i].EntityID < ordered[j].EntityID
		}
		return ordered[i].Date.Before(ordered[j].Date)
	})

	var (
		kept     []domain.PanelRow
		excluded int
	)
	for _, row := range ordered {
		if domain.IsMissing(row.Outcome) {
			excluded++
			continue
		}
		complete := true
		for _, name := range names {
			v, ok := row.Regressors[name]
			if !ok || domain.IsMissing(v) {
				complete = false
				break
			}
		}
		if !complete {
			excluded++
			continue
		}
		kept = append(kept, row)
	}

	cols := len(names)
	if intercept {
		cols++
	}
	if len(kept) == 0 {
		return nil, &EstimationError{
			Reason:  "no complete-case rows",
			Columns: names,
			Rows:    0,
		}
	}

	d := &Design{
		Names:    names,
		X:        mat.NewDense(len(kept), cols, nil),
		Y:        make([]float64, len(kept)),
		Entities: make([]string, len(kept)),
		Dates:    make([]time.Time, len(kept)),
		Excluded: excluded,
	}
	if intercept {
		d.Names = append([]string{domain.RegressorIntercept}, names...)
	}

	for r, row := range kept {
		c := 0
		if intercept {
			d.X.Set(r, 0, 1)
			c = 1
		}
		for _, name := range names {
			d.X.Set(r, c, row.Regressors[name])
			c++
		}
		d.Y[r] = row.Outcome
		d.Entities[r] = row.EntityID
		d.Dates[r] = row.Date
	}

	return d, nil
}
