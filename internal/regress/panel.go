package regress

import (
	"fmt"
	"sort"

	"policy-shock-lab/internal/domain"
)

// BuildEntityRows builds a multi-entity panel from an aligned table where
// each entity has its own outcome column (e.g. per-ticker capex growth) and
// all entities share the macro regressors: shock indicators and controls.
// entityOutcomes maps entity ID to its outcome column. One row per
// (entity, date); entities are emitted in sorted order for determinism.
func BuildEntityRows(table *domain.AlignedTable, entityOutcomes map[string]string, events []domain.ShockEvent, spec domain.ModelSpec) ([]domain.PanelRow, error) {
	if len(entityOutcomes) == 0 {
		return nil, fmt.Errorf("no entities given for panel build")
	}

	entities := make([]string, 0, len(entityOutcomes))
	for entity, column := range entityOutcomes {
		if _, ok := table.Column(column); !ok {
			return nil, fmt.Errorf("entity %s: outcome series %s not in aligned table", entity, column)
		}
		entities = append(entities, entity)
	}
	sort.Strings(entities)

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

	rows := make([]domain.PanelRow, 0, len(entities)*table.Len())
	for _, entity := range entities {
		column := entityOutcomes[entity]
		for i := maxLag; i < table.Len(); i++ {
			outcome, ok := table.Value(column, i)
			if !ok {
				outcome = domain.Missing
			}

			rows = append(rows, domain.PanelRow{
				EntityID:   entity,
				Date:       table.Dates[i],
				Outcome:    outcome,
				Regressors: slotRegressors(table, i, eventAt, spec, column),
			})
		}
	}

	return rows, nil
}
