package domain

import "time"

// MarketEntityID is the entity used for single-entity (time series) estimation.
const MarketEntityID = "market"

// PanelRow is one (entity, date) observation in a regression panel.
// Invariant: one row per (entity, date); the outcome is never NaN in rows
// that reach the estimator (complete-case filtering drops the rest).
type PanelRow struct {
	EntityID   string             // ticker, or MarketEntityID for market-level fits
	Date       time.Time          // observation date
	Outcome    float64            // e.g. return or capex growth
	Regressors map[string]float64 // regressor name -> value
}
