package domain

import "time"

// ShockClass tags a classified policy-rate change.
type ShockClass string

// Shock classes.
const (
	ShockHike    ShockClass = "HIKE"
	ShockCut     ShockClass = "CUT"
	ShockNoShock ShockClass = "NO_SHOCK"
)

// ClassifyDelta applies the inclusive-boundary rule:
// Hike iff delta >= +threshold, Cut iff delta <= -threshold, else NoShock.
// A delta landing exactly on the threshold is a shock, never NoShock.
func ClassifyDelta(delta, threshold float64) ShockClass {
	switch {
	case delta >= threshold:
		return ShockHike
	case delta <= -threshold:
		return ShockCut
	default:
		return ShockNoShock
	}
}

// ShockEvent is a classified discrete change in a policy rate at an anchor date.
// Immutable once created. Corresponds to the shock_events table in Postgres.
type ShockEvent struct {
	SeriesID   string     // policy-rate series the event was derived from
	Date       time.Time  // anchor (announcement) date
	RateBefore float64    // rate one period before the anchor
	RateAfter  float64    // rate at the anchor
	Delta      float64    // RateAfter - RateBefore
	Class      ShockClass // HIKE, CUT, or NO_SHOCK
}
