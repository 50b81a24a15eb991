package domain

import (
	"fmt"
	"time"
)

// Observation is a single (series, date, value) record.
// Corresponds to the series_observations table in ClickHouse.
type Observation struct {
	SeriesID string    // series code, e.g. "DFF", "SP500", "AAPL_CAPEX"
	Date     time.Time // observation date, UTC midnight
	Value    float64   // observed value
}

// Point is one dated value inside a TimeSeries.
type Point struct {
	Date  time.Time
	Value float64
}

// TimeSeries is an ordered sequence of observations for one named variable.
// Dates must be strictly increasing; Validate enforces the invariant.
// Mutated only by loaders and the aligner; immutable downstream.
type TimeSeries struct {
	ID        string    // series code
	Frequency Frequency // native observation frequency
	Points    []Point   // ordered by date ASC
}

// Validate checks the strictly-increasing-dates invariant.
func (ts *TimeSeries) Validate() error {
	if ts.ID == "" {
		return fmt.Errorf("time series has empty ID")
	}
	if !ts.Frequency.Valid() {
		return fmt.Errorf("series %s: invalid frequency %q", ts.ID, ts.Frequency)
	}
	for i := 1; i < len(ts.Points); i++ {
		if !ts.Points[i].Date.After(ts.Points[i-1].Date) {
			return fmt.Errorf("series %s: dates not strictly increasing at index %d (%s then %s)",
				ts.ID, i, ts.Points[i-1].Date.Format("2006-01-02"), ts.Points[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// SeriesFromObservations groups flat observations into a TimeSeries.
// Observations must be pre-sorted by date ASC for the given series.
func SeriesFromObservations(id string, freq Frequency, obs []*Observation) *TimeSeries {
	ts := &TimeSeries{ID: id, Frequency: freq, Points: make([]Point, 0, len(obs))}
	for _, o := range obs {
		if o.SeriesID != id {
			continue
		}
		ts.Points = append(ts.Points, Point{Date: o.Date, Value: o.Value})
	}
	return ts
}
