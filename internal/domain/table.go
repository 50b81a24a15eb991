package domain

import (
	"math"
	"sort"
	"time"
)

// Missing marks an absent observation in an aligned column.
var Missing = math.NaN()

// IsMissing reports whether v marks a missing observation.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// AlignedTable is the aligner's output: every column shares one target
// calendar. Missing slots hold NaN and propagate as missing downstream.
// Immutable after alignment.
type AlignedTable struct {
	Frequency Frequency
	Dates     []time.Time          // target calendar, strictly increasing
	Columns   map[string][]float64 // series ID -> values, len == len(Dates)
}

// Index returns the calendar position of date, or false if date is not a slot.
func (t *AlignedTable) Index(date time.Time) (int, bool) {
	i := sort.Search(len(t.Dates), func(i int) bool { return !t.Dates[i].Before(date) })
	if i < len(t.Dates) && t.Dates[i].Equal(date) {
		return i, true
	}
	return 0, false
}

// Value returns the value of a column at calendar position i.
// ok is false when the column does not exist or the slot is missing.
func (t *AlignedTable) Value(series string, i int) (float64, bool) {
	col, exists := t.Columns[series]
	if !exists || i < 0 || i >= len(col) {
		return 0, false
	}
	if IsMissing(col[i]) {
		return 0, false
	}
	return col[i], true
}

// Column returns the full value slice for a series.
func (t *AlignedTable) Column(series string) ([]float64, bool) {
	col, ok := t.Columns[series]
	return col, ok
}

// Len returns the number of calendar slots.
func (t *AlignedTable) Len() int { return len(t.Dates) }
