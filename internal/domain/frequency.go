package domain

import (
	"fmt"
	"time"
)

// Frequency is the observation frequency of a time series or calendar.
type Frequency string

// Supported frequencies, ordered from finest to coarsest.
const (
	FrequencyDaily     Frequency = "daily"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// frequencyRank orders frequencies by fineness (lower = finer).
var frequencyRank = map[Frequency]int{
	FrequencyDaily:     0,
	FrequencyMonthly:   1,
	FrequencyQuarterly: 2,
}

// ParseFrequency converts a string into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if _, ok := frequencyRank[f]; !ok {
		return "", fmt.Errorf("unknown frequency %q (want daily, monthly, or quarterly)", s)
	}
	return f, nil
}

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	_, ok := frequencyRank[f]
	return ok
}

// FinerThan reports whether f has more observations per year than other.
func (f Frequency) FinerThan(other Frequency) bool {
	return frequencyRank[f] < frequencyRank[other]
}

// Next returns the following calendar slot after d.
// Daily slots are calendar days; monthly and quarterly slots are period-end dates.
func (f Frequency) Next(d time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return d.AddDate(0, 0, 1)
	case FrequencyMonthly:
		return endOfMonth(d.AddDate(0, 0, 1))
	case FrequencyQuarterly:
		return endOfQuarter(d.AddDate(0, 0, 1))
	default:
		return d.AddDate(0, 0, 1)
	}
}

// Truncate maps d onto its calendar slot: the day itself for daily,
// otherwise the containing period's end date.
func (f Frequency) Truncate(d time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return Date(d.Year(), d.Month(), d.Day())
	case FrequencyMonthly:
		return endOfMonth(d)
	case FrequencyQuarterly:
		return endOfQuarter(d)
	default:
		return Date(d.Year(), d.Month(), d.Day())
	}
}

// Date builds a UTC-midnight date. All dates in the core are normalized this way.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func endOfMonth(d time.Time) time.Time {
	return Date(d.Year(), d.Month(), 1).AddDate(0, 1, -1)
}

func endOfQuarter(d time.Time) time.Time {
	q := (int(d.Month()) - 1) / 3
	firstOfQuarter := Date(d.Year(), time.Month(q*3+1), 1)
	return firstOfQuarter.AddDate(0, 3, -1)
}
