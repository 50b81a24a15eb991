package align

import "fmt"

// AlignmentError reports a series that cannot be aligned or filled.
// Carries enough context to diagnose without re-running.
type AlignmentError struct {
	SeriesID     string
	Observations int    // non-missing observations seen
	Reason       string // human-readable cause
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("align series %s (%d observations): %s", e.SeriesID, e.Observations, e.Reason)
}
