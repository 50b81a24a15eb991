package domain

import "time"

// AnchorDate is one announcement date on a policy calendar.
// Corresponds to the anchor_dates table in PostgreSQL.
type AnchorDate struct {
	Calendar string    // calendar name, e.g. "FOMC"
	Date     time.Time // announcement date, UTC midnight
	Note     string    // optional annotation, e.g. "unscheduled meeting"
}
