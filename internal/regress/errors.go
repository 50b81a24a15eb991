package regress

import (
	"fmt"
	"strings"
)

// EstimationError reports a degenerate regression design. Fatal for the fit:
// columns are never silently dropped, the offending ones are named instead.
type EstimationError struct {
	Reason  string
	Columns []string // regressors involved in the degeneracy
	Rows    int      // rows available after complete-case filtering
	Rank    int      // numerical rank of the design matrix
}

func (e *EstimationError) Error() string {
	msg := fmt.Sprintf("estimation failed: %s (rows=%d, rank=%d)", e.Reason, e.Rows, e.Rank)
	if len(e.Columns) > 0 {
		msg += fmt.Sprintf(", columns: %s", strings.Join(e.Columns, ", "))
	}
	return msg
}
