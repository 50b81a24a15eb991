package simulate

import "fmt"

// SpecificationMismatchError reports a scenario or model that does not match
// the specification the model was fitted with. Always a caller bug: the
// simulator fails fast instead of projecting from the wrong design.
type SpecificationMismatchError struct {
	Field string // what disagrees, e.g. "frequency", "coefficients"
	Want  string
	Got   string
}

func (e *SpecificationMismatchError) Error() string {
	return fmt.Sprintf("specification mismatch on %s: model expects %s, got %s", e.Field, e.Want, e.Got)
}
