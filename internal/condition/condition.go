// Package condition defines the canonical task condition ratings and the
// free-text parser that turns one inspector message into structured
// per-task condition assignments.
package condition

// Condition is a task condition rating. The five values are closed; anything
// else is a typo and must be rejected at the boundary.
type Condition string

const (
	Good           Condition = "GOOD"
	Fair           Condition = "FAIR"
	Unsatisfactory Condition = "UNSATISFACTORY"
	UnObservable   Condition = "UN_OBSERVABLE"
	NotApplicable  Condition = "NOT_APPLICABLE"
)

// All returns the canonical conditions in ordinal order (1..5).
func All() []Condition {
	return []Condition{Good, Fair, Unsatisfactory, UnObservable, NotApplicable}
}

// Valid reports whether c is one of the five canonical conditions.
func (c Condition) Valid() bool {
	switch c {
	case Good, Fair, Unsatisfactory, UnObservable, NotApplicable:
		return true
	}
	return false
}

// FromOrdinal maps 1..5 to a condition in canonical order.
func FromOrdinal(n int) (Condition, bool) {
	all := All()
	if n < 1 || n > len(all) {
		return "", false
	}
	return all[n-1], true
}

// RequiresCauseResolution reports whether a task rated c needs a non-empty
// cause and resolution before its run can be finalized.
func RequiresCauseResolution(c Condition) bool {
	return c == Fair || c == Unsatisfactory
}

// RequiresMedia reports whether a task rated c needs at least one attached
// media item before finalization. Only NOT_APPLICABLE is exempt.
func RequiresMedia(c Condition) bool {
	return c != NotApplicable
}
