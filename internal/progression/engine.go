package progression

import "alcyxob/coach-progression/internal/domain"

// Apply runs cmd against a deep copy of a and returns the copy together with
// whether the command changed anything. The input is never modified.
// Version stamping is left to the store; Apply does not touch Version,
// LastModifiedBy or LastModifiedAt.
func Apply(a *domain.ClientWorkoutAssignment, cmd Command) (*domain.ClientWorkoutAssignment, bool) {
	if a == nil {
		return nil, false
	}
	next := a.Clone()
	if cmd == nil {
		return next, false
	}
	if !cmd.apply(next) {
		return a.Clone(), false
	}
	return next, true
}
