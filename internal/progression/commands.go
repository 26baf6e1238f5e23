package progression

import (
	"alcyxob/coach-progression/internal/domain"

	"github.com/google/uuid"
)

// DefaultSet is appended by AddSet when the exercise has no set to clone.
var DefaultSet = domain.Set{Reps: 10, Weight: 0}

// newID generates ids for sets created by the engine.
var newID = uuid.NewString

// Command is one edit of an assignment. Commands never fail: a target that
// does not exist leaves the assignment unchanged.
type Command interface {
	// Name identifies the command in logs and metrics.
	Name() string
	// apply mutates a in place and reports whether anything changed.
	apply(a *domain.ClientWorkoutAssignment) bool
}

// target locates an exercise entry inside the live day template.
type target struct {
	DayIndex   int
	ExerciseID string
}

func (t target) exercise(a *domain.ClientWorkoutAssignment) *domain.WorkoutExercise {
	day := a.Program.Day(t.DayIndex)
	if day == nil {
		return nil
	}
	return day.Exercise(t.ExerciseID)
}

func (t target) set(a *domain.ClientWorkoutAssignment, setID string) *domain.Set {
	ex := t.exercise(a)
	if ex == nil {
		return nil
	}
	i := ex.SetIndex(setID)
	if i < 0 {
		return nil
	}
	return &ex.Sets[i]
}

// === Coach prescription commands ===

// AdjustReps changes a set's reps by Delta, never going below one rep.
type AdjustReps struct {
	DayIndex   int
	ExerciseID string
	SetID      string
	Delta      int
}

func (AdjustReps) Name() string { return "adjust_reps" }

func (c AdjustReps) apply(a *domain.ClientWorkoutAssignment) bool {
	s := target{c.DayIndex, c.ExerciseID}.set(a, c.SetID)
	if s == nil {
		return false
	}
	reps := max(1, s.Reps+c.Delta)
	if reps == s.Reps {
		return false
	}
	s.Reps = reps
	return true
}

// AdjustWeight changes a set's weight by Delta, never going below zero.
type AdjustWeight struct {
	DayIndex   int
	ExerciseID string
	SetID      string
	Delta      float64
}

func (AdjustWeight) Name() string { return "adjust_weight" }

func (c AdjustWeight) apply(a *domain.ClientWorkoutAssignment) bool {
	s := target{c.DayIndex, c.ExerciseID}.set(a, c.SetID)
	if s == nil {
		return false
	}
	weight := max(0, s.Weight+c.Delta)
	if weight == s.Weight {
		return false
	}
	s.Weight = weight
	return true
}

// AddSet appends a copy of the exercise's last set.
type AddSet struct {
	DayIndex   int
	ExerciseID string
}

func (AddSet) Name() string { return "add_set" }

func (c AddSet) apply(a *domain.ClientWorkoutAssignment) bool {
	ex := target{c.DayIndex, c.ExerciseID}.exercise(a)
	if ex == nil {
		return false
	}
	next := DefaultSet
	if n := len(ex.Sets); n > 0 {
		last := ex.Sets[n-1]
		next.Reps = last.Reps
		next.Weight = last.Weight
	}
	next.ID = newID()
	next.Completed = false
	ex.Sets = append(ex.Sets, next)
	return true
}

// RemoveSet deletes a set by id. The last remaining set may be removed too.
type RemoveSet struct {
	DayIndex   int
	ExerciseID string
	SetID      string
}

func (RemoveSet) Name() string { return "remove_set" }

func (c RemoveSet) apply(a *domain.ClientWorkoutAssignment) bool {
	ex := target{c.DayIndex, c.ExerciseID}.exercise(a)
	if ex == nil {
		return false
	}
	i := ex.SetIndex(c.SetID)
	if i < 0 {
		return false
	}
	ex.Sets = append(ex.Sets[:i], ex.Sets[i+1:]...)
	return true
}

// ReplaceExercise swaps the catalog exercise of an entry, keeping its sets, rest and notes.
type ReplaceExercise struct {
	DayIndex    int
	ExerciseID  string
	NewExercise domain.ExerciseRef
}

func (ReplaceExercise) Name() string { return "replace_exercise" }

func (c ReplaceExercise) apply(a *domain.ClientWorkoutAssignment) bool {
	ex := target{c.DayIndex, c.ExerciseID}.exercise(a)
	if ex == nil || c.NewExercise.Name == "" {
		return false
	}
	if ex.Exercise == c.NewExercise {
		return false
	}
	ex.Exercise = c.NewExercise
	return true
}

// UnlockWeek opens one week and locks all the others.
type UnlockWeek struct {
	WeekNumber int
}

func (UnlockWeek) Name() string { return "unlock_week" }

func (c UnlockWeek) apply(a *domain.ClientWorkoutAssignment) bool {
	if !a.Weeks.Unlock(c.WeekNumber) {
		return false
	}
	a.CurrentWeek = c.WeekNumber
	return true
}

// SetOverride stores a week-specific day list used verbatim for that week.
type SetOverride struct {
	WeekNumber int
	Days       []domain.WorkoutDay
}

func (SetOverride) Name() string { return "set_override" }

func (c SetOverride) apply(a *domain.ClientWorkoutAssignment) bool {
	w := a.Weeks.Find(c.WeekNumber)
	if w == nil || len(c.Days) == 0 {
		return false
	}
	w.Days = domain.CloneDays(c.Days)
	return true
}

// ClearOverride drops a week-specific day list, returning the week to the computed progression.
type ClearOverride struct {
	WeekNumber int
}

func (ClearOverride) Name() string { return "clear_override" }

func (c ClearOverride) apply(a *domain.ClientWorkoutAssignment) bool {
	w := a.Weeks.Find(c.WeekNumber)
	if w == nil || !w.HasOverride() {
		return false
	}
	w.Days = nil
	return true
}

// UpdateExerciseNotes replaces the free-text notes of an entry.
type UpdateExerciseNotes struct {
	DayIndex   int
	ExerciseID string
	Notes      string
}

func (UpdateExerciseNotes) Name() string { return "update_notes" }

func (c UpdateExerciseNotes) apply(a *domain.ClientWorkoutAssignment) bool {
	ex := target{c.DayIndex, c.ExerciseID}.exercise(a)
	if ex == nil || ex.Notes == c.Notes {
		return false
	}
	ex.Notes = c.Notes
	return true
}

// === Client performance commands ===

// ToggleSetCompleted flips the completed flag of a set.
type ToggleSetCompleted struct {
	DayIndex   int
	ExerciseID string
	SetID      string
}

func (ToggleSetCompleted) Name() string { return "toggle_set" }

func (c ToggleSetCompleted) apply(a *domain.ClientWorkoutAssignment) bool {
	s := target{c.DayIndex, c.ExerciseID}.set(a, c.SetID)
	if s == nil {
		return false
	}
	s.Completed = !s.Completed
	return true
}

// RecordSet stores what the client actually performed and marks the set done.
type RecordSet struct {
	DayIndex   int
	ExerciseID string
	SetID      string
	Reps       int
	Weight     float64
}

func (RecordSet) Name() string { return "record_set" }

func (c RecordSet) apply(a *domain.ClientWorkoutAssignment) bool {
	s := target{c.DayIndex, c.ExerciseID}.set(a, c.SetID)
	if s == nil {
		return false
	}
	next := domain.Set{ID: s.ID, Reps: max(0, c.Reps), Weight: max(0, c.Weight), Completed: true}
	if next == *s {
		return false
	}
	*s = next
	return true
}

// CompleteWeek marks a week as completed without touching the unlock window.
type CompleteWeek struct {
	WeekNumber int
}

func (CompleteWeek) Name() string { return "complete_week" }

func (c CompleteWeek) apply(a *domain.ClientWorkoutAssignment) bool {
	w := a.Weeks.Find(c.WeekNumber)
	if w == nil || w.IsCompleted {
		return false
	}
	w.IsCompleted = true
	return true
}

// SetCurrentDay moves the day cursor. The index is not bounds-checked.
type SetCurrentDay struct {
	DayIndex int
}

func (SetCurrentDay) Name() string { return "set_current_day" }

func (c SetCurrentDay) apply(a *domain.ClientWorkoutAssignment) bool {
	if a.CurrentDay == c.DayIndex {
		return false
	}
	a.CurrentDay = c.DayIndex
	return true
}
