package domain

// WeekState is the derived state of a Week.
type WeekState string

const (
	WeekLocked    WeekState = "locked"
	WeekUnlocked  WeekState = "unlocked"
	WeekCompleted WeekState = "completed"
)

// Week is one entry of an assignment's week ledger.
// Days, when set, is a week-specific override of the day template and is
// used verbatim instead of the computed progression.
type Week struct {
	WeekNumber       int          `bson:"weekNumber" json:"weekNumber"`
	IsUnlocked       bool         `bson:"isUnlocked" json:"isUnlocked"`
	IsCompleted      bool         `bson:"isCompleted" json:"isCompleted"`
	ProgressionNotes string       `bson:"progressionNotes,omitempty" json:"progressionNotes,omitempty"`
	Days             []WorkoutDay `bson:"days,omitempty" json:"days,omitempty"`
}

// State reports the week's tagged state. Completion wins over unlock.
func (w Week) State() WeekState {
	switch {
	case w.IsCompleted:
		return WeekCompleted
	case w.IsUnlocked:
		return WeekUnlocked
	default:
		return WeekLocked
	}
}

// HasOverride reports whether the coach stored a week-specific day list.
func (w Week) HasOverride() bool {
	return len(w.Days) > 0
}

// Weeks is the ledger of an assignment. Unlock is the only code path that
// sets IsUnlocked, so at most one week is ever unlocked.
type Weeks []Week

// NewWeeks builds the initial ledger: week 1 unlocked, the rest locked.
func NewWeeks(duration int) Weeks {
	if duration < 1 {
		return Weeks{}
	}
	weeks := make(Weeks, duration)
	for i := range weeks {
		weeks[i] = Week{WeekNumber: i + 1, IsUnlocked: i == 0}
	}
	return weeks
}

// Clone returns a deep copy of the ledger.
func (ws Weeks) Clone() Weeks {
	if ws == nil {
		return nil
	}
	out := make(Weeks, len(ws))
	for i, w := range ws {
		w.Days = CloneDays(w.Days)
		out[i] = w
	}
	return out
}

// Find returns a pointer to the week with the given number, or nil.
func (ws Weeks) Find(weekNumber int) *Week {
	for i := range ws {
		if ws[i].WeekNumber == weekNumber {
			return &ws[i]
		}
	}
	return nil
}

// Unlock opens weekNumber and locks every other week. The target's
// completion flag is cleared; other weeks keep theirs.
// It returns false, leaving the ledger untouched, when the week does not exist.
func (ws Weeks) Unlock(weekNumber int) bool {
	if ws.Find(weekNumber) == nil {
		return false
	}
	for i := range ws {
		if ws[i].WeekNumber == weekNumber {
			ws[i].IsUnlocked = true
			ws[i].IsCompleted = false
			continue
		}
		ws[i].IsUnlocked = false
	}
	return true
}

// UnlockedCount returns how many weeks are currently unlocked.
func (ws Weeks) UnlockedCount() int {
	n := 0
	for _, w := range ws {
		if w.IsUnlocked {
			n++
		}
	}
	return n
}
