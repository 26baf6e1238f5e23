package api

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/progression"
	"fmt"
	"math"
)

// CommandRequest is the JSON form of every assignment command, e.g.
//
//	{"type": "adjust_reps", "dayIndex": 0, "exerciseId": "...", "setId": "...", "delta": 2}
//
// Only the fields of the named type are read.
type CommandRequest struct {
	Type        string              `json:"type" binding:"required"`
	DayIndex    int                 `json:"dayIndex"`
	ExerciseID  string              `json:"exerciseId"`
	SetID       string              `json:"setId"`
	Delta       float64             `json:"delta" binding:"min=-1000,max=1000"`
	Reps        int                 `json:"reps" binding:"max=10000"`
	Weight      float64             `json:"weight" binding:"max=10000"`
	WeekNumber  int                 `json:"weekNumber"`
	Notes       string              `json:"notes"`
	NewExercise *domain.ExerciseRef `json:"newExercise,omitempty"`
	Days        []domain.WorkoutDay `json:"days,omitempty"`
}

// maxDelta bounds adjust deltas so they convert to int without overflow.
const maxDelta = 1000

// clientCommands are the commands a share-link session may issue.
// The coach session may issue every command.
var clientCommands = map[string]bool{
	progression.ToggleSetCompleted{}.Name():  true,
	progression.RecordSet{}.Name():           true,
	progression.CompleteWeek{}.Name():        true,
	progression.SetCurrentDay{}.Name():       true,
	progression.UpdateExerciseNotes{}.Name(): true,
}

func allowedFor(role domain.Role, cmd progression.Command) bool {
	return role == domain.RoleCoach || clientCommands[cmd.Name()]
}

// Command converts the request into an engine command.
func (r CommandRequest) Command() (progression.Command, error) {
	if math.IsNaN(r.Delta) || math.Abs(r.Delta) > maxDelta {
		return nil, fmt.Errorf("delta must be between -%d and %d", maxDelta, maxDelta)
	}
	switch r.Type {
	case progression.AdjustReps{}.Name():
		if r.Delta != math.Trunc(r.Delta) {
			return nil, fmt.Errorf("delta of %s must be a whole number", r.Type)
		}
		return progression.AdjustReps{DayIndex: r.DayIndex, ExerciseID: r.ExerciseID, SetID: r.SetID, Delta: int(r.Delta)}, nil
	case progression.AdjustWeight{}.Name():
		return progression.AdjustWeight{DayIndex: r.DayIndex, ExerciseID: r.ExerciseID, SetID: r.SetID, Delta: r.Delta}, nil
	case progression.AddSet{}.Name():
		return progression.AddSet{DayIndex: r.DayIndex, ExerciseID: r.ExerciseID}, nil
	case progression.RemoveSet{}.Name():
		return progression.RemoveSet{DayIndex: r.DayIndex, ExerciseID: r.ExerciseID, SetID: r.SetID}, nil
	case progression.ReplaceExercise{}.Name():
		if r.NewExercise == nil || r.NewExercise.Name == "" {
			return nil, fmt.Errorf("%s requires newExercise.name", r.Type)
		}
		return progression.ReplaceExercise{DayIndex: r.DayIndex, ExerciseID: r.ExerciseID, NewExercise: *r.NewExercise}, nil
	case progression.UnlockWeek{}.Name():
		return progression.UnlockWeek{WeekNumber: r.WeekNumber}, nil
	case progression.SetOverride{}.Name():
		if len(r.Days) == 0 {
			return nil, fmt.Errorf("%s requires days", r.Type)
		}
		return progression.SetOverride{WeekNumber: r.WeekNumber, Days: r.Days}, nil
	case progression.ClearOverride{}.Name():
		return progression.ClearOverride{WeekNumber: r.WeekNumber}, nil
	case progression.UpdateExerciseNotes{}.Name():
		return progression.UpdateExerciseNotes{DayIndex: r.DayIndex, ExerciseID: r.ExerciseID, Notes: r.Notes}, nil
	case progression.ToggleSetCompleted{}.Name():
		return progression.ToggleSetCompleted{DayIndex: r.DayIndex, ExerciseID: r.ExerciseID, SetID: r.SetID}, nil
	case progression.RecordSet{}.Name():
		return progression.RecordSet{DayIndex: r.DayIndex, ExerciseID: r.ExerciseID, SetID: r.SetID, Reps: r.Reps, Weight: r.Weight}, nil
	case progression.CompleteWeek{}.Name():
		return progression.CompleteWeek{WeekNumber: r.WeekNumber}, nil
	case progression.SetCurrentDay{}.Name():
		return progression.SetCurrentDay{DayIndex: r.DayIndex}, nil
	}
	return nil, fmt.Errorf("unknown command type %q", r.Type)
}
