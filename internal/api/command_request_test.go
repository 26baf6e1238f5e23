package api

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/progression"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRequest_Command(t *testing.T) {
	tests := []struct {
		body string
		want progression.Command
	}{
		{`{"type":"adjust_reps","dayIndex":1,"exerciseId":"e","setId":"s","delta":-2}`, progression.AdjustReps{DayIndex: 1, ExerciseID: "e", SetID: "s", Delta: -2}},
		{`{"type":"adjust_weight","exerciseId":"e","setId":"s","delta":2.5}`, progression.AdjustWeight{ExerciseID: "e", SetID: "s", Delta: 2.5}},
		{`{"type":"add_set","exerciseId":"e"}`, progression.AddSet{ExerciseID: "e"}},
		{`{"type":"remove_set","exerciseId":"e","setId":"s"}`, progression.RemoveSet{ExerciseID: "e", SetID: "s"}},
		{`{"type":"replace_exercise","exerciseId":"e","newExercise":{"name":"Lunge"}}`, progression.ReplaceExercise{ExerciseID: "e", NewExercise: domain.ExerciseRef{Name: "Lunge"}}},
		{`{"type":"unlock_week","weekNumber":3}`, progression.UnlockWeek{WeekNumber: 3}},
		{`{"type":"clear_override","weekNumber":3}`, progression.ClearOverride{WeekNumber: 3}},
		{`{"type":"update_notes","exerciseId":"e","notes":"slow eccentric"}`, progression.UpdateExerciseNotes{ExerciseID: "e", Notes: "slow eccentric"}},
		{`{"type":"toggle_set","exerciseId":"e","setId":"s"}`, progression.ToggleSetCompleted{ExerciseID: "e", SetID: "s"}},
		{`{"type":"record_set","exerciseId":"e","setId":"s","reps":8,"weight":40}`, progression.RecordSet{ExerciseID: "e", SetID: "s", Reps: 8, Weight: 40}},
		{`{"type":"complete_week","weekNumber":1}`, progression.CompleteWeek{WeekNumber: 1}},
		{`{"type":"set_current_day","dayIndex":2}`, progression.SetCurrentDay{DayIndex: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.want.Name(), func(t *testing.T) {
			var req CommandRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			cmd, err := req.Command()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestCommandRequest_SetOverride(t *testing.T) {
	req := CommandRequest{
		Type:       "set_override",
		WeekNumber: 2,
		Days:       []domain.WorkoutDay{{ID: "d1", Name: "Deload"}},
	}
	cmd, err := req.Command()
	require.NoError(t, err)
	assert.Equal(t, progression.SetOverride{WeekNumber: 2, Days: req.Days}, cmd)
}

func TestCommandRequest_Invalid(t *testing.T) {
	for _, req := range []CommandRequest{
		{Type: "teleport"},
		{Type: "adjust_reps", Delta: 1.5},
		{Type: "adjust_reps", Delta: 1e300},
		{Type: "adjust_weight", Delta: -5000},
		{Type: "replace_exercise"},
		{Type: "replace_exercise", NewExercise: &domain.ExerciseRef{}},
		{Type: "set_override", WeekNumber: 2},
	} {
		_, err := req.Command()
		assert.Error(t, err, req.Type)
	}
}

func TestAllowedFor(t *testing.T) {
	assert.True(t, allowedFor(domain.RoleCoach, progression.UnlockWeek{}))
	assert.True(t, allowedFor(domain.RoleCoach, progression.RecordSet{}))
	assert.True(t, allowedFor(domain.RoleClient, progression.RecordSet{}))
	assert.True(t, allowedFor(domain.RoleClient, progression.CompleteWeek{}))
	assert.False(t, allowedFor(domain.RoleClient, progression.AdjustWeight{}))
	assert.False(t, allowedFor(domain.RoleClient, progression.SetOverride{}))
}
