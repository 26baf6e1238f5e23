package progression

import (
	"testing"

	"alcyxob/coach-progression/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultNewID = newID

func TestGenerateWeekProgression_Formula(t *testing.T) {
	a := newTestAssignment(6)
	for week := 1; week <= 6; week++ {
		days := GenerateWeekProgression(a, week)
		require.Len(t, days, 2)
		set := days[0].Exercises[0].Sets[0]
		assert.Equal(t, 8+(week-1)*2, set.Reps, "week %d reps", week)
		assert.Equal(t, 50+float64(week-1)*2.5, set.Weight, "week %d weight", week)
	}
}

func TestGenerateWeekProgression_WeekThree(t *testing.T) {
	a := newTestAssignment(4)
	days := GenerateWeekProgression(a, 3)
	set := days[0].Exercises[0].Sets[0]
	assert.Equal(t, 12, set.Reps)
	assert.Equal(t, 55.0, set.Weight)
}

func TestGenerateWeekProgression_WeekOneIsTemplate(t *testing.T) {
	a := newTestAssignment(2)
	days := GenerateWeekProgression(a, 1)
	assert.Equal(t, a.Program.Days, days)

	days[0].Exercises[0].Sets[0].Reps = 100
	assert.Equal(t, 8, a.Program.Days[0].Exercises[0].Sets[0].Reps)
}

func TestGenerateWeekProgression_BodyweightStaysZero(t *testing.T) {
	a := newTestAssignment(2)
	days := GenerateWeekProgression(a, 2)
	set := days[1].Exercises[0].Sets[0]
	assert.Equal(t, 12, set.Reps)
	assert.Equal(t, 0.0, set.Weight)
}

func TestGenerateWeekProgression_OverrideUsedVerbatim(t *testing.T) {
	a := newTestAssignment(3)
	override := []domain.WorkoutDay{{
		ID: "deload",
		Exercises: []domain.WorkoutExercise{{
			ID:       "ex-squat",
			Exercise: domain.ExerciseRef{Name: "Squat"},
			Sets:     []domain.Set{{ID: "d1", Reps: 5, Weight: 40}},
		}},
	}}
	a.Weeks[2].Days = override

	days := GenerateWeekProgression(a, 3)
	assert.Equal(t, override, days)

	// week 2 has no override and still progresses
	days = GenerateWeekProgression(a, 2)
	assert.Equal(t, 10, days[0].Exercises[0].Sets[0].Reps)
}

func TestGenerateWeekProgression_NilAssignment(t *testing.T) {
	assert.Nil(t, GenerateWeekProgression(nil, 1))
}
