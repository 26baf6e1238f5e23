package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewWeeks(t *testing.T) {
	weeks := NewWeeks(4)
	require.Len(t, weeks, 4)
	assert.Equal(t, WeekUnlocked, weeks[0].State())
	for i := 1; i < 4; i++ {
		assert.Equal(t, i+1, weeks[i].WeekNumber)
		assert.Equal(t, WeekLocked, weeks[i].State())
	}
	assert.Empty(t, NewWeeks(0))
}

func TestWeeks_Unlock_SingleWindow(t *testing.T) {
	weeks := NewWeeks(5)
	sequence := []int{3, 1, 5, 5, 2, 4}
	for _, n := range sequence {
		require.True(t, weeks.Unlock(n))
		assert.Equal(t, 1, weeks.UnlockedCount(), "after unlocking week %d", n)
		assert.True(t, weeks.Find(n).IsUnlocked)
	}
}

func TestWeeks_Unlock_KeepsOtherCompletion(t *testing.T) {
	weeks := NewWeeks(3)
	weeks[0].IsCompleted = true
	weeks[1].IsCompleted = true

	require.True(t, weeks.Unlock(2))
	assert.True(t, weeks[0].IsCompleted)
	assert.False(t, weeks[0].IsUnlocked)
	assert.Equal(t, WeekCompleted, weeks[0].State())

	assert.True(t, weeks[1].IsUnlocked)
	assert.False(t, weeks[1].IsCompleted)
	assert.Equal(t, WeekUnlocked, weeks[1].State())
}

func TestWeeks_Unlock_UnknownWeek(t *testing.T) {
	weeks := NewWeeks(2)
	assert.False(t, weeks.Unlock(7))
	assert.False(t, weeks.Unlock(0))
	assert.True(t, weeks[0].IsUnlocked)
	assert.Equal(t, 1, weeks.UnlockedCount())
}

func TestAssignment_CloneIsDeep(t *testing.T) {
	template := WorkoutProgram{
		Name: "Base",
		Days: []WorkoutDay{{
			ID:   "d1",
			Name: "Day 1",
			Exercises: []WorkoutExercise{{
				ID:       "e1",
				Exercise: ExerciseRef{Name: "Squat"},
				Sets:     []Set{{ID: "s1", Reps: 5, Weight: 100}},
			}},
		}},
	}
	a := NewAssignment(User{Name: "Alice"}, template, testDate, 3)
	a.Weeks[1].Days = CloneDays(template.Days)

	// the assignment owns its own copy of the template
	template.Days[0].Exercises[0].Sets[0].Reps = 99
	assert.Equal(t, 5, a.Program.Days[0].Exercises[0].Sets[0].Reps)

	c := a.Clone()
	c.Program.Days[0].Exercises[0].Sets[0].Weight = 1
	c.Weeks[0].IsUnlocked = false
	c.Weeks[1].Days[0].Name = "changed"

	assert.Equal(t, 100.0, a.Program.Days[0].Exercises[0].Sets[0].Weight)
	assert.True(t, a.Weeks[0].IsUnlocked)
	assert.Equal(t, "Day 1", a.Weeks[1].Days[0].Name)
	assert.Equal(t, int64(0), a.Version)
	assert.True(t, a.IsActive)
	assert.Equal(t, 1, a.CurrentWeek)
}

func TestAssignment_Supersedes(t *testing.T) {
	older := &ClientWorkoutAssignment{ID: primitive.NewObjectID(), AssignedAt: testDate, Version: 9}
	newer := &ClientWorkoutAssignment{ID: primitive.NewObjectID(), AssignedAt: testDate.Add(time.Hour)}

	assert.True(t, newer.Supersedes(older))
	assert.False(t, older.Supersedes(newer))
	assert.False(t, older.Supersedes(older))
	assert.False(t, newer.Supersedes(nil))

	// same timestamp: the later id wins
	tied := &ClientWorkoutAssignment{ID: primitive.NewObjectID(), AssignedAt: testDate}
	assert.True(t, tied.Supersedes(older))
	assert.False(t, older.Supersedes(tied))

	// an earlier id with a later timestamp still wins
	older.AssignedAt = testDate.Add(2 * time.Hour)
	assert.True(t, older.Supersedes(tied))
}
