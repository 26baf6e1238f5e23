package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Set is one prescribed (or performed) set of an exercise.
type Set struct {
	ID        string  `bson:"id" json:"id"`
	Reps      int     `bson:"reps" json:"reps"`
	Weight    float64 `bson:"weight" json:"weight"`
	Completed bool    `bson:"completed" json:"completed"`
}

// ExerciseRef is the copy of a catalog Exercise embedded in a program.
// MuscleGroup is only a display cache; volume always re-resolves it against the catalog.
type ExerciseRef struct {
	ID          primitive.ObjectID `bson:"id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	MuscleGroup string             `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"`
}

// RefFromExercise builds the embedded reference for a catalog entry.
func RefFromExercise(ex Exercise) ExerciseRef {
	return ExerciseRef{ID: ex.ID, Name: ex.Name, MuscleGroup: ex.MuscleGroup}
}

// WorkoutExercise places an exercise inside a WorkoutDay.
type WorkoutExercise struct {
	ID       string      `bson:"id" json:"id"`
	Exercise ExerciseRef `bson:"exercise" json:"exercise"`
	Sets     []Set       `bson:"sets" json:"sets"`
	Rest     string      `bson:"rest,omitempty" json:"rest,omitempty"` // display only, e.g. "90s"
	Notes    string      `bson:"notes,omitempty" json:"notes,omitempty"`
	Order    int         `bson:"order" json:"order"`
}

// WorkoutDay is one day of the weekly template.
type WorkoutDay struct {
	ID        string            `bson:"id" json:"id"`
	Name      string            `bson:"name" json:"name"` // e.g., "Day 1: Upper Body"
	Exercises []WorkoutExercise `bson:"exercises" json:"exercises"`
}

// WorkoutProgram is the weekly template. Stored on its own it is a reusable
// template; embedded in an assignment it is that client's private copy.
type WorkoutProgram struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Days        []WorkoutDay       `bson:"days" json:"days"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy of the program.
func (p WorkoutProgram) Clone() WorkoutProgram {
	p.Days = CloneDays(p.Days)
	return p
}

// CloneDays deep-copies a day list. A nil list stays nil.
func CloneDays(days []WorkoutDay) []WorkoutDay {
	if days == nil {
		return nil
	}
	out := make([]WorkoutDay, len(days))
	for i, d := range days {
		out[i] = d.Clone()
	}
	return out
}

// Clone returns a deep copy of the day.
func (d WorkoutDay) Clone() WorkoutDay {
	if d.Exercises != nil {
		exercises := make([]WorkoutExercise, len(d.Exercises))
		for i, ex := range d.Exercises {
			exercises[i] = ex.Clone()
		}
		d.Exercises = exercises
	}
	return d
}

// Clone returns a deep copy of the exercise entry.
func (e WorkoutExercise) Clone() WorkoutExercise {
	if e.Sets != nil {
		sets := make([]Set, len(e.Sets))
		copy(sets, e.Sets)
		e.Sets = sets
	}
	return e
}

// Day returns a pointer into p.Days, or nil when index is out of range.
func (p *WorkoutProgram) Day(index int) *WorkoutDay {
	if index < 0 || index >= len(p.Days) {
		return nil
	}
	return &p.Days[index]
}

// Exercise returns the exercise entry with the given id, or nil.
func (d *WorkoutDay) Exercise(id string) *WorkoutExercise {
	for i := range d.Exercises {
		if d.Exercises[i].ID == id {
			return &d.Exercises[i]
		}
	}
	return nil
}

// SetIndex returns the position of the set with the given id, or -1.
func (e *WorkoutExercise) SetIndex(id string) int {
	for i := range e.Sets {
		if e.Sets[i].ID == id {
			return i
		}
	}
	return -1
}
