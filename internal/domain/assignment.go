package domain

import (
	"bytes"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientWorkoutAssignment is a client's live copy of a workout program,
// including the week ledger and the optimistic-concurrency version.
type ClientWorkoutAssignment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID   primitive.ObjectID `bson:"clientId" json:"clientId"`
	ClientName string             `bson:"clientName" json:"clientName"`

	// Program is owned by value so edits never leak across clients.
	Program WorkoutProgram `bson:"program" json:"program"`

	StartDate   time.Time `bson:"startDate" json:"startDate"`
	Duration    int       `bson:"duration" json:"duration"` // weeks
	CurrentWeek int       `bson:"currentWeek" json:"currentWeek"`
	CurrentDay  int       `bson:"currentDay" json:"currentDay"` // index into Program.Days
	Weeks       Weeks     `bson:"weeks" json:"weeks"`

	// ProgressionRules is carried for the UI and never interpreted here.
	ProgressionRules bson.M `bson:"progressionRules,omitempty" json:"progressionRules,omitempty"`

	// AssignedAt orders a client's successive assignments.
	AssignedAt     time.Time `bson:"assignedAt" json:"assignedAt"`
	IsActive       bool      `bson:"isActive" json:"isActive"`
	LastModifiedBy Role      `bson:"lastModifiedBy,omitempty" json:"lastModifiedBy,omitempty"`
	LastModifiedAt time.Time `bson:"lastModifiedAt" json:"lastModifiedAt"`
	Version        int64     `bson:"version" json:"version"`
}

// NewAssignment creates version 0 of an assignment from a template.
// The template is deep-copied.
func NewAssignment(client User, template WorkoutProgram, startDate time.Time, duration int) *ClientWorkoutAssignment {
	return &ClientWorkoutAssignment{
		ClientID:    client.ID,
		ClientName:  client.Name,
		Program:     template.Clone(),
		StartDate:   startDate,
		Duration:    duration,
		CurrentWeek: 1,
		CurrentDay:  0,
		Weeks:       NewWeeks(duration),
		IsActive:    true,
		Version:     0,
	}
}

// MaxDurationWeeks bounds the length of an assignment.
const MaxDurationWeeks = 104

// Supersedes reports whether a was assigned after other, i.e. a replaced it
// or one of its successors. Equal timestamps fall back to the ids, which
// grow with creation time. Versions are not compared: each assignment
// counts its own.
func (a *ClientWorkoutAssignment) Supersedes(other *ClientWorkoutAssignment) bool {
	if a == nil || other == nil || a.ID == other.ID {
		return false
	}
	if !a.AssignedAt.Equal(other.AssignedAt) {
		return a.AssignedAt.After(other.AssignedAt)
	}
	return bytes.Compare(a.ID[:], other.ID[:]) > 0
}

// Clone returns a deep copy of the assignment.
func (a *ClientWorkoutAssignment) Clone() *ClientWorkoutAssignment {
	if a == nil {
		return nil
	}
	out := *a
	out.Program = a.Program.Clone()
	out.Weeks = a.Weeks.Clone()
	if a.ProgressionRules != nil {
		out.ProgressionRules = make(bson.M, len(a.ProgressionRules))
		for k, v := range a.ProgressionRules {
			out.ProgressionRules[k] = v
		}
	}
	return &out
}
