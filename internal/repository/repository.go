package repository

import (
	"alcyxob/coach-progression/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	// ErrStaleVersion means a compare-and-swap lost: the stored document has
	// moved past the version the caller based its change on.
	ErrStaleVersion = RepositoryError("stale version")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ExerciseRepository is the read side of the exercise catalog, plus Create for seeding.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByName(ctx context.Context, name string) (*domain.Exercise, error)
}

// ProgramRepository stores reusable workout program templates.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.WorkoutProgram) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutProgram, error)
}

// AssignmentRepository defines the interface for interacting with client workout assignments.
type AssignmentRepository interface {
	// FetchActive returns the client's active assignment or ErrNotFound.
	FetchActive(ctx context.Context, clientID primitive.ObjectID) (*domain.ClientWorkoutAssignment, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ClientWorkoutAssignment, error)
	Insert(ctx context.Context, assignment *domain.ClientWorkoutAssignment) (primitive.ObjectID, error)
	// Update applies a partial $set and bumps the version.
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	// ReplaceIfVersion replaces the whole document only while the stored
	// version still equals expectedVersion. Returns ErrStaleVersion otherwise.
	ReplaceIfVersion(ctx context.Context, assignment *domain.ClientWorkoutAssignment, expectedVersion int64) error
}
