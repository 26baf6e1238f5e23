// Package memory holds in-memory repositories used by tests.
package memory

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/repository"
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AssignmentRepo struct {
	mu          sync.Mutex
	assignments map[primitive.ObjectID]*domain.ClientWorkoutAssignment
	// FailWith, when set, is returned by every call.
	FailWith error
	// FailInsertWith, when set, is returned by Insert only.
	FailInsertWith error
}

func NewAssignmentRepo() *AssignmentRepo {
	return &AssignmentRepo{
		assignments: make(map[primitive.ObjectID]*domain.ClientWorkoutAssignment),
	}
}

func (r *AssignmentRepo) FetchActive(_ context.Context, clientID primitive.ObjectID) (*domain.ClientWorkoutAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	var found *domain.ClientWorkoutAssignment
	for _, a := range r.assignments {
		if a.ClientID == clientID && a.IsActive {
			if found == nil || a.StartDate.After(found.StartDate) {
				found = a
			}
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found.Clone(), nil
}

func (r *AssignmentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ClientWorkoutAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	a, ok := r.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *AssignmentRepo) Insert(_ context.Context, a *domain.ClientWorkoutAssignment) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return primitive.NilObjectID, r.FailWith
	}
	if r.FailInsertWith != nil {
		return primitive.NilObjectID, r.FailInsertWith
	}
	a.ID = primitive.NewObjectID()
	r.assignments[a.ID] = a.Clone()
	return a.ID, nil
}

// Update supports the fields the service layer sets on lifecycle changes.
func (r *AssignmentRepo) Update(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	a, ok := r.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v, ok := fields["isActive"].(bool); ok {
		a.IsActive = v
	}
	a.Version++
	return nil
}

func (r *AssignmentRepo) ReplaceIfVersion(_ context.Context, a *domain.ClientWorkoutAssignment, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	current, ok := r.assignments[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return repository.ErrStaleVersion
	}
	r.assignments[a.ID] = a.Clone()
	return nil
}

// Stored returns a copy of what is persisted for id, or nil.
func (r *AssignmentRepo) Stored(id primitive.ObjectID) *domain.ClientWorkoutAssignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assignments[id].Clone()
}

type ExerciseRepo struct {
	mu        sync.Mutex
	exercises map[primitive.ObjectID]*domain.Exercise
	Lookups   int
}

func NewExerciseRepo(exercises ...domain.Exercise) *ExerciseRepo {
	r := &ExerciseRepo{exercises: make(map[primitive.ObjectID]*domain.Exercise)}
	for i := range exercises {
		ex := exercises[i]
		_, _ = r.Create(context.Background(), &ex)
	}
	return r
}

func (r *ExerciseRepo) Create(_ context.Context, ex *domain.Exercise) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex.ID = primitive.NewObjectID()
	stored := *ex
	r.exercises[ex.ID] = &stored
	return ex.ID, nil
}

func (r *ExerciseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *ex
	return &out, nil
}

func (r *ExerciseRepo) GetByName(_ context.Context, name string) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lookups++
	for _, ex := range r.exercises {
		if ex.Name == name {
			out := *ex
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

type ProgramRepo struct {
	mu       sync.Mutex
	programs map[primitive.ObjectID]*domain.WorkoutProgram
}

func NewProgramRepo() *ProgramRepo {
	return &ProgramRepo{programs: make(map[primitive.ObjectID]*domain.WorkoutProgram)}
}

func (r *ProgramRepo) Create(_ context.Context, p *domain.WorkoutProgram) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = primitive.NewObjectID()
	stored := p.Clone()
	r.programs[p.ID] = &stored
	return p.ID, nil
}

func (r *ProgramRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutProgram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

type UserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *UserRepo) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = primitive.NewObjectID()
	stored := *u
	r.users[u.ID] = &stored
	return u.ID, nil
}

func (r *UserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}
