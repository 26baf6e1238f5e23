package service

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/repository"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RosterService manages the practice's clients and program templates.
type RosterService interface {
	AddClient(ctx context.Context, name, email string) (*domain.User, error)
	GetClient(ctx context.Context, clientID primitive.ObjectID) (*domain.User, error)
	CreateProgram(ctx context.Context, program domain.WorkoutProgram) (*domain.WorkoutProgram, error)
	GetProgram(ctx context.Context, programID primitive.ObjectID) (*domain.WorkoutProgram, error)
}

type rosterService struct {
	userRepo    repository.UserRepository
	programRepo repository.ProgramRepository
	catalog     CatalogService
}

func NewRosterService(userRepo repository.UserRepository, programRepo repository.ProgramRepository, catalog CatalogService) RosterService {
	return &rosterService{
		userRepo:    userRepo,
		programRepo: programRepo,
		catalog:     catalog,
	}
}

// AddClient registers a new client of the practice.
func (s *rosterService) AddClient(ctx context.Context, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidationFailed
	}

	client := &domain.User{
		Name:  name,
		Email: strings.TrimSpace(email),
		Role:  domain.RoleClient,
	}
	clientID, err := s.userRepo.Create(ctx, client)
	if err != nil {
		return nil, err
	}
	client.ID = clientID
	return client, nil
}

func (s *rosterService) GetClient(ctx context.Context, clientID primitive.ObjectID) (*domain.User, error) {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if client.Role != domain.RoleClient {
		return nil, ErrClientNotRole
	}
	return client, nil
}

// CreateProgram stores a template. Missing day, exercise and set ids are
// generated, and exercise references are filled from the catalog when it
// knows the exercise.
func (s *rosterService) CreateProgram(ctx context.Context, program domain.WorkoutProgram) (*domain.WorkoutProgram, error) {
	if strings.TrimSpace(program.Name) == "" || len(program.Days) == 0 {
		return nil, ErrValidationFailed
	}

	program = program.Clone()
	for d := range program.Days {
		day := &program.Days[d]
		if day.ID == "" {
			day.ID = uuid.NewString()
		}
		for e := range day.Exercises {
			ex := &day.Exercises[e]
			if ex.Exercise.Name == "" {
				return nil, ErrValidationFailed
			}
			if ex.ID == "" {
				ex.ID = uuid.NewString()
			}
			ex.Order = e
			if catalogEntry, err := s.catalog.GetExerciseByName(ctx, ex.Exercise.Name); err == nil {
				ex.Exercise = domain.RefFromExercise(*catalogEntry)
			}
			for i := range ex.Sets {
				if ex.Sets[i].ID == "" {
					ex.Sets[i].ID = uuid.NewString()
				}
				ex.Sets[i].Reps = max(0, ex.Sets[i].Reps)
				ex.Sets[i].Weight = max(0, ex.Sets[i].Weight)
				ex.Sets[i].Completed = false
			}
		}
	}

	programID, err := s.programRepo.Create(ctx, &program)
	if err != nil {
		return nil, err
	}
	program.ID = programID
	return &program, nil
}

func (s *rosterService) GetProgram(ctx context.Context, programID primitive.ObjectID) (*domain.WorkoutProgram, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return program, nil
}
