package service

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/metrics"
	"alcyxob/coach-progression/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	megabyte = 1024 * 1024

	defaultCatalogCacheMegabytes = 16
	defaultCatalogCacheTTL       = 10 * time.Minute

	muscleGroupKeyPrefix = "mg::"
)

// CatalogService is the exercise catalog accessor. MuscleGroup is what the
// volume aggregator classifies exercises with.
type CatalogService interface {
	MuscleGroup(ctx context.Context, exerciseName string) (string, error)
	CreateExercise(ctx context.Context, name, description, muscleGroup, equipment, difficulty string) (*domain.Exercise, error)
	GetExerciseByName(ctx context.Context, name string) (*domain.Exercise, error)
}

// catalogService implements the CatalogService interface.
type catalogService struct {
	exerciseRepo repository.ExerciseRepository
	cache        *freecache.Cache
	cacheTTL     time.Duration
	metrics      *metrics.Manager
}

// NewCatalogService creates a catalog accessor caching muscle groups for cacheTTL.
// Names that resolve to nothing are cached as well.
func NewCatalogService(exerciseRepo repository.ExerciseRepository, cacheMegabytes int, cacheTTL time.Duration, metricsManager *metrics.Manager) CatalogService {
	if cacheMegabytes <= 0 {
		cacheMegabytes = defaultCatalogCacheMegabytes
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCatalogCacheTTL
	}
	return &catalogService{
		exerciseRepo: exerciseRepo,
		cache:        freecache.NewCache(cacheMegabytes * megabyte),
		cacheTTL:     cacheTTL,
		metrics:      metricsManager,
	}
}

// MuscleGroup returns the catalog muscle group of the named exercise, or
// ErrExerciseNotFound when the exercise is unknown or has no group.
func (s *catalogService) MuscleGroup(ctx context.Context, exerciseName string) (string, error) {
	if strings.TrimSpace(exerciseName) == "" {
		return "", ErrExerciseNotFound
	}

	cacheKey := []byte(muscleGroupKeyPrefix + exerciseName)
	if cached, err := s.cache.Get(cacheKey); err == nil {
		s.metrics.CounterCatalogLookups.WithLabelValues("hit").Inc()
		if len(cached) == 0 {
			return "", ErrExerciseNotFound
		}
		return string(cached), nil
	}
	s.metrics.CounterCatalogLookups.WithLabelValues("miss").Inc()

	var group string
	exercise, err := s.exerciseRepo.GetByName(ctx, exerciseName)
	switch {
	case err == nil:
		group = exercise.MuscleGroup
	case errors.Is(err, repository.ErrNotFound):
		// cached as empty below
	default:
		return "", fmt.Errorf("catalog lookup %q: %w", exerciseName, err)
	}

	if err := s.cache.Set(cacheKey, []byte(group), int(s.cacheTTL.Seconds())); err != nil {
		log.Errorf("failed to cache muscle group of %s: %s", exerciseName, err)
	}

	if group == "" {
		return "", ErrExerciseNotFound
	}
	return group, nil
}

// CreateExercise adds a catalog entry. Names are unique.
func (s *catalogService) CreateExercise(ctx context.Context, name, description, muscleGroup, equipment, difficulty string) (*domain.Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidationFailed
	}

	_, err := s.exerciseRepo.GetByName(ctx, name)
	if err == nil {
		return nil, ErrExerciseExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	exercise := &domain.Exercise{
		Name:        name,
		Description: description,
		MuscleGroup: strings.TrimSpace(muscleGroup),
		Equipment:   equipment,
		Difficulty:  difficulty,
	}
	exerciseID, err := s.exerciseRepo.Create(ctx, exercise)
	if err != nil {
		return nil, err
	}
	exercise.ID = exerciseID

	// a negative entry for this name may be cached
	s.cache.Del([]byte(muscleGroupKeyPrefix + name))
	return exercise, nil
}

func (s *catalogService) GetExerciseByName(ctx context.Context, name string) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}
