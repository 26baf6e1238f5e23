package service

import (
	"alcyxob/coach-progression/internal/broadcast"
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/metrics"
	"alcyxob/coach-progression/internal/progression"
	"alcyxob/coach-progression/internal/repository"
	"alcyxob/coach-progression/internal/storage"
	"alcyxob/coach-progression/internal/store"
	"alcyxob/coach-progression/internal/volume"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultMaxCommitRetries = 3

	archivePrefix      = "archives"
	archiveContentType = "application/json"
)

// ProgressionService runs the assignment lifecycle and every engine command
// through load, apply, commit and publish. It also serves the progress views.
type ProgressionService interface {
	CreateAssignment(ctx context.Context, clientID, templateID primitive.ObjectID, startDate time.Time, durationWeeks int) (*domain.ClientWorkoutAssignment, error)
	GetAssignment(ctx context.Context, clientID primitive.ObjectID) (*domain.ClientWorkoutAssignment, error)
	// Mutate applies cmd on behalf of role. A stale commit is retried against
	// a fresh load; ErrConcurrentEdit is returned once retries run out.
	Mutate(ctx context.Context, clientID primitive.ObjectID, role domain.Role, cmd progression.Command) (*domain.ClientWorkoutAssignment, error)
	GetWeekProgression(ctx context.Context, clientID primitive.ObjectID, weekNumber int) ([]domain.WorkoutDay, error)

	GetCurrentWeekVolume(ctx context.Context, clientID primitive.ObjectID) (volume.WeekVolume, error)
	GetVolumeSeries(ctx context.Context, clientID primitive.ObjectID, maxWeeks int) ([]volume.WeekVolume, error)
	OnAssignmentChanged(ctx context.Context, clientID primitive.ObjectID, callback broadcast.UpdateFunc) (broadcast.Subscription, error)

	ArchiveURL(ctx context.Context, clientID, assignmentID primitive.ObjectID) (string, error)
}

type progressionService struct {
	store          *store.ProgressionStore
	assignmentRepo repository.AssignmentRepository
	userRepo       repository.UserRepository
	programRepo    repository.ProgramRepository
	channel        broadcast.Channel
	aggregator     *volume.Aggregator
	archive        storage.ArchiveStorage
	metrics        *metrics.Manager
	maxRetries     int
	now            func() time.Time
}

// NewProgressionService creates a new instance of progressionService.
func NewProgressionService(
	progressionStore *store.ProgressionStore,
	assignmentRepo repository.AssignmentRepository,
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	channel broadcast.Channel,
	aggregator *volume.Aggregator,
	archive storage.ArchiveStorage,
	metricsManager *metrics.Manager,
	maxRetries int,
) ProgressionService {
	if maxRetries < 0 {
		maxRetries = DefaultMaxCommitRetries
	}
	return &progressionService{
		store:          progressionStore,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		programRepo:    programRepo,
		channel:        channel,
		aggregator:     aggregator,
		archive:        archive,
		metrics:        metricsManager,
		maxRetries:     maxRetries,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// === Assignment lifecycle ===

// CreateAssignment copies a template into a new version 0 assignment for the
// client, deactivating (and archiving) the one it replaces.
func (s *progressionService) CreateAssignment(ctx context.Context, clientID, templateID primitive.ObjectID, startDate time.Time, durationWeeks int) (*domain.ClientWorkoutAssignment, error) {
	// 1. Validate Input
	if clientID.IsZero() || templateID.IsZero() || durationWeeks < 1 || durationWeeks > domain.MaxDurationWeeks {
		return nil, ErrValidationFailed
	}

	// 2. Resolve the client and the template
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

	template, err := s.programRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	// 3. Retire the current assignment, one active per client
	previous, err := s.assignmentRepo.FetchActive(ctx, clientID)
	switch {
	case err == nil:
		if err := s.assignmentRepo.Update(ctx, previous.ID, bson.M{"isActive": false}); err != nil {
			return nil, fmt.Errorf("deactivate assignment %s: %w", previous.ID.Hex(), err)
		}
	case errors.Is(err, repository.ErrNotFound):
		previous = nil
	default:
		return nil, err
	}

	// 4. Create the new assignment
	if startDate.IsZero() {
		startDate = s.now()
	}
	assignment := domain.NewAssignment(*client, *template, startDate.UTC(), durationWeeks)
	assignment.AssignedAt = s.now()
	assignment.LastModifiedBy = domain.RoleCoach
	assignment.LastModifiedAt = assignment.AssignedAt

	assignmentID, err := s.assignmentRepo.Insert(ctx, assignment)
	if err != nil {
		if previous != nil {
			s.restoreAssignment(ctx, previous)
		}
		return nil, err
	}
	assignment.ID = assignmentID

	if previous != nil {
		previous.IsActive = false
		previous.Version++
		s.archiveAssignment(ctx, previous)
	}

	log.WithFields(log.Fields{
		"client":     clientID.Hex(),
		"assignment": assignmentID.Hex(),
		"template":   templateID.Hex(),
		"weeks":      durationWeeks,
	}).Info("assignment created")

	s.publish(ctx, assignment)
	return assignment, nil
}

func (s *progressionService) GetAssignment(ctx context.Context, clientID primitive.ObjectID) (*domain.ClientWorkoutAssignment, error) {
	a, err := s.store.Load(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *progressionService) Mutate(ctx context.Context, clientID primitive.ObjectID, role domain.Role, cmd progression.Command) (*domain.ClientWorkoutAssignment, error) {
	if cmd == nil {
		return nil, ErrInvalidCommand
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	logger := log.WithFields(log.Fields{
		"client":  clientID.Hex(),
		"role":    role,
		"command": cmd.Name(),
	})

	for attempt := 0; ; attempt++ {
		current, err := s.GetAssignment(ctx, clientID)
		if err != nil {
			return nil, err
		}

		next, changed := progression.Apply(current, cmd)
		if !changed {
			// nothing to commit, including a target removed by the winning writer
			return current, nil
		}

		committed, err := s.store.Commit(ctx, next, role)
		if err == nil {
			s.metrics.CounterCommits.WithLabelValues(string(role), cmd.Name()).Inc()
			logger.WithField("version", committed.Version).Debug("assignment committed")
			s.publish(ctx, committed)
			return committed, nil
		}
		if !errors.Is(err, repository.ErrStaleVersion) {
			return nil, fmt.Errorf("commit %s: %w", cmd.Name(), err)
		}

		s.metrics.CounterStaleCommits.Inc()
		if attempt >= s.maxRetries {
			logger.Warnf("giving up after %d stale commits", attempt+1)
			return nil, ErrConcurrentEdit
		}
		logger.WithField("attempt", attempt+1).Debug("stale base version, reloading")
	}
}

// GetWeekProgression returns the effective day list of a week.
func (s *progressionService) GetWeekProgression(ctx context.Context, clientID primitive.ObjectID, weekNumber int) ([]domain.WorkoutDay, error) {
	a, err := s.GetAssignment(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if a.Weeks.Find(weekNumber) == nil {
		return nil, ErrValidationFailed
	}
	return progression.GenerateWeekProgression(a, weekNumber), nil
}

// === Progress views ===

// GetCurrentWeekVolume aggregates the assignment's current week. A client
// without an assignment gets an all-zero row for week 1.
func (s *progressionService) GetCurrentWeekVolume(ctx context.Context, clientID primitive.ObjectID) (volume.WeekVolume, error) {
	a, err := s.GetAssignment(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return s.aggregator.Week(ctx, nil, 1), nil
		}
		return volume.WeekVolume{}, err
	}
	return s.aggregator.Week(ctx, a, a.CurrentWeek), nil
}

// GetVolumeSeries aggregates weeks 1..min(duration, maxWeeks); empty without an assignment.
func (s *progressionService) GetVolumeSeries(ctx context.Context, clientID primitive.ObjectID, maxWeeks int) ([]volume.WeekVolume, error) {
	a, err := s.GetAssignment(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return []volume.WeekVolume{}, nil
		}
		return nil, err
	}
	return s.aggregator.Series(ctx, a, maxWeeks), nil
}

func (s *progressionService) OnAssignmentChanged(ctx context.Context, clientID primitive.ObjectID, callback broadcast.UpdateFunc) (broadcast.Subscription, error) {
	return s.channel.Subscribe(ctx, clientID, callback)
}

// === Archive ===

func archiveKey(clientID, assignmentID primitive.ObjectID) string {
	return path.Join(archivePrefix, clientID.Hex(), assignmentID.Hex()+".json")
}

// archiveAssignment snapshots a replaced assignment. Failures are logged only;
// the record itself is never deleted.
func (s *progressionService) archiveAssignment(ctx context.Context, a *domain.ClientWorkoutAssignment) {
	body, err := bson.MarshalExtJSON(a, false, false)
	if err != nil {
		log.Errorf("encode archive of assignment %s: %s", a.ID.Hex(), err)
		return
	}
	if err := s.archive.PutObject(ctx, archiveKey(a.ClientID, a.ID), archiveContentType, body); err != nil {
		log.Errorf("archive assignment %s: %s", a.ID.Hex(), err)
	}
}

// ArchiveURL returns a temporary download link for a replaced assignment of the client.
// restoreAssignment reactivates an assignment whose replacement could not be
// stored, so the client keeps exactly one active assignment.
func (s *progressionService) restoreAssignment(ctx context.Context, a *domain.ClientWorkoutAssignment) {
	logger := log.WithFields(log.Fields{
		"client":     a.ClientID.Hex(),
		"assignment": a.ID.Hex(),
	})
	if err := s.assignmentRepo.Update(ctx, a.ID, bson.M{"isActive": true}); err != nil {
		logger.Errorf("failed to reactivate assignment after a failed replacement: %s", err)
		return
	}
	logger.Warn("replacement failed, previous assignment reactivated")
}

func (s *progressionService) ArchiveURL(ctx context.Context, clientID, assignmentID primitive.ObjectID) (string, error) {
	a, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrArchiveNotFound
		}
		return "", err
	}
	if a.ClientID != clientID || a.IsActive {
		return "", ErrArchiveNotFound
	}
	return s.archive.GeneratePresignedDownloadURL(ctx, archiveKey(clientID, assignmentID), storage.DefaultPresignedURLExpiry)
}

// publish hands a committed version to the channel. Subscribers that miss it
// catch up on the next publish or poll, so errors are only logged.
func (s *progressionService) publish(ctx context.Context, a *domain.ClientWorkoutAssignment) {
	if err := s.channel.Publish(ctx, a); err != nil {
		log.WithFields(log.Fields{
			"client":  a.ClientID.Hex(),
			"version": a.Version,
		}).Warnf("publish assignment: %s", err)
	}
}
