package service

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/metrics"
	"alcyxob/coach-progression/internal/progression"
	"alcyxob/coach-progression/internal/repository"
	"alcyxob/coach-progression/internal/repository/memory"
	"alcyxob/coach-progression/internal/store"
	"alcyxob/coach-progression/internal/volume"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type progressionFixture struct {
	svc       ProgressionService
	repo      *racingRepo
	users     *memory.UserRepo
	programs  *memory.ProgramRepo
	exercises *memory.ExerciseRepo
	channel   *recordingChannel
	archive   *memoryArchive
	metrics   *metrics.Manager
	client    *domain.User
	template  *domain.WorkoutProgram
}

func newProgressionFixture(t *testing.T) *progressionFixture {
	t.Helper()
	ctx := context.Background()

	f := &progressionFixture{
		repo:     &racingRepo{AssignmentRepo: memory.NewAssignmentRepo()},
		users:    memory.NewUserRepo(),
		programs: memory.NewProgramRepo(),
		channel:  &recordingChannel{},
		archive:  newMemoryArchive(),
		metrics:  metrics.NewTestManager(),
		exercises: memory.NewExerciseRepo(
			domain.Exercise{Name: "Push Ups", MuscleGroup: "Chest"},
			domain.Exercise{Name: "Squat", MuscleGroup: "Legs"},
		),
	}

	f.client = &domain.User{Name: "Alice", Role: domain.RoleClient}
	_, err := f.users.Create(ctx, f.client)
	require.NoError(t, err)

	f.template = &domain.WorkoutProgram{
		Name: "Starter",
		Days: []domain.WorkoutDay{{
			ID:   "d1",
			Name: "Day 1",
			Exercises: []domain.WorkoutExercise{
				{ID: "e1", Exercise: domain.ExerciseRef{Name: "Push Ups"}, Sets: []domain.Set{{ID: "s1", Reps: 10}}},
				{ID: "e2", Exercise: domain.ExerciseRef{Name: "Squat"}, Sets: []domain.Set{{ID: "s2", Reps: 5, Weight: 60}}},
			},
		}},
	}
	_, err = f.programs.Create(ctx, f.template)
	require.NoError(t, err)

	catalog := NewCatalogService(f.exercises, 1, time.Minute, f.metrics)
	f.svc = NewProgressionService(
		store.NewProgressionStore(f.repo),
		f.repo,
		f.users,
		f.programs,
		f.channel,
		volume.NewAggregator(catalog, volume.NewMetricsObserver(f.metrics)),
		f.archive,
		f.metrics,
		DefaultMaxCommitRetries,
	)
	return f
}

func (f *progressionFixture) assign(t *testing.T, weeks int) *domain.ClientWorkoutAssignment {
	t.Helper()
	a, err := f.svc.CreateAssignment(context.Background(), f.client.ID, f.template.ID,
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), weeks)
	require.NoError(t, err)
	return a
}

func TestProgressionService_CreateAssignment(t *testing.T) {
	f := newProgressionFixture(t)
	a := f.assign(t, 4)

	assert.False(t, a.ID.IsZero())
	assert.Equal(t, int64(0), a.Version)
	assert.Equal(t, "Alice", a.ClientName)
	assert.Equal(t, 1, a.CurrentWeek)
	assert.Equal(t, 0, a.CurrentDay)
	assert.True(t, a.IsActive)
	assert.Equal(t, domain.RoleCoach, a.LastModifiedBy)
	require.Len(t, a.Weeks, 4)
	assert.Equal(t, 1, a.Weeks.UnlockedCount())
	assert.True(t, a.Weeks[0].IsUnlocked)
	assert.Equal(t, []int64{0}, f.channel.versions())

	// the template stays untouched by later edits
	_, err := f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach,
		progression.AdjustReps{DayIndex: 0, ExerciseID: "e1", SetID: "s1", Delta: 3})
	require.NoError(t, err)
	template, err := f.programs.GetByID(context.Background(), f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, template.Days[0].Exercises[0].Sets[0].Reps)
}

func TestProgressionService_CreateAssignment_ReplacesActive(t *testing.T) {
	f := newProgressionFixture(t)
	first := f.assign(t, 2)
	second := f.assign(t, 6)

	active, err := f.svc.GetAssignment(context.Background(), f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	old := f.repo.Stored(first.ID)
	assert.False(t, old.IsActive)
	assert.Equal(t, int64(1), old.Version)

	body, ok := f.archive.objects[archiveKey(f.client.ID, first.ID)]
	require.True(t, ok)
	assert.Contains(t, string(body), first.ID.Hex())

	url, err := f.svc.ArchiveURL(context.Background(), f.client.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, strings.Contains(url, first.ID.Hex()))

	_, err = f.svc.ArchiveURL(context.Background(), f.client.ID, second.ID)
	assert.ErrorIs(t, err, ErrArchiveNotFound)
	_, err = f.svc.ArchiveURL(context.Background(), primitive.NewObjectID(), first.ID)
	assert.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestProgressionService_CreateAssignment_ReplacementSupersedes(t *testing.T) {
	f := newProgressionFixture(t)
	first := f.assign(t, 2)
	second := f.assign(t, 2)

	assert.False(t, second.AssignedAt.IsZero())
	assert.True(t, second.Supersedes(f.repo.Stored(first.ID)))
	assert.False(t, f.repo.Stored(first.ID).Supersedes(second))
}

func TestProgressionService_CreateAssignment_FailedInsertKeepsPrevious(t *testing.T) {
	f := newProgressionFixture(t)
	first := f.assign(t, 2)

	f.repo.FailInsertWith = errors.New("write concern timeout")
	_, err := f.svc.CreateAssignment(context.Background(), f.client.ID, f.template.ID, time.Now(), 6)
	require.Error(t, err)
	f.repo.FailInsertWith = nil

	active, err := f.svc.GetAssignment(context.Background(), f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.True(t, active.IsActive)
	assert.Empty(t, f.archive.objects)
	assert.Equal(t, []int64{0}, f.channel.versions())

	// the reactivated assignment still takes commands
	_, err = f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach,
		progression.AdjustReps{DayIndex: 0, ExerciseID: "e1", SetID: "s1", Delta: 1})
	require.NoError(t, err)
}

func TestProgressionService_CreateAssignment_Validation(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()
	start := time.Now()

	_, err := f.svc.CreateAssignment(ctx, f.client.ID, f.template.ID, start, 0)
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = f.svc.CreateAssignment(ctx, f.client.ID, f.template.ID, start, domain.MaxDurationWeeks+1)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.CreateAssignment(ctx, primitive.NewObjectID(), f.template.ID, start, 2)
	assert.ErrorIs(t, err, ErrClientNotFound)

	_, err = f.svc.CreateAssignment(ctx, f.client.ID, primitive.NewObjectID(), start, 2)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	coach := &domain.User{Name: "Coach", Role: domain.RoleCoach}
	_, err = f.users.Create(ctx, coach)
	require.NoError(t, err)
	_, err = f.svc.CreateAssignment(ctx, coach.ID, f.template.ID, start, 2)
	assert.ErrorIs(t, err, ErrClientNotRole)
}

func TestProgressionService_GetAssignment_NotFound(t *testing.T) {
	f := newProgressionFixture(t)
	_, err := f.svc.GetAssignment(context.Background(), f.client.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	_, err = f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach, progression.UnlockWeek{WeekNumber: 2})
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestProgressionService_Mutate(t *testing.T) {
	f := newProgressionFixture(t)
	f.assign(t, 3)
	ctx := context.Background()

	a, err := f.svc.Mutate(ctx, f.client.ID, domain.RoleCoach,
		progression.AdjustWeight{DayIndex: 0, ExerciseID: "e2", SetID: "s2", Delta: 2.5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Version)
	assert.Equal(t, domain.RoleCoach, a.LastModifiedBy)
	assert.Equal(t, 62.5, a.Program.Days[0].Exercises[1].Sets[0].Weight)

	a, err = f.svc.Mutate(ctx, f.client.ID, domain.RoleClient,
		progression.RecordSet{DayIndex: 0, ExerciseID: "e1", SetID: "s1", Reps: 12})
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Version)
	assert.Equal(t, domain.RoleClient, a.LastModifiedBy)
	assert.True(t, a.Program.Days[0].Exercises[0].Sets[0].Completed)

	assert.Equal(t, []int64{0, 1, 2}, f.channel.versions())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CounterCommits.WithLabelValues("coach", "adjust_weight")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CounterCommits.WithLabelValues("client", "record_set")))
}

func TestProgressionService_Mutate_NoOpIsNotCommitted(t *testing.T) {
	f := newProgressionFixture(t)
	f.assign(t, 3)

	a, err := f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach,
		progression.AdjustReps{DayIndex: 0, ExerciseID: "missing", SetID: "s1", Delta: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Version)
	assert.Equal(t, []int64{0}, f.channel.versions())
}

func TestProgressionService_Mutate_Validation(t *testing.T) {
	f := newProgressionFixture(t)
	f.assign(t, 3)

	_, err := f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach, nil)
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = f.svc.Mutate(context.Background(), f.client.ID, domain.Role("admin"), progression.UnlockWeek{WeekNumber: 2})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestProgressionService_Mutate_RetriesAgainstWinner(t *testing.T) {
	f := newProgressionFixture(t)
	a := f.assign(t, 3)

	// the client records the squat set while the coach adjusts push ups
	f.repo.races = 1
	f.repo.concurrent = func(w *domain.ClientWorkoutAssignment) {
		w.Program.Days[0].Exercises[1].Sets[0].Completed = true
	}

	got, err := f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach,
		progression.AdjustReps{DayIndex: 0, ExerciseID: "e1", SetID: "s1", Delta: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 12, got.Program.Days[0].Exercises[0].Sets[0].Reps)
	assert.True(t, got.Program.Days[0].Exercises[1].Sets[0].Completed)
	assert.Equal(t, got, f.repo.Stored(a.ID))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CounterStaleCommits))
}

func TestProgressionService_Mutate_TargetRemovedByWinner(t *testing.T) {
	f := newProgressionFixture(t)
	a := f.assign(t, 3)

	f.repo.races = 1
	f.repo.concurrent = func(w *domain.ClientWorkoutAssignment) {
		w.Program.Days[0].Exercises[0].Sets = nil
	}

	got, err := f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach,
		progression.AdjustReps{DayIndex: 0, ExerciseID: "e1", SetID: "s1", Delta: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Empty(t, got.Program.Days[0].Exercises[0].Sets)
	assert.Equal(t, int64(1), f.repo.Stored(a.ID).Version)
}

func TestProgressionService_Mutate_RetriesExhausted(t *testing.T) {
	f := newProgressionFixture(t)
	f.assign(t, 3)
	f.repo.races = 100

	_, err := f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach, progression.UnlockWeek{WeekNumber: 2})
	assert.ErrorIs(t, err, ErrConcurrentEdit)
	assert.Equal(t, float64(DefaultMaxCommitRetries+1), testutil.ToFloat64(f.metrics.CounterStaleCommits))
}

func TestProgressionService_Mutate_BackendError(t *testing.T) {
	f := newProgressionFixture(t)
	f.assign(t, 3)
	f.repo.FailWith = errors.New("no reachable servers")

	_, err := f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach, progression.UnlockWeek{WeekNumber: 2})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAssignmentNotFound)
}

func TestProgressionService_PublishFailureDoesNotFailCommit(t *testing.T) {
	f := newProgressionFixture(t)
	f.assign(t, 3)
	f.channel.publishErr = errors.New("redis down")

	a, err := f.svc.Mutate(context.Background(), f.client.ID, domain.RoleCoach, progression.UnlockWeek{WeekNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Version)
}

func TestProgressionService_Volume(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := context.Background()

	none, err := f.svc.GetCurrentWeekVolume(ctx, f.client.ID)
	require.NoError(t, err)
	assert.Zero(t, none.TotalVolume)
	series, err := f.svc.GetVolumeSeries(ctx, f.client.ID, 4)
	require.NoError(t, err)
	assert.Empty(t, series)

	f.assign(t, 2)

	week, err := f.svc.GetCurrentWeekVolume(ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, week.Week)
	assert.Equal(t, map[string]float64{"Chest": 10, "Legs": 300}, week.PerMuscleGroup)

	_, err = f.svc.Mutate(ctx, f.client.ID, domain.RoleCoach, progression.UnlockWeek{WeekNumber: 2})
	require.NoError(t, err)

	week, err = f.svc.GetCurrentWeekVolume(ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, week.Week)
	// push ups 12 reps bodyweight, squat 7 x 62.5
	assert.Equal(t, map[string]float64{"Chest": 12, "Legs": 437.5}, week.PerMuscleGroup)

	series, err = f.svc.GetVolumeSeries(ctx, f.client.ID, 0)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Zero(t, series[0].TotalVolume)
	assert.Equal(t, 449.5, series[1].TotalVolume)
}

func TestProgressionService_GetWeekProgression(t *testing.T) {
	f := newProgressionFixture(t)
	f.assign(t, 3)

	days, err := f.svc.GetWeekProgression(context.Background(), f.client.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 14, days[0].Exercises[0].Sets[0].Reps)
	assert.Equal(t, 65.0, days[0].Exercises[1].Sets[0].Weight)

	_, err = f.svc.GetWeekProgression(context.Background(), f.client.ID, 4)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestProgressionService_OnAssignmentChanged(t *testing.T) {
	f := newProgressionFixture(t)

	sub, err := f.svc.OnAssignmentChanged(context.Background(), f.client.ID, func(*domain.ClientWorkoutAssignment) {})
	require.NoError(t, err)
	sub.Unsubscribe()
	assert.Equal(t, []primitive.ObjectID{f.client.ID}, f.channel.subscribed)
}

// keeps the memory repo honest about the stale path used above
func TestRacingRepo_StaleWithoutRace(t *testing.T) {
	f := newProgressionFixture(t)
	a := f.assign(t, 1)
	err := f.repo.ReplaceIfVersion(context.Background(), a, 5)
	assert.ErrorIs(t, err, repository.ErrStaleVersion)
}
