// Package volume derives per-week training volume from an assignment.
// Nothing computed here is persisted.
package volume

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/progression"
	"context"
	"time"
)

// CatalogLookup resolves the muscle group of an exercise by name.
// It is the only source of grouping; ExerciseRef.MuscleGroup is ignored.
type CatalogLookup interface {
	MuscleGroup(ctx context.Context, exerciseName string) (string, error)
}

// WeekVolume is one row of the volume chart.
type WeekVolume struct {
	Week           int                `json:"week"`
	TotalVolume    float64            `json:"totalVolume"`
	PerMuscleGroup map[string]float64 `json:"perMuscleGroup"`
}

func emptyWeek(week int) WeekVolume {
	return WeekVolume{Week: week, PerMuscleGroup: map[string]float64{}}
}

// SetVolume is reps times weight, with weight floored at 1 so bodyweight
// sets still count their reps.
func SetVolume(s domain.Set) float64 {
	weight := s.Weight
	if weight < 1 {
		weight = 1
	}
	return float64(s.Reps) * weight
}

type Aggregator struct {
	catalog  CatalogLookup
	observer Observer
	now      func() time.Time
}

// NewAggregator returns an aggregator reporting to observer, which may be nil.
func NewAggregator(catalog CatalogLookup, observer Observer) *Aggregator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Aggregator{
		catalog:  catalog,
		observer: observer,
		now:      time.Now,
	}
}

// Week computes the volume of one week. A week that is not unlocked (or not
// in the ledger) reports zero everywhere, keeping the muscle-group keys it
// would otherwise fill. It never fails: exercises whose group cannot be
// resolved are skipped, and a nil assignment yields an empty row.
func (ag *Aggregator) Week(ctx context.Context, a *domain.ClientWorkoutAssignment, week int) WeekVolume {
	start := ag.now()
	report := Report{Week: week}
	result := emptyWeek(week)

	if a != nil {
		report.ClientID = a.ClientID
		report.AssignmentID = a.ID
		report.Version = a.Version

		w := a.Weeks.Find(week)
		report.Locked = w == nil || !w.IsUnlocked

		groups := make(map[string]string)
		for _, day := range progression.GenerateWeekProgression(a, week) {
			for _, ex := range day.Exercises {
				report.Exercises++
				group, ok := ag.resolve(ctx, groups, ex.Exercise.Name)
				if !ok {
					report.Skipped = append(report.Skipped, ex.Exercise.Name)
					continue
				}

				var exerciseVolume float64
				if !report.Locked {
					for _, s := range ex.Sets {
						exerciseVolume += SetVolume(s)
					}
				}
				result.PerMuscleGroup[group] += exerciseVolume
				result.TotalVolume += exerciseVolume
			}
		}
	}

	report.Result = result
	report.Elapsed = ag.now().Sub(start)
	ag.observer.Observe(report)
	return result
}

// Series computes weeks 1..min(duration, maxWeeks), each independently.
// maxWeeks <= 0 means the whole duration.
func (ag *Aggregator) Series(ctx context.Context, a *domain.ClientWorkoutAssignment, maxWeeks int) []WeekVolume {
	if a == nil {
		return []WeekVolume{}
	}
	n := a.Duration
	if maxWeeks > 0 && maxWeeks < n {
		n = maxWeeks
	}
	if n < 0 {
		n = 0
	}
	series := make([]WeekVolume, 0, n)
	for week := 1; week <= n; week++ {
		series = append(series, ag.Week(ctx, a, week))
	}
	return series
}

// resolve looks each name up once per aggregation.
func (ag *Aggregator) resolve(ctx context.Context, seen map[string]string, name string) (string, bool) {
	if group, ok := seen[name]; ok {
		return group, group != ""
	}
	group, err := ag.catalog.MuscleGroup(ctx, name)
	if err != nil {
		group = ""
	}
	seen[name] = group
	return group, group != ""
}
