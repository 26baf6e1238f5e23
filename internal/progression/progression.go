package progression

import "alcyxob/coach-progression/internal/domain"

// Linear weekly progression. The policy is fixed for every exercise;
// per-exercise progression rules are not interpreted.
const (
	RepsPerWeek   = 2
	WeightPerWeek = 2.5
)

// GenerateWeekProgression returns the effective day list for weekNumber.
//
// Week 1 is the template verbatim. Later weeks add RepsPerWeek reps and
// WeightPerWeek weight per elapsed week to every set; bodyweight sets
// (weight 0) stay at 0. A week override stored on the assignment is returned
// unmodified. The result is always a fresh copy.
func GenerateWeekProgression(a *domain.ClientWorkoutAssignment, weekNumber int) []domain.WorkoutDay {
	if a == nil {
		return nil
	}
	if w := a.Weeks.Find(weekNumber); w != nil && w.HasOverride() {
		return domain.CloneDays(w.Days)
	}
	return ProgressDays(a.Program.Days, weekNumber)
}

// ProgressDays applies the linear policy to a day template.
func ProgressDays(template []domain.WorkoutDay, weekNumber int) []domain.WorkoutDay {
	days := domain.CloneDays(template)
	elapsed := weekNumber - 1
	if elapsed <= 0 {
		return days
	}
	for d := range days {
		for e := range days[d].Exercises {
			sets := days[d].Exercises[e].Sets
			for s := range sets {
				sets[s].Reps += elapsed * RepsPerWeek
				if sets[s].Weight > 0 {
					sets[s].Weight += float64(elapsed) * WeightPerWeek
				}
			}
		}
	}
	return days
}
