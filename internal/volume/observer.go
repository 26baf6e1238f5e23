package volume

import (
	"alcyxob/coach-progression/internal/metrics"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report describes one aggregation, inputs and output.
type Report struct {
	ClientID     primitive.ObjectID
	AssignmentID primitive.ObjectID
	Version      int64
	Week         int
	Locked       bool
	Exercises    int
	// Skipped lists exercises without a resolvable muscle group.
	Skipped []string
	Result  WeekVolume
	Elapsed time.Duration
}

// Observer is called exactly once per Aggregator.Week.
type Observer interface {
	Observe(r Report)
}

type nopObserver struct{}

func (nopObserver) Observe(Report) {}

// Observers fans a report out to several observers.
type Observers []Observer

func (o Observers) Observe(r Report) {
	for _, obs := range o {
		obs.Observe(r)
	}
}

type LogObserver struct{}

func (LogObserver) Observe(r Report) {
	entry := log.WithFields(log.Fields{
		"client":     r.ClientID.Hex(),
		"assignment": r.AssignmentID.Hex(),
		"version":    r.Version,
		"week":       r.Week,
		"locked":     r.Locked,
		"exercises":  r.Exercises,
		"total":      r.Result.TotalVolume,
		"groups":     r.Result.PerMuscleGroup,
		"elapsed":    r.Elapsed,
	})
	if len(r.Skipped) > 0 {
		entry = entry.WithField("skipped", r.Skipped)
	}
	entry.Trace("week volume aggregated")
}

type MetricsObserver struct {
	metrics *metrics.Manager
}

func NewMetricsObserver(metricsManager *metrics.Manager) *MetricsObserver {
	return &MetricsObserver{metrics: metricsManager}
}

func (o *MetricsObserver) Observe(r Report) {
	o.metrics.HistAggregationDuration.Observe(r.Elapsed.Seconds())
	if !r.Locked {
		o.metrics.HistWeekVolume.Observe(r.Result.TotalVolume)
	}
	for range r.Skipped {
		o.metrics.CounterCatalogLookups.WithLabelValues("unresolved").Inc()
	}
}
