package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests        *prometheus.CounterVec
	CounterCommits         *prometheus.CounterVec
	CounterStaleCommits    prometheus.Counter
	CounterSyncDeliveries  *prometheus.CounterVec
	CounterSyncDiscarded   *prometheus.CounterVec
	CounterTransportErrors *prometheus.CounterVec
	CounterCatalogLookups  *prometheus.CounterVec

	// gauges
	GaugeSubscriptions prometheus.Gauge

	// histograms
	HistRequestDuration     prometheus.Histogram
	HistAggregationDuration prometheus.Histogram
	HistWeekVolume          prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("coach", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("coach", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterCommits := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assignment_commits",
		Help:      "The total number of committed assignment mutations",
	}, []string{"role", "command"})
	counterStaleCommits := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assignment_stale_commits",
		Help:      "The total number of commits rejected for a stale version",
	})
	counterSyncDeliveries := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sync_deliveries",
		Help:      "The total number of assignment updates delivered to subscribers",
	}, []string{"transport"})
	counterSyncDiscarded := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sync_discarded",
		Help:      "The total number of inbound updates dropped as not newer",
	}, []string{"transport"})
	counterTransportErrors := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sync_transport_errors",
		Help:      "The total number of failed fetch or watch attempts",
	}, []string{"transport"})
	counterCatalogLookups := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "catalog_lookups",
		Help:      "Exercise catalog lookups by cache result",
	}, []string{"result"})

	gaugeSubscriptions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sync_subscriptions",
		Help:      "Current number of live assignment subscriptions",
	})

	histReqDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05,
				0.1, 0.25, 0.5, 1, 2.5, 10,
			},
			Name: "request_duration_seconds",
			Help: "Total duration of requests in seconds",
		},
	)
	histAggregationDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1,
			},
			Name: "volume_aggregation_duration_seconds",
			Help: "Duration of a single week volume aggregation in seconds",
		},
	)
	histWeekVolume := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			Name:      "week_volume",
			Help:      "Total training volume of aggregated weeks",
		},
	)

	return &Manager{
		CounterRequests:         counterRequests,
		CounterCommits:          counterCommits,
		CounterStaleCommits:     counterStaleCommits,
		CounterSyncDeliveries:   counterSyncDeliveries,
		CounterSyncDiscarded:    counterSyncDiscarded,
		CounterTransportErrors:  counterTransportErrors,
		CounterCatalogLookups:   counterCatalogLookups,
		GaugeSubscriptions:      gaugeSubscriptions,
		HistRequestDuration:     histReqDuration,
		HistAggregationDuration: histAggregationDuration,
		HistWeekVolume:          histWeekVolume,
	}
}
