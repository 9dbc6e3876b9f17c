package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Snapshot metrics
	SnapshotLoads    *prometheus.CounterVec
	SnapshotVersion  prometheus.Gauge
	TransactionsSeen prometheus.Gauge

	// Derivation metrics
	IndexBuilds       prometheus.Counter
	IndexBuildTime    prometheus.Histogram
	IndexInvalidation prometheus.Counter

	// Query metrics
	Queries     *prometheus.CounterVec
	QueryErrors *prometheus.CounterVec

	// Summary cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Verification metrics
	VerificationRuns  prometheus.Counter
	VerificationDrift prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		SnapshotLoads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgercal_snapshot_loads_total",
				Help: "Total snapshot fetch cycles by outcome",
			},
			[]string{"status"},
		),
		SnapshotVersion: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledgercal_snapshot_version_timestamp_seconds",
			Help: "As-of instant of the currently served snapshot",
		}),
		TransactionsSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledgercal_snapshot_transactions",
			Help: "Number of transactions in the currently served snapshot",
		}),

		IndexBuilds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercal_index_builds_total",
			Help: "Total calendar index and balance table builds",
		}),
		IndexBuildTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgercal_index_build_duration_seconds",
			Help:    "Duration of derivation builds per snapshot version",
			Buckets: prometheus.DefBuckets,
		}),
		IndexInvalidation: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercal_index_invalidations_total",
			Help: "Total derivations discarded because a newer snapshot version arrived",
		}),

		Queries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgercal_queries_total",
				Help: "Total ledger queries by operation",
			},
			[]string{"operation"},
		),
		QueryErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgercal_query_errors_total",
				Help: "Total ledger query errors by operation",
			},
			[]string{"operation"},
		),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercal_summary_cache_hits_total",
			Help: "Month summary cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercal_summary_cache_misses_total",
			Help: "Month summary cache misses",
		}),

		VerificationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercal_verification_runs_total",
			Help: "Total snapshot verification runs",
		}),
		VerificationDrift: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercal_verification_drift_total",
			Help: "Verification runs that found balances out of tolerance",
		}),
	}
}
