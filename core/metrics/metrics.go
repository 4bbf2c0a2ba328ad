package metrics

import (
	"context"
	"time"

	"drift-reconciler/core/reconcile"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values of the attempts counter.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Recorder exports reconciliation attempts as Prometheus metrics.
type Recorder struct {
	attempts       *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	drift          *prometheus.CounterVec
	repairFailures *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

var (
	_ reconcile.Observer     = (*Recorder)(nil)
	_ reconcile.SkipObserver = (*Recorder)(nil)
)

// NewRecorder registers the reconciliation metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciliation_attempts_total",
			Help: "Reconciliation attempts by entity type and outcome",
		}, []string{"entity_type", "outcome"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciliation_skipped_total",
			Help: "Reconciliation attempts skipped before taking the lock, by reason",
		}, []string{"entity_type", "reason"}),
		drift: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciliation_drift_rows_total",
			Help: "Rows found drifting between Primary and Mirror, by kind",
		}, []string{"entity_type", "kind"}),
		repairFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciliation_repair_failures_total",
			Help: "Repairs that failed after exhausting retries",
		}, []string{"entity_type"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reconciliation_duration_seconds",
			Help:    "Wall clock duration of finalized attempts",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"entity_type", "outcome"}),
	}
}

// AttemptFinished records a finalized attempt.
func (r *Recorder) AttemptFinished(_ context.Context, record reconcile.Record, drift reconcile.Drift) {
	outcome := OutcomeSuccess
	if record.Status == reconcile.StatusFailed {
		outcome = OutcomeFailed
	}
	entity := record.EntityType

	r.attempts.WithLabelValues(entity, outcome).Inc()
	if record.EndedAt >= record.StartedAt {
		elapsed := time.Duration(record.EndedAt-record.StartedAt) * time.Millisecond
		r.duration.WithLabelValues(entity, outcome).Observe(elapsed.Seconds())
	}

	if n := len(drift.Missing); n > 0 {
		r.drift.WithLabelValues(entity, "missing").Add(float64(n))
	}
	if n := len(drift.Extra); n > 0 {
		r.drift.WithLabelValues(entity, "duplicate").Add(float64(n))
	}
	if n := len(drift.Mismatches); n > 0 {
		r.drift.WithLabelValues(entity, "status_mismatch").Add(float64(n))
	}
	if record.FailedRepairs > 0 {
		r.repairFailures.WithLabelValues(entity).Add(float64(record.FailedRepairs))
	}
}

// AttemptSkipped records an attempt short-circuited by the should-run check.
func (r *Recorder) AttemptSkipped(_, entityType, reason string) {
	r.attempts.WithLabelValues(entityType, OutcomeSkipped).Inc()
	r.skipped.WithLabelValues(entityType, reason).Inc()
}
