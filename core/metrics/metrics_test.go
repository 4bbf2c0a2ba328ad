package metrics

import (
	"context"
	"testing"

	"drift-reconciler/core/reconcile"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_AttemptFinished(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	record := reconcile.Record{
		EntityType:    "executions",
		Status:        reconcile.StatusSuccess,
		StartedAt:     1000,
		EndedAt:       3000,
		FailedRepairs: 2,
	}
	drift := reconcile.Drift{
		Missing:    []string{"a", "b"},
		Extra:      []string{"c"},
		Mismatches: map[string]reconcile.StatusPair{},
	}
	r.AttemptFinished(context.Background(), record, drift)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.attempts.WithLabelValues("executions", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.drift.WithLabelValues("executions", "missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.drift.WithLabelValues("executions", "duplicate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.repairFailures.WithLabelValues("executions")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
	// status_mismatch was never incremented
	assert.Equal(t, 2, testutil.CollectAndCount(r.drift))
}

func TestRecorder_Failed(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.AttemptFinished(context.Background(), reconcile.Record{
		EntityType: "deployments",
		Status:     reconcile.StatusFailed,
		StartedAt:  10,
		EndedAt:    20,
	}, reconcile.Drift{})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.attempts.WithLabelValues("deployments", OutcomeFailed)))
	assert.Equal(t, 0, testutil.CollectAndCount(r.drift))
}

func TestRecorder_AttemptSkipped(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.AttemptSkipped("acme", "applications", reconcile.SkipRecentlyReconciled)
	r.AttemptSkipped("acme", "applications", reconcile.SkipRecentlyReconciled)
	r.AttemptSkipped("acme", "applications", reconcile.SkipInProgress)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.attempts.WithLabelValues("applications", OutcomeSkipped)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.skipped.WithLabelValues("applications", reconcile.SkipRecentlyReconciled)))
}

func TestNewRecorder_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	assert.Panics(t, func() { NewRecorder(reg) })
}
