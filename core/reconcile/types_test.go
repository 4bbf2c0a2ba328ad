package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Validate(t *testing.T) {
	assert.NoError(t, Window{Start: 1, End: 1}.Validate())
	assert.NoError(t, Window{Start: 0, End: 10}.Validate())
	assert.Error(t, Window{Start: 10, End: 1}.Validate())
	assert.Error(t, Window{Start: -1, End: 1}.Validate())
}

func TestWindowEndingAt(t *testing.T) {
	end := time.UnixMilli(10_000_000)
	w := WindowEndingAt(end, time.Hour)
	assert.Equal(t, int64(10_000_000), w.End)
	assert.Equal(t, int64(10_000_000-3_600_000), w.Start)
}

func TestRecord_Transitions(t *testing.T) {
	started := time.UnixMilli(1_000)
	rec := NewRecord("t1", "applications", Window{Start: 10, End: 20}, started)
	rec.ID = "r1"

	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, int64(1_000), rec.StartedAt)
	assert.Zero(t, rec.EndedAt)
	assert.False(t, rec.Status.IsTerminal())

	done := rec.Finish(Drift{Missing: []string{"a", "b"}, Extra: []string{"c"}}, 1, time.UnixMilli(2_000))
	assert.Equal(t, StatusSuccess, done.Status)
	assert.Equal(t, DetectionMissingAndDuplicate, done.DetectionStatus)
	assert.Equal(t, ActionAddMissingAndRemoveDuplicates, done.Action)
	assert.Equal(t, 2, done.MissingCount)
	assert.Equal(t, 1, done.DuplicateCount)
	assert.Equal(t, 1, done.FailedRepairs)
	assert.Equal(t, int64(2_000), done.EndedAt)
	assert.True(t, done.Status.IsTerminal())

	// The original value is untouched
	assert.Equal(t, StatusInProgress, rec.Status)

	failed := rec.Fail("boom", time.UnixMilli(3_000))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.FailureReason)
	assert.Equal(t, "r1", failed.ID)
}
