package cmd

import (
	"testing"
	"time"

	"drift-reconciler/core/reconcile"

	"github.com/stretchr/testify/assert"
)

func TestWindowFromFlags(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reset := func() { startFlag, endFlag, lookbackFlag = 0, 0, 0 }

	t.Run("DefaultLookback", func(t *testing.T) {
		reset()
		w := windowFromFlags(now, time.Hour)
		assert.Equal(t, reconcile.WindowEndingAt(now, time.Hour), w)
	})

	t.Run("LookbackFlag", func(t *testing.T) {
		reset()
		lookbackFlag = 24 * time.Hour
		w := windowFromFlags(now, time.Hour)
		assert.Equal(t, now.Add(-24*time.Hour).UnixMilli(), w.Start)
	})

	t.Run("ExplicitWindow", func(t *testing.T) {
		reset()
		startFlag, endFlag = 100, 200
		assert.Equal(t, reconcile.Window{Start: 100, End: 200}, windowFromFlags(now, time.Hour))
	})

	t.Run("OpenEnded", func(t *testing.T) {
		reset()
		startFlag = 100
		assert.Equal(t, reconcile.Window{Start: 100, End: now.UnixMilli()}, windowFromFlags(now, time.Hour))
	})
	reset()
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["start"])
	assert.True(t, names["reconcile"])
	assert.True(t, names["migrate"])

	sub := map[string]bool{}
	for _, c := range reconcileCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"run": true, "sweep": true, "latest": true, "counts": true}, sub)
}
