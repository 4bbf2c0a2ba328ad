// Package reconcile keeps a secondary read store (the Mirror) consistent with an
// authoritative document store (Primary) and records every attempt.
//
// The package is store-agnostic: each entity type is registered as a pair of
// Primary and Mirror adapters, and the Engine drives the same algorithm for all of them.
//
// # Attempt lifecycle
//
// PerformReconciliation runs these steps for one (tenant, entity type) pair:
//
//  1. Look at the latest ReconciliationRecord and skip when the same recent window
//     was already checked, or when another attempt is still active.
//  2. Take the pair lock (reconcile:<tenant>:<entity>) with a bounded wait and a lease.
//  3. Re-check inside the lock and reclaim an abandoned in-progress record.
//  4. Persist an IN_PROGRESS record before touching the Mirror.
//  5. Load both id sets concurrently and diff them.
//  6. Insert missing rows one by one (best effort).
//  7. Delete extra rows in a single batch.
//  8. Rewrite rows whose running status Primary disagrees with.
//  9. Classify the drift and finalize the record as SUCCESS.
//
// Any failure after step 4 finalizes the record as FAILED. The lock is released on every path,
// and observers hear about the terminal record only after the release.
//
// # Drift
//
// Drift carries the three drift categories. Drift.Kind returns a DriftKind bit set,
// which maps to the persisted DetectionStatus and Action values.
//
// # Retries
//
// Every store call goes through Retry, which makes up to Config.MaxIORetries tries
// and logs each failure with its attempt number. Backoff between tries is off unless
// Config.RetryInitialBackoff is set. Wrap an error with Permanent to stop retrying.
//
// # Usage
//
//	engine := reconcile.NewEngine(store, locker, cfg.Reconcile, log,
//	    reconcile.WithObservers(metrics, archiver),
//	)
//	engine.Register("executions", primaryAdapter, mirrorAdapter)
//
//	w := reconcile.WindowEndingAt(time.Now(), time.Hour)
//	status, err := engine.PerformReconciliation(ctx, tenantID, "executions", w.Start, w.End)
package reconcile
