package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Skip reasons reported to SkipObserver.
const (
	SkipRecentlyReconciled = "recently_reconciled"
	SkipInProgress         = "in_progress"
)

// Engine reconciles registered Primary/Mirror pairs and records every attempt.
type Engine struct {
	store     RecordStore
	locker    Locker
	cfg       Config
	policy    RetryPolicy
	logger    *zap.Logger
	now       func() time.Time
	observers []Observer

	mu    sync.RWMutex
	pairs map[string]Pair
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for records and cool-down checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithObservers registers sinks notified after every finalized attempt.
func WithObservers(observers ...Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, observers...)
	}
}

// NewEngine creates an engine with no registered entity types.
func NewEngine(store RecordStore, locker Locker, cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		locker: locker,
		cfg:    cfg,
		policy: cfg.RetryPolicy(),
		logger: logger,
		now:    time.Now,
		pairs:  make(map[string]Pair),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register binds entityType to its stores, replacing any previous binding.
func (e *Engine) Register(entityType string, primary Primary, mirror Mirror) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pairs[entityType] = Pair{Primary: primary, Mirror: mirror}
}

// Pair returns the stores registered for entityType.
func (e *Engine) Pair(entityType string) (Pair, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.pairs[entityType]
	return p, ok
}

// Entities lists the registered entity types in order.
func (e *Engine) Entities() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.pairs))
	for name := range e.pairs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// LockKey is the lock name serializing attempts for one pair.
func LockKey(tenantID, entityType string) string {
	return "reconcile:" + tenantID + ":" + entityType
}

// PerformReconciliation runs one attempt for the pair over [windowStart, windowEnd].
//
// A skipped attempt (recently reconciled, or another attempt active) returns
// StatusSuccess with a nil error. Failures return StatusFailed and a *ReconcileError;
// the detailed outcome lives in the persisted record.
func (e *Engine) PerformReconciliation(ctx context.Context, tenantID, entityType string, windowStart, windowEnd int64) (Status, error) {
	window := Window{Start: windowStart, End: windowEnd}
	if err := window.Validate(); err != nil {
		return StatusFailed, unexpected("validate window", err)
	}
	pair, ok := e.Pair(entityType)
	if !ok {
		return StatusFailed, unexpected("resolve entity", fmt.Errorf("%w: %s", ErrUnknownEntity, entityType))
	}

	log := e.logger.With(
		zap.String("tenant_id", tenantID),
		zap.String("entity_type", entityType),
		zap.Int64("window_start", windowStart),
		zap.Int64("window_end", windowEnd),
	)

	// Cheap check before contending for the lock
	latest, err := e.latest(ctx, log, tenantID, entityType)
	if err != nil {
		return StatusFailed, err
	}
	if run, reason := e.shouldRun(latest); !run {
		e.skipped(log, tenantID, entityType, reason)
		return StatusSuccess, nil
	}

	lock, err := e.locker.Acquire(ctx, LockKey(tenantID, entityType), e.cfg.LockWaitTimeout, e.cfg.LockLease)
	if err != nil {
		log.Warn("Could not acquire reconciliation lock", zap.Error(err))
		return StatusFailed, transient("acquire lock", err)
	}
	// Observers run after the release so slow sinks never eat into the lease
	var done outcomes
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to release reconciliation lock", zap.Error(err))
		}
		e.notify(context.WithoutCancel(ctx), done)
	}()

	stop := e.keepLease(ctx, log, lock)
	defer stop()

	// Another replica may have finished while we waited
	latest, err = e.latest(ctx, log, tenantID, entityType)
	if err != nil {
		return StatusFailed, err
	}
	run, reason := e.shouldRun(latest)
	if !run {
		e.skipped(log, tenantID, entityType, reason)
		return StatusSuccess, nil
	}
	if latest != nil && latest.Status == StatusInProgress {
		e.reclaim(ctx, log, *latest, &done)
	}

	return e.attempt(ctx, log, pair, tenantID, entityType, window, &done)
}

// shouldRun decides whether a new attempt is due given the latest record.
// An in-progress record whose window ended more than CoolDown ago is treated as abandoned.
func (e *Engine) shouldRun(latest *Record) (bool, string) {
	if latest == nil {
		return true, ""
	}
	now := e.now().UnixMilli()
	coolDown := e.cfg.CoolDown.Milliseconds()

	if latest.Status == StatusInProgress {
		if now-latest.WindowEnd > coolDown {
			return true, ""
		}
		return false, SkipInProgress
	}

	finishedRecently := now-latest.EndedAt <= coolDown
	windowRecent := latest.WindowEnd >= now-coolDown && latest.WindowEnd <= now
	if finishedRecently && windowRecent {
		return false, SkipRecentlyReconciled
	}
	return true, ""
}

func (e *Engine) latest(ctx context.Context, log *zap.Logger, tenantID, entityType string) (*Record, error) {
	rec, err := RetryValue(ctx, log, e.policy, "load latest record", func(ctx context.Context) (*Record, error) {
		return e.store.Latest(ctx, tenantID, entityType)
	})
	if err != nil {
		return nil, transient("load latest record", err)
	}
	return rec, nil
}

// reclaim marks an abandoned record failed. Losing the race to another
// writer is fine; the record is terminal either way.
func (e *Engine) reclaim(ctx context.Context, log *zap.Logger, stale Record, done *outcomes) {
	failed := stale.Fail(Abandoned.String(), e.now())
	err := e.update(ctx, log, failed)
	switch {
	case err == nil:
		log.Info("Reclaimed abandoned reconciliation record", zap.String("record_id", stale.ID))
		done.add(failed, Drift{})
	case errors.Is(err, ErrRecordFinalized):
		log.Debug("Abandoned record already finalized", zap.String("record_id", stale.ID))
	default:
		log.Warn("Failed to reclaim abandoned record", zap.String("record_id", stale.ID), zap.Error(err))
	}
}

// attempt runs steps that must leave a terminal record behind.
func (e *Engine) attempt(ctx context.Context, log *zap.Logger, pair Pair, tenantID, entityType string, window Window, done *outcomes) (status Status, err error) {
	record := NewRecord(tenantID, entityType, window, e.now())
	id, err := RetryValue(ctx, log, e.policy, "create record", func(ctx context.Context) (string, error) {
		return e.store.Create(ctx, record)
	})
	if err != nil {
		return StatusFailed, transient("create record", err)
	}
	record.ID = id
	log = log.With(zap.String("record_id", id))
	log.Info("Reconciliation started")

	var drift Drift
	defer func() {
		if r := recover(); r != nil {
			err = unexpected("reconcile", fmt.Errorf("panic: %v", r))
			status = e.fail(ctx, log, record, drift, err, done)
		}
	}()

	drift, failedRepairs, err := e.detectAndRepair(ctx, log, pair, tenantID, window)
	if err != nil {
		return e.fail(ctx, log, record, drift, err, done), err
	}

	final := record.Finish(drift, failedRepairs, e.now())
	if err := e.update(ctx, log, final); err != nil {
		err = transient("finalize record", err)
		if errors.Is(err, ErrRecordFinalized) {
			log.Warn("Record was finalized by another attempt", zap.Error(err))
			return StatusFailed, err
		}
		return e.fail(ctx, log, record, drift, err, done), err
	}

	log.Info("Reconciliation finished",
		zap.String("detection_status", string(final.DetectionStatus)),
		zap.String("action", string(final.Action)),
		zap.Int("missing", final.MissingCount),
		zap.Int("duplicates", final.DuplicateCount),
		zap.Int("mismatches", final.MismatchCount),
		zap.Int("failed_repairs", failedRepairs),
	)
	done.add(final, drift)
	return StatusSuccess, nil
}

func (e *Engine) detectAndRepair(ctx context.Context, log *zap.Logger, pair Pair, tenantID string, window Window) (Drift, int, error) {
	var primaryIDs, mirrorIDs IDSet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := RetryValue(gctx, log, e.policy, "load primary ids", func(ctx context.Context) (IDSet, error) {
			return pair.Primary.IDsInWindow(ctx, tenantID, window)
		})
		if err != nil {
			return transient("load primary ids", err)
		}
		primaryIDs = ids
		return nil
	})
	g.Go(func() error {
		ids, err := RetryValue(gctx, log, e.policy, "load mirror ids", func(ctx context.Context) (IDSet, error) {
			return pair.Mirror.IDsInWindow(ctx, tenantID, window)
		})
		if err != nil {
			return transient("load mirror ids", err)
		}
		mirrorIDs = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return Drift{}, 0, err
	}

	drift := Diff(primaryIDs, mirrorIDs)

	failed, err := e.repairMissing(ctx, log, pair, tenantID, drift.Missing)
	if err != nil {
		return drift, failed, err
	}
	failed += e.repairDuplicates(ctx, log, pair, tenantID, drift.Extra)

	mismatches, statusFailed, err := e.repairStatuses(ctx, log, pair, tenantID)
	if err != nil {
		return drift, failed, err
	}
	drift.Mismatches = mismatches

	return drift, failed + statusFailed, nil
}

// repairMissing copies each missing row from Primary. Failures are counted, not fatal.
func (e *Engine) repairMissing(ctx context.Context, log *zap.Logger, pair Pair, tenantID string, ids []string) (int, error) {
	failed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return failed, transient("repair missing", err)
		}
		row, err := e.fetch(ctx, log, pair, tenantID, id)
		if errors.Is(err, ErrRowNotFound) {
			log.Debug("Missing row no longer in primary", zap.String("id", id))
			continue
		}
		if err != nil {
			log.Error("Failed to fetch missing row", zap.String("id", id), zap.Error(err))
			failed++
			continue
		}
		if err := Retry(ctx, log, e.policy, "insert mirror row", func(ctx context.Context) error {
			return pair.Mirror.Insert(ctx, row)
		}); err != nil {
			log.Error("Failed to insert missing row", zap.String("id", id), zap.Error(err))
			failed++
		}
	}
	return failed, nil
}

// repairDuplicates removes every extra id in a single batch.
func (e *Engine) repairDuplicates(ctx context.Context, log *zap.Logger, pair Pair, tenantID string, ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	err := Retry(ctx, log, e.policy, "delete mirror rows", func(ctx context.Context) error {
		return pair.Mirror.DeleteBatch(ctx, tenantID, ids)
	})
	if err != nil {
		log.Error("Failed to remove duplicate rows", zap.Int("count", len(ids)), zap.Error(err))
		return len(ids)
	}
	return 0
}

// repairStatuses rewrites every mirror row whose running status Primary disagrees with.
func (e *Engine) repairStatuses(ctx context.Context, log *zap.Logger, pair Pair, tenantID string) (map[string]StatusPair, int, error) {
	running, err := RetryValue(ctx, log, e.policy, "load mirror running statuses", func(ctx context.Context) (map[string]string, error) {
		return pair.Mirror.RunningStatuses(ctx, tenantID)
	})
	if err != nil {
		return nil, 0, transient("load mirror running statuses", err)
	}
	if len(running) == 0 {
		return map[string]StatusPair{}, 0, nil
	}

	ids := make([]string, 0, len(running))
	for id := range running {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	current, err := RetryValue(ctx, log, e.policy, "load primary statuses", func(ctx context.Context) (map[string]string, error) {
		return pair.Primary.Statuses(ctx, tenantID, ids)
	})
	if err != nil {
		return nil, 0, transient("load primary statuses", err)
	}

	mismatches := CompareStatuses(running, current)
	failed := 0
	for _, id := range ids {
		if _, ok := mismatches[id]; !ok {
			continue
		}
		row, err := e.fetch(ctx, log, pair, tenantID, id)
		if err != nil {
			log.Error("Failed to fetch row for status repair", zap.String("id", id), zap.Error(err))
			failed++
			continue
		}
		if err := Retry(ctx, log, e.policy, "replace mirror row", func(ctx context.Context) error {
			return pair.Mirror.Replace(ctx, row)
		}); err != nil {
			log.Error("Failed to repair row status", zap.String("id", id), zap.Error(err))
			failed++
		}
	}
	return mismatches, failed, nil
}

func (e *Engine) fetch(ctx context.Context, log *zap.Logger, pair Pair, tenantID, id string) (Row, error) {
	return RetryValue(ctx, log, e.policy, "fetch primary row", func(ctx context.Context) (Row, error) {
		row, err := pair.Primary.Fetch(ctx, tenantID, id)
		if errors.Is(err, ErrRowNotFound) {
			return row, Permanent(err)
		}
		return row, err
	})
}

func (e *Engine) update(ctx context.Context, log *zap.Logger, record Record) error {
	return Retry(ctx, log, e.policy, "update record", func(ctx context.Context) error {
		err := e.store.Update(ctx, record)
		if errors.Is(err, ErrRecordFinalized) {
			return Permanent(err)
		}
		return err
	})
}

// fail finalizes record as FAILED with cause as the reason.
func (e *Engine) fail(ctx context.Context, log *zap.Logger, record Record, drift Drift, cause error, done *outcomes) Status {
	ctx = context.WithoutCancel(ctx)
	failed := record.Fail(cause.Error(), e.now())
	log.Error("Reconciliation failed", zap.Error(cause))
	if err := e.update(ctx, log, failed); err != nil {
		log.Error("Failed to mark record failed", zap.Error(err))
		return StatusFailed
	}
	done.add(failed, drift)
	return StatusFailed
}

// keepLease refreshes lock every LockRenewInterval until the returned stop is called.
func (e *Engine) keepLease(ctx context.Context, log *zap.Logger, lock Lock) (stop func()) {
	if e.cfg.LockRenewInterval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(e.cfg.LockRenewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.Refresh(ctx, e.cfg.LockLease); err != nil && ctx.Err() == nil {
					log.Warn("Failed to renew reconciliation lock", zap.Error(err))
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// outcome is a terminal record waiting to be handed to the observers.
type outcome struct {
	record Record
	drift  Drift
}

type outcomes []outcome

func (o *outcomes) add(record Record, drift Drift) {
	*o = append(*o, outcome{record: record, drift: drift})
}

func (e *Engine) notify(ctx context.Context, done outcomes) {
	for _, d := range done {
		for _, o := range e.observers {
			o.AttemptFinished(ctx, d.record, d.drift)
		}
	}
}

func (e *Engine) skipped(log *zap.Logger, tenantID, entityType, reason string) {
	log.Debug("Reconciliation skipped", zap.String("reason", reason))
	for _, o := range e.observers {
		if so, ok := o.(SkipObserver); ok {
			so.AttemptSkipped(tenantID, entityType, reason)
		}
	}
}
