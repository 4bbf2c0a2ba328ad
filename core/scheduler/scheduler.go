package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"drift-reconciler/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Reconciler runs one attempt for a pair. *reconcile.Engine satisfies it.
type Reconciler interface {
	PerformReconciliation(ctx context.Context, tenantID, entityType string, windowStart, windowEnd int64) (reconcile.Status, error)
}

// Summary counts the outcomes of one sweep.
type Summary struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Scheduler sweeps every (tenant, entity) pair on a fixed interval.
type Scheduler struct {
	runner   Reconciler
	tenants  TenantSource
	entities []string
	cfg      Config
	limiter  *rate.Limiter
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a scheduler. entities is the list of registered entity types,
// narrowed by cfg.Entities when set.
func New(runner Reconciler, tenants TenantSource, entities []string, cfg Config, logger *zap.Logger) *Scheduler {
	if len(cfg.Tenants) > 0 {
		tenants = StaticTenants(cfg.Tenants)
	}
	if len(cfg.Entities) > 0 {
		entities = cfg.Entities
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}

	limit := rate.Inf
	burst := 1
	if cfg.StartRate > 0 {
		limit = rate.Limit(cfg.StartRate)
		burst = int(math.Max(1, math.Ceil(cfg.StartRate)))
	}

	return &Scheduler{
		runner:   runner,
		tenants:  tenants,
		entities: entities,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("lookback", s.cfg.Lookback),
		zap.Strings("entities", s.entities))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Reconciliation sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce reconciles every pair over the lookback window ending now.
// Failed attempts are counted, not returned.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	tenants, err := s.tenants.Tenants(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list tenants: %w", err)
	}

	window := reconcile.WindowEndingAt(s.now(), s.cfg.Lookback)

	var (
		mu      sync.Mutex
		summary Summary
	)
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for _, tenant := range tenants {
		for _, entity := range s.entities {
			if err := s.limiter.Wait(ctx); err != nil {
				_ = g.Wait()
				return summary, err
			}
			g.Go(func() error {
				status, err := s.runner.PerformReconciliation(ctx, tenant, entity, window.Start, window.End)

				mu.Lock()
				defer mu.Unlock()
				summary.Attempted++
				if status == reconcile.StatusSuccess && err == nil {
					summary.Succeeded++
					return nil
				}
				summary.Failed++
				level := s.logger.Warn
				if errors.Is(err, reconcile.ErrLockNotObtained) {
					level = s.logger.Info
				}
				level("Reconciliation attempt failed",
					zap.String("tenant", tenant),
					zap.String("entity", entity),
					zap.Error(err))
				return nil
			})
		}
	}
	_ = g.Wait()

	s.logger.Info("Reconciliation sweep finished",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return summary, nil
}
