package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drift-reconciler/core/archive"
	"drift-reconciler/core/reconcile"

	"go.uber.org/zap"
)

// ErrArchiveDisabled is returned when drift reports are requested but archiving is off.
var ErrArchiveDisabled = errors.New("drift report archive is disabled")

// Runner is the engine surface used by the service.
type Runner interface {
	PerformReconciliation(ctx context.Context, tenantID, entityType string, windowStart, windowEnd int64) (reconcile.Status, error)
	Pair(entityType string) (reconcile.Pair, bool)
}

// History reads persisted reconciliation records.
type History interface {
	Latest(ctx context.Context, tenantID, entityType string) (*reconcile.Record, error)
	List(ctx context.Context, tenantID, entityType string, limit int) ([]reconcile.Record, error)
}

// Reports reads archived drift reports.
type Reports interface {
	Get(ctx context.Context, tenantID, entityType, recordID string) (*archive.Report, error)
	List(ctx context.Context, tenantID, entityType string) ([]string, error)
}

// RunResult is the outcome of a manual run.
type RunResult struct {
	Status reconcile.Status  `json:"status"`
	Window reconcile.Window  `json:"window"`
	Record *reconcile.Record `json:"record,omitempty"`
}

// Counts compares the number of rows on both sides of a window.
type Counts struct {
	Window     reconcile.Window `json:"window"`
	Primary    int64            `json:"primary"`
	Mirror     int64            `json:"mirror"`
	Difference int64            `json:"difference"`
}

// Service exposes reconciliation to the HTTP layer.
type Service struct {
	runner   Runner
	history  History
	reports  Reports
	lookback time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a service. reports may be nil when archiving is disabled.
func NewService(runner Runner, history History, reports Reports, lookback time.Duration, logger *zap.Logger) *Service {
	return &Service{
		runner:   runner,
		history:  history,
		reports:  reports,
		lookback: lookback,
		logger:   logger,
		now:      time.Now,
	}
}

// HasEntity reports whether entityType is registered.
func (s *Service) HasEntity(entityType string) bool {
	_, ok := s.runner.Pair(entityType)
	return ok
}

// Window resolves the requested window, defaulting to the lookback ending now.
func (s *Service) Window(start, end int64) reconcile.Window {
	if start == 0 && end == 0 {
		return reconcile.WindowEndingAt(s.now(), s.lookback)
	}
	if end == 0 {
		end = s.now().UnixMilli()
	}
	return reconcile.Window{Start: start, End: end}
}

// Run performs one attempt and returns its status with the latest record.
func (s *Service) Run(ctx context.Context, tenantID, entityType string, window reconcile.Window) (RunResult, error) {
	status, err := s.runner.PerformReconciliation(ctx, tenantID, entityType, window.Start, window.End)
	result := RunResult{Status: status, Window: window}
	if err != nil {
		return result, err
	}

	latest, lerr := s.history.Latest(ctx, tenantID, entityType)
	if lerr != nil {
		s.logger.Warn("Failed to load record after run", zap.Error(lerr))
		return result, nil
	}
	result.Record = latest
	return result, nil
}

// Latest returns the newest record of the pair, or nil.
func (s *Service) Latest(ctx context.Context, tenantID, entityType string) (*reconcile.Record, error) {
	return s.history.Latest(ctx, tenantID, entityType)
}

// History lists the newest records of the pair.
func (s *Service) History(ctx context.Context, tenantID, entityType string, limit int) ([]reconcile.Record, error) {
	return s.history.List(ctx, tenantID, entityType, limit)
}

// Counts reads the row counts of both stores for the window without repairing.
func (s *Service) Counts(ctx context.Context, tenantID, entityType string, window reconcile.Window) (Counts, error) {
	pair, ok := s.runner.Pair(entityType)
	if !ok {
		return Counts{}, fmt.Errorf("%w: %s", reconcile.ErrUnknownEntity, entityType)
	}

	primary, err := pair.Primary.CountInWindow(ctx, tenantID, window)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count primary rows: %w", err)
	}
	mirror, err := pair.Mirror.CountInWindow(ctx, tenantID, window)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count mirror rows: %w", err)
	}
	return Counts{Window: window, Primary: primary, Mirror: mirror, Difference: primary - mirror}, nil
}

// Report returns the archived drift report of one record.
func (s *Service) Report(ctx context.Context, tenantID, entityType, recordID string) (*archive.Report, error) {
	if s.reports == nil {
		return nil, ErrArchiveDisabled
	}
	return s.reports.Get(ctx, tenantID, entityType, recordID)
}

// Reports lists the record ids with an archived drift report.
func (s *Service) Reports(ctx context.Context, tenantID, entityType string) ([]string, error) {
	if s.reports == nil {
		return nil, ErrArchiveDisabled
	}
	return s.reports.List(ctx, tenantID, entityType)
}
