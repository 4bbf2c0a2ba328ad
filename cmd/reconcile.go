package cmd

import (
	"context"
	"fmt"
	"time"

	"drift-reconciler/core/reconcile"
	"drift-reconciler/core/scheduler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	tenantFlag   string
	entityFlag   string
	lookbackFlag time.Duration
	startFlag    int64
	endFlag      int64
	limitFlag    int
)

// reconcileCmd is the parent command for all reconcile operations.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run and inspect reconciliation between Primary and Mirror",
	Long: `Run a single reconciliation attempt, sweep every tenant once, or inspect
recorded attempts and the current row counts of both stores.`,
}

var reconcileRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation attempt for a tenant and entity type",
	Long: `Run one reconciliation attempt. The window defaults to --lookback ending now;
--start and --end (epoch millis) select an explicit window.

Examples:
  reconcile run --tenant acme --entity executions
  reconcile run --tenant acme --entity deployments --lookback 24h`,
	RunE: runReconcile,
}

var reconcileSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reconcile every tenant and entity type once",
	RunE:  runSweep,
}

var reconcileLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the latest reconciliation records of a tenant and entity type",
	RunE:  runLatest,
}

var reconcileCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Compare row counts of Primary and Mirror without repairing",
	RunE:  runCounts,
}

func init() {
	for _, c := range []*cobra.Command{reconcileRunCmd, reconcileLatestCmd, reconcileCountsCmd} {
		c.Flags().StringVar(&tenantFlag, "tenant", "", "Tenant (account) id")
		c.Flags().StringVar(&entityFlag, "entity", "", "Entity type (applications, executions, deployments)")
		_ = c.MarkFlagRequired("tenant")
		_ = c.MarkFlagRequired("entity")
	}
	for _, c := range []*cobra.Command{reconcileRunCmd, reconcileCountsCmd} {
		c.Flags().DurationVar(&lookbackFlag, "lookback", 0, "Window length ending now (defaults to scheduler.lookback)")
		c.Flags().Int64Var(&startFlag, "start", 0, "Window start in epoch millis")
		c.Flags().Int64Var(&endFlag, "end", 0, "Window end in epoch millis")
	}
	reconcileLatestCmd.Flags().IntVar(&limitFlag, "limit", 10, "Number of records to show")

	reconcileCmd.AddCommand(reconcileRunCmd, reconcileSweepCmd, reconcileLatestCmd, reconcileCountsCmd)
	RootCmd.AddCommand(reconcileCmd)
}

// windowFromFlags resolves the window from --start/--end or --lookback.
func windowFromFlags(now time.Time, defaultLookback time.Duration) reconcile.Window {
	if startFlag != 0 || endFlag != 0 {
		end := endFlag
		if end == 0 {
			end = now.UnixMilli()
		}
		return reconcile.Window{Start: startFlag, End: end}
	}
	lookback := lookbackFlag
	if lookback <= 0 {
		lookback = defaultLookback
	}
	return reconcile.WindowEndingAt(now, lookback)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	window := windowFromFlags(time.Now(), svc.cfg.Scheduler.Lookback)
	l := svc.log.With(zap.String("tenant", tenantFlag), zap.String("entity", entityFlag))
	l.Info("Starting reconciliation", zap.Int64("window_start", window.Start), zap.Int64("window_end", window.End))

	status, err := svc.engine.PerformReconciliation(ctx, tenantFlag, entityFlag, window.Start, window.End)
	if err != nil {
		return fmt.Errorf("reconciliation %s: %w", status, err)
	}

	latest, err := svc.history.Latest(ctx, tenantFlag, entityFlag)
	if err != nil {
		return err
	}
	if latest != nil {
		printRecord(l, *latest)
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	sched := scheduler.New(svc.engine, svc.tenants, svc.engine.Entities(), svc.cfg.Scheduler, svc.log)
	summary, err := sched.RunOnce(ctx)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d attempts failed", summary.Failed, summary.Attempted)
	}
	return nil
}

func runLatest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	records, err := svc.history.List(ctx, tenantFlag, entityFlag, limitFlag)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		svc.log.Info("No reconciliation recorded yet")
		return nil
	}
	for _, r := range records {
		printRecord(svc.log, r)
	}
	return nil
}

func runCounts(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	pair, ok := svc.engine.Pair(entityFlag)
	if !ok {
		return fmt.Errorf("%w: %s", reconcile.ErrUnknownEntity, entityFlag)
	}
	window := windowFromFlags(time.Now(), svc.cfg.Scheduler.Lookback)

	primaryCount, err := pair.Primary.CountInWindow(ctx, tenantFlag, window)
	if err != nil {
		return fmt.Errorf("failed to count primary rows: %w", err)
	}
	mirrorCount, err := pair.Mirror.CountInWindow(ctx, tenantFlag, window)
	if err != nil {
		return fmt.Errorf("failed to count mirror rows: %w", err)
	}

	svc.log.Info("Row counts",
		zap.String("tenant", tenantFlag),
		zap.String("entity", entityFlag),
		zap.Int64("window_start", window.Start),
		zap.Int64("window_end", window.End),
		zap.Int64("primary", primaryCount),
		zap.Int64("mirror", mirrorCount),
		zap.Int64("difference", primaryCount-mirrorCount),
	)
	return nil
}

// printRecord logs a reconciliation record.
func printRecord(l *zap.Logger, r reconcile.Record) {
	fields := []zap.Field{
		zap.String("id", r.ID),
		zap.String("status", string(r.Status)),
		zap.Int64("window_start", r.WindowStart),
		zap.Int64("window_end", r.WindowEnd),
		zap.Time("started_at", time.UnixMilli(r.StartedAt)),
	}
	if r.EndedAt > 0 {
		fields = append(fields, zap.Time("ended_at", time.UnixMilli(r.EndedAt)))
	}
	if r.Status == reconcile.StatusSuccess {
		fields = append(fields,
			zap.String("detection_status", string(r.DetectionStatus)),
			zap.String("action", string(r.Action)),
			zap.Int("missing", r.MissingCount),
			zap.Int("duplicates", r.DuplicateCount),
			zap.Int("mismatches", r.MismatchCount),
			zap.Int("failed_repairs", r.FailedRepairs),
		)
	}
	if r.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", r.FailureReason))
	}
	l.Info("Reconciliation record", fields...)
}
