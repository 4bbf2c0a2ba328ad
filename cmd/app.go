package cmd

import (
	"context"
	"fmt"

	"drift-reconciler/core/archive"
	"drift-reconciler/core/config"
	"drift-reconciler/core/database"
	"drift-reconciler/core/history"
	"drift-reconciler/core/lock"
	"drift-reconciler/core/logger"
	"drift-reconciler/core/metrics"
	"drift-reconciler/core/primary"
	"drift-reconciler/core/reconcile"
	"drift-reconciler/core/scheduler"
	"drift-reconciler/core/storage"
	"drift-reconciler/core/telemetry"
	"drift-reconciler/feature/pipeline"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// services holds the wired collaborators shared by the commands.
type services struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	history  *history.Store
	engine   *reconcile.Engine
	tenants  scheduler.TenantSource
	registry *prometheus.Registry
	archiver *archive.Archiver

	closers []func()
}

// bootstrap loads the configuration and connects every store.
func bootstrap(ctx context.Context) (*services, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	rt := &services{cfg: cfg, log: logg}
	rt.onClose(func() { _ = logg.Sync() })

	if err := rt.connect(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *services) connect(ctx context.Context) error {
	cfg := rt.cfg

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	rt.db = db
	rt.history = history.NewStore(db)
	rt.log.Info("Connected to mirror database", zap.String("driver", cfg.Database.Driver))

	client, err := primary.Connect(ctx, cfg.Primary)
	if err != nil {
		return err
	}
	rt.onClose(func() { _ = client.Disconnect(context.Background()) })
	rt.log.Info("Connected to primary store", zap.String("database", cfg.Primary.Database))

	locker, closeLocker, err := lock.New(ctx, cfg.Lock)
	if err != nil {
		return err
	}
	rt.onClose(func() { _ = closeLocker() })
	if cfg.Lock.Driver != lock.DriverRedis {
		rt.log.Warn("Using in-process lock; run a single replica or set LOCK_DRIVER=redis")
	}

	observers, err := rt.observers(ctx)
	if err != nil {
		return err
	}

	rt.engine = reconcile.NewEngine(rt.history, locker, cfg.Reconcile, rt.log, reconcile.WithObservers(observers...))
	rt.tenants, err = pipeline.Register(ctx, rt.engine, pipeline.MongoCollections(client.Database(cfg.Primary.Database)), db,
		pipeline.Options{Only: cfg.Scheduler.Entities}, rt.log)
	return err
}

func (rt *services) observers(ctx context.Context) ([]reconcile.Observer, error) {
	cfg := rt.cfg

	rt.registry = prometheus.NewRegistry()
	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observers := []reconcile.Observer{metrics.NewRecorder(rt.registry)}

	if cfg.Archive.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return nil, err
		}
		rt.archiver = archive.NewArchiver(client, cfg.Storage.Bucket, cfg.Archive, rt.log)
		observers = append(observers, rt.archiver)
		rt.log.Info("Archiving drift reports", zap.String("bucket", cfg.Storage.Bucket))
	}

	if cfg.Telemetry.Enabled {
		exporter, closeExporter := telemetry.Connect(cfg.Telemetry, rt.log)
		rt.onClose(closeExporter)
		observers = append(observers, exporter)
		rt.log.Info("Exporting records to InfluxDB", zap.String("url", cfg.Telemetry.URL))
	}
	return observers, nil
}

func (rt *services) onClose(fn func()) {
	rt.closers = append(rt.closers, fn)
}

// Close releases connections in reverse order of creation.
func (rt *services) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
