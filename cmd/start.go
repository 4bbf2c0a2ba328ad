package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drift-reconciler/core/loader"
	"drift-reconciler/core/logger"
	"drift-reconciler/core/middleware/auth"
	"drift-reconciler/core/middleware/rayid"
	"drift-reconciler/core/scheduler"
	"drift-reconciler/feature/reconciliation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server and the reconciliation scheduler",
	Long:  `Starts the HTTP server, registers every entity type and runs periodic reconciliation until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.history.Migrate(ctx); err != nil {
			return err
		}

		app := newServer(svc)

		if svc.cfg.Scheduler.Enabled {
			sched := scheduler.New(svc.engine, svc.tenants, svc.engine.Entities(), svc.cfg.Scheduler, svc.log.Named("scheduler"))
			go func() {
				_ = sched.Run(ctx)
			}()
		}

		errCh := make(chan error, 1)
		go func() {
			svc.log.Info("Starting server", zap.String("port", svc.cfg.Server.Port))
			errCh <- app.Listen(":" + svc.cfg.Server.Port)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		svc.log.Info("Shutting down server...")
		timeout := time.Duration(svc.cfg.Server.ShutdownTimeoutSeconds) * time.Second
		return app.ShutdownWithTimeout(timeout)
	},
}

// newServer builds the Fiber app with middleware, metrics and features.
func newServer(svc *services) *fiber.App {
	cfg := svc.cfg
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so every log line can be traced
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(svc.log, c)
		l.Debug("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if cfg.Server.MetricsPath != "" {
		app.Get(cfg.Server.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(svc.registry, promhttp.HandlerOpts{})))
	}

	app.Use(auth.New(auth.Config{
		ApiKey: cfg.Server.ApiKey,
		Skip:   func(c *fiber.Ctx) bool { return cfg.Server.IsPublic(c.Path()) },
	}))

	var reports reconciliation.Reports
	if svc.archiver != nil {
		reports = svc.archiver
	}

	mgr := loader.NewManager()
	mgr.Register(reconciliation.NewFeature(
		reconciliation.NewService(svc.engine, svc.history, reports, cfg.Scheduler.Lookback, svc.log),
	))
	if err := mgr.LoadAll(app); err != nil {
		svc.log.Fatal("Failed to load features", zap.Error(err))
	}
	svc.log.Info("Features loaded", zap.Strings("features", mgr.Loaded()))

	return app
}

func init() {
	RootCmd.AddCommand(startCmd)
}
