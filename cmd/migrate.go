package cmd

import (
	"context"
	"errors"

	"drift-reconciler/core/config"
	"drift-reconciler/core/database"
	"drift-reconciler/core/history"
	"drift-reconciler/core/logger"
	"drift-reconciler/core/mirror"
	"drift-reconciler/feature/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verifyMirror bool

// migrateCmd creates the record table and optionally checks the mirror tables.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the reconciliation record table",
	Long: `Creates or updates the reconciliation_records table in the Mirror database.
With --verify, also checks that every mirror table has the columns the entity
profiles write. Mirror tables themselves are owned by the ingestion pipeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := config.LoadConfig(".")
		if err != nil {
			return err
		}
		l, err := logger.New(&cfg.Log)
		if err != nil {
			return err
		}
		defer l.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}

		if err := history.NewStore(db).Migrate(ctx); err != nil {
			return err
		}
		l.Info("Record table is up to date", zap.String("table", history.TableName))

		if !verifyMirror {
			return nil
		}
		var errs []error
		for _, entity := range pipeline.Entities() {
			adapter, err := mirror.NewSQLAdapter(db, entity.Mirror)
			if err == nil {
				err = adapter.Verify(ctx)
			}
			if err != nil {
				l.Error("Mirror table check failed", zap.String("entity", entity.Name), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			l.Info("Mirror table ok", zap.String("entity", entity.Name), zap.String("table", entity.Mirror.Table))
		}
		return errors.Join(errs...)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&verifyMirror, "verify", false, "Check mirror table columns")
	RootCmd.AddCommand(migrateCmd)
}
