package cmd

import (
	"fmt"
	"os"

	"drift-reconciler/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "drift-reconciler",
	Short: "Primary/Mirror drift reconciliation service",
	Long: `Drift Reconciler keeps the relational Mirror consistent with the authoritative
document store. It detects missing, duplicate and stale rows per tenant and entity
type, repairs them through the Mirror, and records every attempt.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console encoding with the development config reads better on a terminal
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
