package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bher20/eratecompare/internal/config"
	"github.com/bher20/eratecompare/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "eratecompare",
		Short:        "Validate electricity price plans and compare them against metered usage",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(cfg.LogLevel)
		},
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "storage driver (memory, sqlite, postgres)")
	root.PersistentFlags().StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "storage DSN")

	root.AddCommand(
		newServeCmd(&cfg),
		newWorkerCmd(&cfg),
		newValidateCmd(),
		newCompareCmd(&cfg),
		newMigrateCmd(&cfg),
	)
	return root
}
