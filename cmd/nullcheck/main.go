package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "nullcheck",
	Short: "Check nullability constraint declarations and the records they govern",
	Long: `nullcheck works with the constraint declaration files read by the
nullguard server.

  lint     fail on any misconfigured constraint
  eval     evaluate JSON records against the declared constraints
  migrate  create the declarations table in Postgres
  push     upsert a declarations file into Postgres for one tenant`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(newLintCmd(), newEvalCmd(), newMigrateCmd(), newPushCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRecordsInvalid) {
			fmt.Fprintln(os.Stderr, "nullcheck:", err)
		}
		os.Exit(1)
	}
}
