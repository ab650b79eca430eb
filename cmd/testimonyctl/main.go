// Command testimonyctl holds operator tasks that run outside the service:
// provisioning the first administrator, cleaning up orphaned media and
// generating secrets.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "testimonyctl",
		Short: "Operator tasks for TestimonyHub",
		Long: `testimonyctl runs maintenance tasks against a TestimonyHub deployment.

Settings are read from .env and TESTIMONYHUB_* environment variables, the
same ones the service uses. Flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newSetupAdminCmd(), newReconcileCmd(), newGenKeyCmd())
	return root
}

func main() {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
