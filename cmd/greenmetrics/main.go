package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"greenmetrics/internal/errors"
	"greenmetrics/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.ExitCode(err))
	}
}

// rootOptions are the persistent flags shared by all commands
type rootOptions struct {
	envFile    string
	metricsOut string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "greenmetrics",
		Short: "Phase statistics and run comparisons for energy measurements",
		Long: `greenmetrics turns the raw samples of benchmark runs into per-phase
energy, power and carbon statistics and compares runs across repositories,
usage scenarios, machines and commits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.metricsOut == "" {
				return nil
			}
			return telemetry.WriteTextfile(opts.metricsOut)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Load configuration from this .env file instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&opts.metricsOut, "metrics-out", "", "Write Prometheus metrics in text format to this file on success")

	rootCmd.AddCommand(
		newAggregateCmd(opts),
		newCompareCmd(opts),
		newImportCmd(opts),
		newMigrateCmd(opts),
		newRegistryCmd(),
		newDemoCmd(),
	)
	return rootCmd
}
