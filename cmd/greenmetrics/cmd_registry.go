package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"greenmetrics/domain/metrics"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the metric registry",
	}

	var required []string
	validateCmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a registry file, or the built-in registry without one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			registry, err := metrics.LoadFile(path)
			if err != nil {
				return err
			}
			if err := registry.Require(required...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registry OK: %d metrics, fingerprint %s\n", registry.Len(), registry.Fingerprint().Short())
			return nil
		},
	}
	validateCmd.Flags().StringSliceVar(&required, "require", nil, "Metrics that must be present")

	cmd.AddCommand(validateCmd)
	return cmd
}
