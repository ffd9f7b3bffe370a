package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"greenmetrics/adapters/excel"
	"greenmetrics/domain/core"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <run-id> <file>",
		Short: "Import raw samples of a run from an xlsx or csv file",
		Long: `Read samples with the columns metric, detail_name, unit, time (us) and
value and store them for an existing run. Samples go to InfluxDB when
INFLUX_URL is set and to the measurements table otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cfg, logger, db, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			samples, err := excel.NewSampleReader(args[1], logger).ReadSamples(run)
			if err != nil {
				return err
			}

			writer, closeWriter, err := sampleWriter(ctx, cfg, db)
			if err != nil {
				return err
			}
			defer closeWriter()

			if err := writer.WriteSamples(ctx, samples); err != nil {
				return err
			}
			logger.Info("imported %d samples into run %s", len(samples), run)
			fmt.Fprintf(cmd.OutOrStdout(), "%d samples imported\n", len(samples))
			return nil
		},
	}
}
