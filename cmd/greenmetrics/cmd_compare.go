package main

import (
	"github.com/spf13/cobra"

	"greenmetrics/adapters/postgres"
	"greenmetrics/app"
	"greenmetrics/domain/core"
	"greenmetrics/domain/metrics"
)

func newCompareCmd(opts *rootOptions) *cobra.Command {
	var out reportOutputs

	cmd := &cobra.Command{
		Use:   "compare <run-id>...",
		Short: "Compare the stored phase statistics of runs",
		Long: `Determine what differs between the runs (repository, usage scenario,
machine, commit or nothing), group their phase statistics accordingly and
print the comparison report as JSON. With two groups every shared metric
gets a Welch t-test.

Example: greenmetrics compare <id1> <id2> <id3> <id4> --markdown report.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := core.ParseRunIDs(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cfg, logger, db, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			registry, err := metrics.LoadFile(cfg.Registry.Path)
			if err != nil {
				return err
			}

			logger.Debug("using metric registry %s", registry.Fingerprint().Short())

			r, err := app.NewComparisonService(postgres.NewComparisonStore(db), registry, logger).Compare(ctx, ids)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), r, out)
		},
	}

	cmd.Flags().StringVar(&out.xlsx, "xlsx", "", "Also write the report as an xlsx workbook")
	cmd.Flags().StringVar(&out.markdown, "markdown", "", "Also write the report as markdown")
	cmd.Flags().StringVar(&out.html, "html", "", "Also write the report as an HTML page")
	return cmd
}
