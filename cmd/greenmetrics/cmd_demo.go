package main

import (
	"github.com/spf13/cobra"

	"greenmetrics/app"
	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
	"greenmetrics/domain/metrics"
	"greenmetrics/internal"
	"greenmetrics/internal/config"
	"greenmetrics/internal/errors"
	"greenmetrics/internal/testkit"
)

func newDemoCmd() *cobra.Command {
	var (
		runs   int
		powerA float64
		powerB float64
		seed   int64
		out    reportOutputs
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Aggregate and compare generated runs without a database",
		Long: `Generate runs on two machines with the given [RUNTIME] power, aggregate
them in memory and print their comparison report.

Example: greenmetrics demo --runs 5 --power-a 60000 --power-b 75000 --html demo.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runs < 1 {
				return errors.InvalidInput("--runs must be at least 1")
			}
			ctx := cmd.Context()
			logger := internal.NewLoggerTo(cmd.ErrOrStderr(), internal.LogLevelWarn)

			store := testkit.NewStore()
			agg := app.NewAggregationService(store, store, config.DefaultSCI().Params(), nil, logger)

			var ids []core.RunID
			for m, power := range []float64{powerA, powerB} {
				for i := 0; i < runs; i++ {
					rc := testkit.DefaultRunConfig()
					rc.MachineID = m + 1
					rc.Seed = seed + int64(m*runs+i)
					rc.PhasePower[measurement.PhaseRuntime] = power

					run := testkit.GenerateRun(rc)
					store.AddRun(run)
					if _, err := agg.Aggregate(ctx, run.ID); err != nil {
						return err
					}
					ids = append(ids, run.ID)
				}
			}

			r, err := app.NewComparisonService(store, metrics.MustDefault(), logger).Compare(ctx, ids)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), r, out)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 3, "Runs per machine")
	cmd.Flags().Float64Var(&powerA, "power-a", 60_000, "[RUNTIME] power of machine 1 in mW")
	cmd.Flags().Float64Var(&powerB, "power-b", 75_000, "[RUNTIME] power of machine 2 in mW")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for the generated samples")
	cmd.Flags().StringVar(&out.xlsx, "xlsx", "", "Also write the report as an xlsx workbook")
	cmd.Flags().StringVar(&out.markdown, "markdown", "", "Also write the report as markdown")
	cmd.Flags().StringVar(&out.html, "html", "", "Also write the report as an HTML page")
	return cmd
}
