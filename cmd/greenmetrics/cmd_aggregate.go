package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"greenmetrics/adapters/postgres"
	"greenmetrics/app"
	"greenmetrics/domain/core"
)

func newAggregateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <run-id>...",
		Short: "Compute and store the phase statistics of runs",
		Long: `Aggregate the raw samples of each run into per-phase statistics and
store them. Runs are aggregated concurrently, up to AGGREGATION_WORKERS at
a time.

Example: greenmetrics aggregate 0190f5a2-5c1e-7b4e-9a51-6f1d2f0c9e11`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := core.ParseRunIDs(args)
			if err != nil {
				return err
			}
			ids = dedupe(ids)

			ctx := cmd.Context()
			cfg, logger, db, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			source, closeSource, err := measurementSource(ctx, cfg, db, logger)
			if err != nil {
				return err
			}
			defer closeSource()

			svc := app.NewAggregationService(source, postgres.NewPhaseStatsRepository(db),
				cfg.SCI.Params(), cfg.SCI.FunctionalUnit(), logger)

			results := make([]*app.AggregationResult, len(ids))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(cfg.Concurrency.AggregationWorkers)
			for i, id := range ids {
				i, id := i, id
				g.Go(func() error {
					res, err := svc.Aggregate(gctx, id)
					if err != nil {
						return err
					}
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
}

// dedupe drops repeated ids, keeping the first occurrence. A run must not
// be aggregated twice at the same time.
func dedupe(ids []core.RunID) []core.RunID {
	seen := make(map[core.RunID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
