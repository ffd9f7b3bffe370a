package ports

import (
	"context"

	"greenmetrics/domain/comparison"
	"greenmetrics/domain/core"
	"greenmetrics/domain/phasestat"
)

// PhaseStatsRepository persists aggregation output
type PhaseStatsRepository interface {
	// BulkAppend stores all rows or none of them
	BulkAppend(ctx context.Context, rows []phasestat.Row) error
	ListByRun(ctx context.Context, run core.RunID) ([]phasestat.Row, error)
}

// ComparisonStore reads persisted phase statistics joined with run
// dimensions for comparisons
type ComparisonStore interface {
	DimensionCounts(ctx context.Context, runs []core.RunID) (comparison.DimensionCounts, error)
	// ListComparisonRows returns rows ordered by phase, metric, detail, uri,
	// machine, usage scenario and commit, excluding *_MAX metrics
	ListComparisonRows(ctx context.Context, runs []core.RunID) ([]comparison.Row, error)
}
