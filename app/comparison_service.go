package app

import (
	"context"
	"fmt"

	"greenmetrics/domain/comparison"
	"greenmetrics/domain/core"
	"greenmetrics/domain/metrics"
	"greenmetrics/internal"
	"greenmetrics/internal/statistics"
	"greenmetrics/internal/telemetry"
	"greenmetrics/ports"
)

// ComparisonService builds comparison reports over persisted phase stats
type ComparisonService struct {
	store    ports.ComparisonStore
	registry *metrics.Registry
	logger   *internal.Logger
}

// NewComparisonService creates a comparison service
func NewComparisonService(store ports.ComparisonStore, registry *metrics.Registry, logger *internal.Logger) *ComparisonService {
	return &ComparisonService{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// Compare resolves the comparison case of runs, groups their phase stats
// and attaches per-group and between-group statistics
func (s *ComparisonService) Compare(ctx context.Context, runs []core.RunID) (*comparison.Report, error) {
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no run ids given", core.ErrInvalidRunID)
	}

	counts, err := s.store.DimensionCounts(ctx, runs)
	if err != nil {
		return nil, fmt.Errorf("count comparison dimensions: %w", err)
	}
	c, err := comparison.Resolve(counts)
	if err != nil {
		telemetry.CountComparison("error")
		return nil, err
	}
	s.logger.Debug("comparing %d runs as %q (%s)", len(runs), c, counts)

	rows, err := s.store.ListComparisonRows(ctx, runs)
	if err != nil {
		return nil, fmt.Errorf("list comparison rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, core.ErrNoComparisonData
	}

	tree, err := comparison.BuildTree(rows, c, s.registry)
	if err != nil {
		return nil, err
	}
	if err := statistics.ApplyGroupStatistics(tree); err != nil {
		return nil, err
	}
	// Welch tests run only between exactly two groups
	var between []comparison.PhaseComparison
	if len(tree.Groups) == 2 {
		between, err = statistics.BetweenGroups(tree)
		if err != nil {
			return nil, err
		}
	}

	telemetry.CountComparison(string(c))
	return &comparison.Report{
		Case:       c,
		Details:    tree.Keys(),
		Data:       tree,
		Statistics: between,
	}, nil
}
