package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"greenmetrics/domain/comparison"
	"greenmetrics/domain/core"
	"greenmetrics/ports"
)

// comparisonStore reads phase stats joined with their run's dimensions
type comparisonStore struct {
	db *sqlx.DB
}

// NewComparisonStore creates a comparison store
func NewComparisonStore(db *sqlx.DB) ports.ComparisonStore {
	return &comparisonStore{db: db}
}

// DimensionCounts counts distinct repos, usage scenarios, machines and
// commits among runs that have phase stats
func (s *comparisonStore) DimensionCounts(ctx context.Context, runs []core.RunID) (comparison.DimensionCounts, error) {
	query := `WITH uniques AS (
		SELECT r.uri, r.filename, r.machine_id, r.commit_hash
		FROM phase_stats AS p
		JOIN runs AS r ON p.run_id = r.id
		WHERE p.run_id = ANY($1::uuid[])
		GROUP BY r.uri, r.filename, r.machine_id, r.commit_hash
	)
	SELECT
		COUNT(DISTINCT uri) AS repos,
		COUNT(DISTINCT filename) AS usage_scenarios,
		COUNT(DISTINCT machine_id) AS machines,
		COUNT(DISTINCT commit_hash) AS commits
	FROM uniques`

	var counts comparison.DimensionCounts
	if err := s.db.GetContext(ctx, &counts, query, pq.Array(core.RunIDStrings(runs))); err != nil {
		return comparison.DimensionCounts{}, fmt.Errorf("failed to count dimensions: %w", err)
	}
	return counts, nil
}

// ListComparisonRows returns the rows of runs in comparison order
func (s *comparisonStore) ListComparisonRows(ctx context.Context, runs []core.RunID) ([]comparison.Row, error) {
	query := `SELECT
		p.phase, p.metric, p.detail_name, p.value, p.type, p.max_value, p.unit,
		r.uri, r.machine_id, r.filename AS usage_scenario_file, r.commit_hash
	FROM phase_stats AS p
	JOIN runs AS r ON r.id = p.run_id
	WHERE p.run_id = ANY($1::uuid[])
		AND p.metric NOT LIKE '%\_MAX'
	ORDER BY
		p.phase ASC,
		p.metric ASC,
		p.detail_name ASC,
		r.uri ASC,
		r.machine_id ASC,
		r.filename ASC,
		r.commit_hash ASC`

	var rows []comparison.Row
	if err := s.db.SelectContext(ctx, &rows, query, pq.Array(core.RunIDStrings(runs))); err != nil {
		return nil, fmt.Errorf("failed to list comparison rows: %w", err)
	}
	return rows, nil
}
