package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"greenmetrics/domain/core"
	"greenmetrics/domain/phasestat"
	"greenmetrics/ports"
)

// phaseStatsColumns is the COPY column order of BulkAppend
var phaseStatsColumns = []string{
	"run_id", "metric", "detail_name", "phase", "value", "type", "max_value", "min_value", "unit", "created_at",
}

// phaseStatsRepository implements the PhaseStatsRepository interface
type phaseStatsRepository struct {
	db *sqlx.DB
}

// NewPhaseStatsRepository creates a new phase stats repository
func NewPhaseStatsRepository(db *sqlx.DB) ports.PhaseStatsRepository {
	return &phaseStatsRepository{db: db}
}

// BulkAppend copies all rows in one transaction. Values are rounded to
// integers as the columns are bigint.
func (r *phaseStatsRepository) BulkAppend(ctx context.Context, rows []phasestat.Row) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("phase_stats", phaseStatsColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, row := range rows {
		if !row.Type.Valid() {
			stmt.Close()
			return fmt.Errorf("invalid value type %q for %s", row.Type, row.Metric)
		}
		_, err := stmt.ExecContext(ctx,
			row.RunID.String(), row.Metric, row.DetailName, row.Phase, int64(math.Round(row.Value)), string(row.Type),
			roundedOrNil(row.MaxValue), roundedOrNil(row.MinValue), row.Unit, row.CreatedAt,
		)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy phase stat %s: %w", row.Metric, err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit phase stats: %w", err)
	}
	return nil
}

func roundedOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return int64(math.Round(*v))
}

// ListByRun returns the stored rows of a run in insertion order
func (r *phaseStatsRepository) ListByRun(ctx context.Context, run core.RunID) ([]phasestat.Row, error) {
	query := `SELECT run_id, metric, detail_name, phase, value, type, max_value, min_value, unit, created_at
	FROM phase_stats
	WHERE run_id = $1
	ORDER BY id ASC`

	var rows []phasestat.Row
	if err := r.db.SelectContext(ctx, &rows, query, run); err != nil {
		return nil, fmt.Errorf("failed to list phase stats: %w", err)
	}
	return rows, nil
}
