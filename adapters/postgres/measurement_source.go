package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
	"greenmetrics/ports"
)

// measurementSource reads raw samples from the measurements table
type measurementSource struct {
	db *sqlx.DB
}

// NewMeasurementSource creates a measurement source over the measurements
// and runs tables
func NewMeasurementSource(db *sqlx.DB) ports.MeasurementSource {
	return &measurementSource{db: db}
}

// ListMetrics returns the distinct metric triples of a run
func (s *measurementSource) ListMetrics(ctx context.Context, run core.RunID) ([]measurement.MetricKey, error) {
	query := `SELECT metric, unit, detail_name
	FROM measurements
	WHERE run_id = $1
	GROUP BY metric, unit, detail_name
	ORDER BY metric ASC, detail_name ASC, unit ASC`

	var keys []measurement.MetricKey
	if err := s.db.SelectContext(ctx, &keys, query, run); err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	return keys, nil
}

// Aggregate summarizes one metric triple over [window.Start, window.End)
func (s *measurementSource) Aggregate(ctx context.Context, run core.RunID, key measurement.MetricKey, window measurement.Window) (measurement.RangeAggregate, error) {
	query := `SELECT
		COALESCE(SUM(value), 0)::double precision AS sum,
		COALESCE(MAX(value), 0)::double precision AS max,
		COALESCE(MIN(value), 0)::double precision AS min,
		COALESCE(AVG(value), 0)::double precision AS avg,
		COUNT(value) AS count
	FROM measurements
	WHERE run_id = $1 AND metric = $2 AND detail_name = $3 AND unit = $4
		AND time >= $5 AND time < $6`

	var agg measurement.RangeAggregate
	err := s.db.GetContext(ctx, &agg, query,
		run, key.Metric, key.DetailName, key.Unit, int64(window.Start), int64(window.End))
	if err != nil {
		return measurement.RangeAggregate{}, fmt.Errorf("failed to aggregate %s: %w", key, err)
	}
	return agg, nil
}

// storedPhase is the JSON shape of one entry of runs.phases
type storedPhase struct {
	Name  string `json:"name"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// ListPhases decodes the phases of a run in stored order
func (s *measurementSource) ListPhases(ctx context.Context, run core.RunID) ([]measurement.Phase, error) {
	return listPhases(ctx, s.db, run)
}

func listPhases(ctx context.Context, db *sqlx.DB, run core.RunID) ([]measurement.Phase, error) {
	var raw []byte
	err := db.QueryRowContext(ctx, `SELECT phases FROM runs WHERE id = $1`, run).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, run)
		}
		return nil, fmt.Errorf("failed to get phases: %w", err)
	}
	return decodePhases(raw)
}

func decodePhases(raw []byte) ([]measurement.Phase, error) {
	var stored []storedPhase
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal phases: %w", err)
	}
	phases := make([]measurement.Phase, len(stored))
	for i, p := range stored {
		phases[i] = measurement.Phase{
			Index: i,
			Name:  p.Name,
			Start: core.Microseconds(p.Start),
			End:   core.Microseconds(p.End),
		}
	}
	return phases, nil
}

// phaseLister exposes the phases of the runs table on its own, for sources
// that keep samples elsewhere
type phaseLister struct {
	db *sqlx.DB
}

// NewPhaseLister creates a phase lister over the runs table
func NewPhaseLister(db *sqlx.DB) ports.PhaseLister {
	return &phaseLister{db: db}
}

func (l *phaseLister) ListPhases(ctx context.Context, run core.RunID) ([]measurement.Phase, error) {
	return listPhases(ctx, l.db, run)
}
