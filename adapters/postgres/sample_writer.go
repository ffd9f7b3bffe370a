package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"greenmetrics/domain/measurement"
	"greenmetrics/ports"
)

type sampleWriter struct {
	db *sqlx.DB
}

// NewSampleWriter creates a writer into the measurements table
func NewSampleWriter(db *sqlx.DB) ports.SampleWriter {
	return &sampleWriter{db: db}
}

// WriteSamples copies samples in one transaction. The run rows must exist.
func (w *sampleWriter) WriteSamples(ctx context.Context, samples []measurement.Sample) error {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("measurements", "run_id", "metric", "detail_name", "unit", "time", "value"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, s := range samples {
		_, err := stmt.ExecContext(ctx, s.RunID.String(), s.Metric, s.DetailName, s.Unit, int64(s.Time), int64(math.Round(s.Value)))
		if err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy sample %s: %w", s.Metric, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}
	return tx.Commit()
}
