package ports

import (
	"context"

	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
)

// PhaseLister provides the ordered phases of a run
type PhaseLister interface {
	ListPhases(ctx context.Context, run core.RunID) ([]measurement.Phase, error)
}

// MeasurementSource provides the raw samples of a run in aggregated form.
// Aggregate covers the half-open window [Start, End).
type MeasurementSource interface {
	PhaseLister

	// ListMetrics returns the distinct (metric, unit, detail) triples of the
	// run in a stable order
	ListMetrics(ctx context.Context, run core.RunID) ([]measurement.MetricKey, error)
	Aggregate(ctx context.Context, run core.RunID, key measurement.MetricKey, window measurement.Window) (measurement.RangeAggregate, error)
}

// SampleWriter stores raw samples, for imports from files
type SampleWriter interface {
	WriteSamples(ctx context.Context, samples []measurement.Sample) error
}
