// Package telemetry declares the Prometheus metrics of aggregation and
// comparison runs.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenmetrics_aggregation_runs_total",
		Help: "Total run aggregations by outcome",
	}, []string{"outcome"})

	aggregationRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenmetrics_aggregation_rows_total",
		Help: "Phase statistic rows emitted by value type",
	}, []string{"type"})

	aggregationSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "greenmetrics_aggregation_empty_windows_total",
		Help: "Metric/phase combinations skipped because no sample fell in the window",
	})

	aggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "greenmetrics_aggregation_duration_seconds",
		Help:    "Duration of one run aggregation including persistence",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})

	comparisons = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenmetrics_comparisons_total",
		Help: "Comparisons by resolved case, or error",
	}, []string{"case"})
)

// Outcomes recorded for aggregation runs
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ObserveAggregation records one finished aggregation
func ObserveAggregation(outcome string, started time.Time) {
	aggregationRuns.WithLabelValues(outcome).Inc()
	aggregationDuration.Observe(time.Since(started).Seconds())
}

// CountRow records one emitted row of the given value type
func CountRow(valueType string) {
	aggregationRows.WithLabelValues(valueType).Inc()
}

// CountEmptyWindow records a skipped zero-sample window
func CountEmptyWindow() {
	aggregationSkipped.Inc()
}

// CountComparison records a comparison by case label
func CountComparison(caseLabel string) {
	comparisons.WithLabelValues(caseLabel).Inc()
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// format, for batch invocations that exit before a scrape.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
