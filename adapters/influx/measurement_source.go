// Package influx reads raw samples from an InfluxDB v2 bucket. Samples are
// stored in the "measurements" measurement with run_id, metric,
// detail_name and unit tags and a single "value" field, timestamped at the
// sample time.
package influx

import (
	"context"
	"fmt"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
	"greenmetrics/internal/config"
	"greenmetrics/ports"
)

const measurementName = "measurements"

// MeasurementSource implements ports.MeasurementSource over InfluxDB.
// Phases are not kept in InfluxDB and come from phases.
type MeasurementSource struct {
	client influxdb2.Client
	query  api.QueryAPI
	write  api.WriteAPIBlocking
	bucket string
	phases ports.PhaseLister
}

// NewMeasurementSource connects to the configured InfluxDB. Close releases
// the client.
func NewMeasurementSource(cfg config.InfluxConfig, phases ports.PhaseLister) *MeasurementSource {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &MeasurementSource{
		client: client,
		query:  client.QueryAPI(cfg.Org),
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket: cfg.Bucket,
		phases: phases,
	}
}

// Close releases the InfluxDB client
func (s *MeasurementSource) Close() {
	s.client.Close()
}

// Ping checks that the InfluxDB server is ready
func (s *MeasurementSource) Ping(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("InfluxDB health check failed: %w", err)
	}
	if health.Status != "pass" {
		return fmt.Errorf("InfluxDB is not ready: status %s", health.Status)
	}
	return nil
}

// WriteSamples stores raw samples, one point per sample
func (s *MeasurementSource) WriteSamples(ctx context.Context, samples []measurement.Sample) error {
	for _, smp := range samples {
		p := influxdb2.NewPoint(measurementName,
			map[string]string{
				"run_id":      smp.RunID.String(),
				"metric":      smp.Metric,
				"detail_name": smp.DetailName,
				"unit":        smp.Unit,
			},
			map[string]interface{}{"value": smp.Value},
			smp.Time.Time())
		if err := s.write.WritePoint(ctx, p); err != nil {
			return fmt.Errorf("write sample %s/%s: %w", smp.Metric, smp.DetailName, err)
		}
	}
	return nil
}

func (s *MeasurementSource) ListPhases(ctx context.Context, run core.RunID) ([]measurement.Phase, error) {
	return s.phases.ListPhases(ctx, run)
}

// ListMetrics returns the distinct metric triples of a run
func (s *MeasurementSource) ListMetrics(ctx context.Context, run core.RunID) ([]measurement.MetricKey, error) {
	result, err := s.query.Query(ctx, metricsQuery(s.bucket, run))
	if err != nil {
		return nil, fmt.Errorf("InfluxDB query failed: %w", err)
	}
	defer result.Close()

	var keys []measurement.MetricKey
	for result.Next() {
		record := result.Record()
		key := measurement.MetricKey{}
		key.Metric, _ = record.ValueByKey("metric").(string)
		key.Unit, _ = record.ValueByKey("unit").(string)
		key.DetailName, _ = record.ValueByKey("detail_name").(string)
		keys = append(keys, key)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("error reading InfluxDB results: %w", result.Err())
	}
	return keys, nil
}

// Aggregate summarizes one metric triple over [window.Start, window.End)
func (s *MeasurementSource) Aggregate(ctx context.Context, run core.RunID, key measurement.MetricKey, window measurement.Window) (measurement.RangeAggregate, error) {
	result, err := s.query.Query(ctx, aggregateQuery(s.bucket, run, key, window))
	if err != nil {
		return measurement.RangeAggregate{}, fmt.Errorf("InfluxDB query failed: %w", err)
	}
	defer result.Close()

	var agg measurement.RangeAggregate
	if result.Next() {
		record := result.Record()
		agg.Count, _ = record.ValueByKey("count").(int64)
		agg.Sum, _ = record.ValueByKey("sum").(float64)
		agg.Max, _ = record.ValueByKey("max").(float64)
		agg.Min, _ = record.ValueByKey("min").(float64)
	}
	if result.Err() != nil {
		return measurement.RangeAggregate{}, fmt.Errorf("error reading InfluxDB results: %w", result.Err())
	}
	if agg.Count > 0 {
		agg.Avg = agg.Sum / float64(agg.Count)
	}
	return agg, nil
}

// fluxString quotes s as a Flux string literal, escaping interpolation
func fluxString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `${`, `\${`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func metricsQuery(bucket string, run core.RunID) string {
	return fmt.Sprintf(`from(bucket: %s)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %s and r._field == "value" and r.run_id == %s)
  |> keep(columns: ["metric", "unit", "detail_name", "_value"])
  |> group(columns: ["metric", "unit", "detail_name"])
  |> count()
  |> group()
  |> sort(columns: ["metric", "detail_name", "unit"])`,
		fluxString(bucket), fluxString(measurementName), fluxString(run.String()))
}

// aggregateQuery converts the window from us to ns; range() includes start
// and excludes stop
func aggregateQuery(bucket string, run core.RunID, key measurement.MetricKey, window measurement.Window) string {
	return fmt.Sprintf(`from(bucket: %s)
  |> range(start: time(v: %d), stop: time(v: %d))
  |> filter(fn: (r) => r._measurement == %s and r._field == "value" and r.run_id == %s)
  |> filter(fn: (r) => r.metric == %s and r.detail_name == %s and r.unit == %s)
  |> group()
  |> map(fn: (r) => ({r with _value: float(v: r._value)}))
  |> reduce(
      identity: {count: 0, sum: 0.0, max: 0.0, min: 0.0},
      fn: (r, accumulator) => ({
        count: accumulator.count + 1,
        sum: accumulator.sum + r._value,
        max: if accumulator.count == 0 or r._value > accumulator.max then r._value else accumulator.max,
        min: if accumulator.count == 0 or r._value < accumulator.min then r._value else accumulator.min,
      }),
    )`,
		fluxString(bucket), int64(window.Start)*1000, int64(window.End)*1000,
		fluxString(measurementName), fluxString(run.String()),
		fluxString(key.Metric), fluxString(key.DetailName), fluxString(key.Unit))
}
