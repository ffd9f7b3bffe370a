// Package measurement holds the raw inputs of phase aggregation: samples
// written by metric providers and the phases a run was split into.
package measurement

import (
	"fmt"

	"greenmetrics/domain/core"
)

// Sample is one raw reading written by a metric provider. Samples are
// append-only and ordered by Time within a run.
type Sample struct {
	RunID      core.RunID        `json:"run_id" db:"run_id"`
	Metric     string            `json:"metric" db:"metric"`
	DetailName string            `json:"detail_name" db:"detail_name"`
	Time       core.Microseconds `json:"time" db:"time"`
	Value      float64           `json:"value" db:"value"`
	Unit       string            `json:"unit" db:"unit"`
}

// MetricKey is one distinct (metric, unit, detail) combination of a run
type MetricKey struct {
	Metric     string `json:"metric" db:"metric"`
	Unit       string `json:"unit" db:"unit"`
	DetailName string `json:"detail_name" db:"detail_name"`
}

func (k MetricKey) String() string {
	return fmt.Sprintf("%s/%s [%s]", k.Metric, k.DetailName, k.Unit)
}

// Well-known phase names. Only [IDLE] and [RUNTIME] change aggregation
// behavior; the rest are listed for fixtures and reports.
const (
	PhaseBaseline     = "[BASELINE]"
	PhaseInstallation = "[INSTALLATION]"
	PhaseBoot         = "[BOOT]"
	PhaseIdle         = "[IDLE]"
	PhaseRuntime      = "[RUNTIME]"
	PhaseRemove       = "[REMOVE]"
)

// Phase is a named time window within a run, in run order
type Phase struct {
	Index int               `json:"index"`
	Name  string            `json:"name"`
	Start core.Microseconds `json:"start"`
	End   core.Microseconds `json:"end"`
}

// Duration is End - Start
func (p Phase) Duration() core.Microseconds {
	return p.End - p.Start
}

// Window returns the half-open [Start, End) interval of the phase
func (p Phase) Window() Window {
	return Window{Start: p.Start, End: p.End}
}

// Window is a half-open [Start, End) time interval
type Window struct {
	Start core.Microseconds
	End   core.Microseconds
}

// Contains reports whether t lies in [Start, End)
func (w Window) Contains(t core.Microseconds) bool {
	return t >= w.Start && t < w.End
}

// RangeAggregate summarizes the samples of one MetricKey inside a Window.
// When Count is zero the other fields carry no meaning.
type RangeAggregate struct {
	Sum   float64 `db:"sum"`
	Max   float64 `db:"max"`
	Min   float64 `db:"min"`
	Avg   float64 `db:"avg"`
	Count int64   `db:"count"`
}

// Empty reports whether no samples fell inside the window
func (a RangeAggregate) Empty() bool {
	return a.Count == 0
}

// AggregateSamples computes the RangeAggregate of the samples matching key
// inside w. Used by in-memory sources; SQL sources push this into the query.
func AggregateSamples(samples []Sample, key MetricKey, w Window) RangeAggregate {
	var agg RangeAggregate
	for _, s := range samples {
		if s.Metric != key.Metric || s.DetailName != key.DetailName || s.Unit != key.Unit {
			continue
		}
		if !w.Contains(s.Time) {
			continue
		}
		if agg.Count == 0 || s.Value > agg.Max {
			agg.Max = s.Value
		}
		if agg.Count == 0 || s.Value < agg.Min {
			agg.Min = s.Value
		}
		agg.Sum += s.Value
		agg.Count++
	}
	if agg.Count > 0 {
		agg.Avg = agg.Sum / float64(agg.Count)
	}
	return agg
}
