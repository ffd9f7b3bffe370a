// Package testkit provides in-memory adapters and run fixtures for tests
// of aggregation and comparison.
package testkit

import (
	"context"
	"sort"
	"strings"
	"sync"

	"greenmetrics/domain/comparison"
	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
	"greenmetrics/domain/phasestat"
)

// RunFixture is a run with its dimensions, phases and raw samples
type RunFixture struct {
	ID         core.RunID
	URI        string
	Filename   string
	MachineID  int
	CommitHash string
	Phases     []measurement.Phase
	Samples    []measurement.Sample
}

// Store is an in-memory measurement source, phase stats repository and
// comparison store. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	runs       map[core.RunID]*RunFixture
	phaseStats map[core.RunID][]phasestat.Row

	// FailAppend, when set, is returned by BulkAppend before anything is
	// stored
	FailAppend error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		runs:       make(map[core.RunID]*RunFixture),
		phaseStats: make(map[core.RunID][]phasestat.Row),
	}
}

// AddRun registers a run fixture
func (s *Store) AddRun(run RunFixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := run
	s.runs[run.ID] = &r
}

func (s *Store) run(id core.RunID) (*RunFixture, error) {
	r, ok := s.runs[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id.String())
	}
	return r, nil
}

// ListMetrics returns the distinct metric keys of a run ordered by metric,
// detail and unit
func (s *Store) ListMetrics(ctx context.Context, id core.RunID) ([]measurement.MetricKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.run(id)
	if err != nil {
		return nil, err
	}

	seen := make(map[measurement.MetricKey]bool)
	var keys []measurement.MetricKey
	for _, smp := range r.Samples {
		k := measurement.MetricKey{Metric: smp.Metric, Unit: smp.Unit, DetailName: smp.DetailName}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Metric != keys[j].Metric {
			return keys[i].Metric < keys[j].Metric
		}
		if keys[i].DetailName != keys[j].DetailName {
			return keys[i].DetailName < keys[j].DetailName
		}
		return keys[i].Unit < keys[j].Unit
	})
	return keys, nil
}

func (s *Store) Aggregate(ctx context.Context, id core.RunID, key measurement.MetricKey, w measurement.Window) (measurement.RangeAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.run(id)
	if err != nil {
		return measurement.RangeAggregate{}, err
	}
	return measurement.AggregateSamples(r.Samples, key, w), nil
}

func (s *Store) ListPhases(ctx context.Context, id core.RunID) ([]measurement.Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.run(id)
	if err != nil {
		return nil, err
	}
	return append([]measurement.Phase(nil), r.Phases...), nil
}

// BulkAppend stores rows atomically: either all rows become visible or,
// when FailAppend is set, none do
func (s *Store) BulkAppend(ctx context.Context, rows []phasestat.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	for _, row := range rows {
		s.phaseStats[row.RunID] = append(s.phaseStats[row.RunID], row)
	}
	return nil
}

func (s *Store) ListByRun(ctx context.Context, id core.RunID) ([]phasestat.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]phasestat.Row(nil), s.phaseStats[id]...), nil
}

// DimensionCounts counts distinct dimensions over runs that have stats
func (s *Store) DimensionCounts(ctx context.Context, ids []core.RunID) (comparison.DimensionCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris, files, machines, commits := map[string]bool{}, map[string]bool{}, map[int]bool{}, map[string]bool{}
	for _, id := range ids {
		r, ok := s.runs[id]
		if !ok || len(s.phaseStats[id]) == 0 {
			continue
		}
		uris[r.URI] = true
		files[r.Filename] = true
		machines[r.MachineID] = true
		commits[r.CommitHash] = true
	}
	return comparison.DimensionCounts{
		Repos:          len(uris),
		UsageScenarios: len(files),
		Machines:       len(machines),
		Commits:        len(commits),
	}, nil
}

// ListComparisonRows mirrors the SQL ordering of the Postgres store
func (s *Store) ListComparisonRows(ctx context.Context, ids []core.RunID) ([]comparison.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []comparison.Row
	for _, id := range ids {
		r, ok := s.runs[id]
		if !ok {
			continue
		}
		for _, ps := range s.phaseStats[id] {
			if strings.HasSuffix(ps.Metric, "_MAX") {
				continue
			}
			out = append(out, comparison.Row{
				Phase:             ps.Phase,
				Metric:            ps.Metric,
				DetailName:        ps.DetailName,
				Value:             ps.Value,
				Type:              ps.Type,
				MaxValue:          ps.MaxValue,
				Unit:              ps.Unit,
				URI:               r.URI,
				MachineID:         r.MachineID,
				UsageScenarioFile: r.Filename,
				CommitHash:        r.CommitHash,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Phase != b.Phase:
			return a.Phase < b.Phase
		case a.Metric != b.Metric:
			return a.Metric < b.Metric
		case a.DetailName != b.DetailName:
			return a.DetailName < b.DetailName
		case a.URI != b.URI:
			return a.URI < b.URI
		case a.MachineID != b.MachineID:
			return a.MachineID < b.MachineID
		case a.UsageScenarioFile != b.UsageScenarioFile:
			return a.UsageScenarioFile < b.UsageScenarioFile
		default:
			return a.CommitHash < b.CommitHash
		}
	})
	return out, nil
}
