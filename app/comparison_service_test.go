package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"greenmetrics/domain/carbon"
	"greenmetrics/domain/comparison"
	"greenmetrics/domain/core"
	"greenmetrics/domain/metrics"
	"greenmetrics/domain/phasestat"
	"greenmetrics/internal/testkit"
)

// aggregateAll stores generated runs and aggregates each of them
func aggregateAll(t *testing.T, store *testkit.Store, cfgs ...testkit.RunGeneratorConfig) []core.RunID {
	t.Helper()
	svc := NewAggregationService(store, store, testParams, nil, quietLogger())
	var ids []core.RunID
	for _, cfg := range cfgs {
		run := testkit.GenerateRun(cfg)
		store.AddRun(run)
		_, err := svc.Aggregate(context.Background(), run.ID)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	return ids
}

func TestCompareMachines(t *testing.T) {
	store := testkit.NewStore()
	var cfgs []testkit.RunGeneratorConfig
	for i, machine := range []int{1, 1, 1, 2, 2, 2} {
		cfg := testkit.DefaultRunConfig()
		cfg.MachineID = machine
		cfg.Seed = int64(i + 1)
		if machine == 2 {
			cfg.PhasePower[cfg.Phases[2]] = 90_000
		}
		cfgs = append(cfgs, cfg)
	}
	ids := aggregateAll(t, store, cfgs...)

	report, err := NewComparisonService(store, metrics.MustDefault(), quietLogger()).Compare(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, comparison.CaseMachine, report.Case)
	assert.Equal(t, []string{"1", "2"}, report.Details)

	leaf, ok := report.Data.Leaf("1", "[RUNTIME]", testkit.GeneratedMachineEnergy, "[MACHINE]")
	require.True(t, ok)
	assert.Len(t, leaf.Values, 3)
	assert.NotNil(t, leaf.Mean)
	assert.NotNil(t, leaf.StdDev)
	assert.NotNil(t, leaf.CI)

	var found bool
	for _, pc := range report.Statistics {
		if pc.Phase != "[RUNTIME]" {
			continue
		}
		for _, mc := range pc.Metrics {
			if mc.Metric != testkit.GeneratedMachineEnergy {
				continue
			}
			found = true
			require.NotNil(t, mc.Details[0].IsSignificant)
			assert.True(t, *mc.Details[0].IsSignificant, "60 W against 90 W")
		}
	}
	assert.True(t, found)
}

func TestCompareRepeatedRunSingleRun(t *testing.T) {
	store := testkit.NewStore()
	ids := aggregateAll(t, store, testkit.DefaultRunConfig())

	report, err := NewComparisonService(store, metrics.MustDefault(), quietLogger()).Compare(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, comparison.CaseRepeatedRun, report.Case)
	assert.Empty(t, report.Statistics)

	leaf, ok := report.Data.Leaf(testkit.DefaultRunConfig().CommitHash, "[IDLE]", phasestat.MetricPhaseTime, phasestat.DetailSystem)
	require.True(t, ok)
	assert.Equal(t, []float64{10_000_000}, leaf.Values)
	assert.Nil(t, leaf.StdDev)
	assert.Nil(t, leaf.PValue)
}

func TestCompareUnsupported(t *testing.T) {
	store := testkit.NewStore()
	a := testkit.DefaultRunConfig()
	b := testkit.DefaultRunConfig()
	b.URI = "https://github.com/green-coding/other"
	b.MachineID = 2
	b.CommitHash = "99aa"
	ids := aggregateAll(t, store, a, b)

	_, err := NewComparisonService(store, metrics.MustDefault(), quietLogger()).Compare(context.Background(), ids)
	assert.ErrorIs(t, err, core.ErrUnsupportedComparison)
}

func TestCompareWithoutData(t *testing.T) {
	store := testkit.NewStore()
	svc := NewComparisonService(store, metrics.MustDefault(), quietLogger())

	_, err := svc.Compare(context.Background(), []core.RunID{core.NewRunID()})
	assert.ErrorIs(t, err, core.ErrNoComparisonData)

	_, err = svc.Compare(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidRunID)
}

func TestCompareUnknownMetricFails(t *testing.T) {
	store := testkit.NewStore()
	cfg := testkit.DefaultRunConfig()
	run := testkit.GenerateRun(cfg)
	run.Samples = append(run.Samples, smp("unregistered_thing_component", "x", run.Phases[0].Start, 1, "Bytes"))
	store.AddRun(run)
	_, err := NewAggregationService(store, store, testParams, &carbon.FunctionalUnit{}, quietLogger()).Aggregate(context.Background(), run.ID)
	require.NoError(t, err)

	_, err = NewComparisonService(store, metrics.MustDefault(), quietLogger()).Compare(context.Background(), []core.RunID{run.ID})
	assert.ErrorIs(t, err, core.ErrUnknownMetric)
}

type mockComparisonStore struct {
	mock.Mock
}

func (m *mockComparisonStore) DimensionCounts(ctx context.Context, runs []core.RunID) (comparison.DimensionCounts, error) {
	args := m.Called(ctx, runs)
	return args.Get(0).(comparison.DimensionCounts), args.Error(1)
}

func (m *mockComparisonStore) ListComparisonRows(ctx context.Context, runs []core.RunID) ([]comparison.Row, error) {
	args := m.Called(ctx, runs)
	rows, _ := args.Get(0).([]comparison.Row)
	return rows, args.Error(1)
}

func TestCompareStoreErrors(t *testing.T) {
	ids := []core.RunID{core.NewRunID()}
	failure := errors.New("connection reset")

	store := &mockComparisonStore{}
	store.On("DimensionCounts", mock.Anything, ids).Return(comparison.DimensionCounts{}, failure).Once()
	_, err := NewComparisonService(store, metrics.MustDefault(), quietLogger()).Compare(context.Background(), ids)
	assert.ErrorIs(t, err, failure)
	store.AssertNotCalled(t, "ListComparisonRows", mock.Anything, mock.Anything)

	store = &mockComparisonStore{}
	store.On("DimensionCounts", mock.Anything, ids).Return(comparison.DimensionCounts{Repos: 1, UsageScenarios: 1, Machines: 1, Commits: 1}, nil)
	store.On("ListComparisonRows", mock.Anything, ids).Return(nil, failure)
	_, err = NewComparisonService(store, metrics.MustDefault(), quietLogger()).Compare(context.Background(), ids)
	assert.ErrorIs(t, err, failure)
	store.AssertExpectations(t)
}

func TestCompareThreeCommits(t *testing.T) {
	store := testkit.NewStore()
	var cfgs []testkit.RunGeneratorConfig
	for i, commit := range []string{"aaa", "bbb", "ccc"} {
		cfg := testkit.DefaultRunConfig()
		cfg.CommitHash = commit
		cfg.Seed = int64(i + 1)
		cfgs = append(cfgs, cfg)
	}
	ids := aggregateAll(t, store, cfgs...)

	report, err := NewComparisonService(store, metrics.MustDefault(), quietLogger()).Compare(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, comparison.CaseCommit, report.Case)
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, report.Details)
	assert.Empty(t, report.Statistics)

	leaf, ok := report.Data.Leaf("ccc", "[RUNTIME]", testkit.GeneratedMachineEnergy, "[MACHINE]")
	require.True(t, ok)
	assert.Len(t, leaf.Values, 1)
	assert.NotNil(t, leaf.Mean)
}
