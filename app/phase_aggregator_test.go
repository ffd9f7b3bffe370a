package app

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenmetrics/domain/carbon"
	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
	"greenmetrics/domain/phasestat"
	"greenmetrics/internal"
	"greenmetrics/internal/testkit"
)

var testParams = carbon.Params{I: 436, EL: 4, TE: 181000, RS: 1}

const (
	machineEnergy = "psu_energy_ac_ipmi_machine"
	second        = core.Microseconds(1_000_000)
)

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(io.Discard, internal.LogLevelError)
}

func smp(metric, detail string, t core.Microseconds, v float64, unit string) measurement.Sample {
	return measurement.Sample{Metric: metric, DetailName: detail, Time: t, Value: v, Unit: unit}
}

// idleRuntimeRun has a one second [IDLE] phase followed by a one second
// [RUNTIME] phase, with the machine drawing idleMJ and runtimeMJ over two
// samples each.
func idleRuntimeRun(idleMJ, runtimeMJ float64) testkit.RunFixture {
	run := testkit.RunFixture{
		ID: core.NewRunID(),
		Phases: []measurement.Phase{
			{Index: 0, Name: measurement.PhaseIdle, Start: 0, End: second},
			{Index: 1, Name: measurement.PhaseRuntime, Start: second, End: 2 * second},
		},
	}
	for _, p := range run.Phases {
		e := idleMJ
		if p.Name == measurement.PhaseRuntime {
			e = runtimeMJ
		}
		run.Samples = append(run.Samples,
			smp(machineEnergy, "[MACHINE]", p.Start, e/2, "mJ"),
			smp(machineEnergy, "[MACHINE]", p.Start+second/2, e/2, "mJ"),
			smp(phasestat.MetricCPUUtilizationProcfsSystem, "[SYSTEM]", p.Start, 50, "Ratio"),
			smp(phasestat.MetricCPUUtilizationCgroupContainer, "web", p.Start, 30, "Ratio"),
			smp(phasestat.MetricCPUUtilizationCgroupContainer, "db", p.Start, 10, "Ratio"),
		)
	}
	return run
}

func aggregate(t *testing.T, run testkit.RunFixture, fu *carbon.FunctionalUnit) ([]phasestat.Row, *testkit.Store) {
	t.Helper()
	store := testkit.NewStore()
	store.AddRun(run)
	svc := NewAggregationService(store, store, testParams, fu, quietLogger())

	res, err := svc.Aggregate(context.Background(), run.ID)
	require.NoError(t, err)

	rows, err := store.ListByRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, len(rows), res.Rows)
	return rows, store
}

func find(rows []phasestat.Row, metric, detail, phase string) (phasestat.Row, bool) {
	for _, r := range rows {
		if r.Metric == metric && r.DetailName == detail && r.Phase == phase {
			return r, true
		}
	}
	return phasestat.Row{}, false
}

func count(rows []phasestat.Row, metric string) int {
	n := 0
	for _, r := range rows {
		if r.Metric == metric {
			n++
		}
	}
	return n
}

func TestAggregatePhaseTimeFirst(t *testing.T) {
	rows, _ := aggregate(t, idleRuntimeRun(2000, 2000), nil)

	assert.Equal(t, phasestat.MetricPhaseTime, rows[0].Metric)
	assert.Equal(t, "000_[IDLE]", rows[0].Phase)
	assert.Equal(t, float64(second), rows[0].Value)
	assert.Equal(t, phasestat.Total, rows[0].Type)
	assert.Equal(t, phasestat.UnitMicroseconds, rows[0].Unit)

	_, ok := find(rows, phasestat.MetricPhaseTime, phasestat.DetailSystem, "001_[RUNTIME]")
	assert.True(t, ok)
}

func TestAggregateEnergyPowerAndCO2(t *testing.T) {
	rows, _ := aggregate(t, idleRuntimeRun(2000, 4000), nil)

	energy, ok := find(rows, machineEnergy, "[MACHINE]", "001_[RUNTIME]")
	require.True(t, ok)
	assert.Equal(t, 4000.0, energy.Value)
	assert.Equal(t, phasestat.Total, energy.Type)
	assert.Nil(t, energy.MaxValue)

	power, ok := find(rows, "psu_power_ac_ipmi_machine", "[MACHINE]", "001_[RUNTIME]")
	require.True(t, ok)
	assert.Equal(t, phasestat.Mean, power.Type)
	assert.Equal(t, phasestat.UnitMilliwatt, power.Unit)
	assert.InDelta(t, 4000.0, power.Value, 1e-9) // 4000 mJ over 1 s
	// 2000 mJ per sample, one sample every 0.5 s
	assert.InDelta(t, 4000.0, *power.MaxValue, 1e-9)
	assert.InDelta(t, 4000.0, *power.MinValue, 1e-9)

	co2, ok := find(rows, "psu_co2_ac_ipmi_machine", "[MACHINE]", "001_[RUNTIME]")
	require.True(t, ok)
	assert.InDelta(t, 4000.0/3600*436, co2.Value, 1e-9)
	assert.Equal(t, phasestat.UnitMicrogram, co2.Unit)
}

func TestAggregateGaugeIsMean(t *testing.T) {
	rows, _ := aggregate(t, idleRuntimeRun(2000, 2000), nil)

	util, ok := find(rows, phasestat.MetricCPUUtilizationCgroupContainer, "web", "000_[IDLE]")
	require.True(t, ok)
	assert.Equal(t, phasestat.Mean, util.Type)
	assert.Equal(t, 30.0, util.Value)
	assert.Equal(t, 30.0, *util.MaxValue)
	assert.Equal(t, 30.0, *util.MinValue)
}

func TestAggregateIdleEqualsRuntimeHasNoSurplus(t *testing.T) {
	rows, _ := aggregate(t, idleRuntimeRun(2000, 2000), nil)

	assert.Zero(t, count(rows, phasestat.MetricPSUEnergyCgroupContainer))
	assert.Zero(t, count(rows, phasestat.MetricPSUPowerCgroupContainer))
}

func TestAggregateAttributesSurplus(t *testing.T) {
	rows, _ := aggregate(t, idleRuntimeRun(2000, 4000), nil)

	// idle 2000 mW, runtime 4000 mW over 1 s: surplus 2000 mW and 2000 mJ,
	// split 30:10 between web and db
	web, ok := find(rows, phasestat.MetricPSUEnergyCgroupContainer, "web", "001_[RUNTIME]")
	require.True(t, ok)
	assert.InDelta(t, 1500.0, web.Value, 1e-9)
	assert.Equal(t, phasestat.UnitMillijoule, web.Unit)

	db, ok := find(rows, phasestat.MetricPSUPowerCgroupContainer, "db", "001_[RUNTIME]")
	require.True(t, ok)
	assert.InDelta(t, 500.0, db.Value, 1e-9)
	assert.Equal(t, phasestat.UnitMilliwatt, db.Unit)

	_, ok = find(rows, phasestat.MetricPSUEnergyCgroupContainer, "web", "000_[IDLE]")
	assert.False(t, ok, "the idle phase has no runtime figures")
}

func TestAggregateSkipsAttributionWithoutContainerLoad(t *testing.T) {
	run := idleRuntimeRun(2000, 4000)
	for i := range run.Samples {
		if run.Samples[i].Metric == phasestat.MetricCPUUtilizationCgroupContainer {
			run.Samples[i].Value = 0.4
		}
	}
	rows, _ := aggregate(t, run, nil)
	assert.Zero(t, count(rows, phasestat.MetricPSUEnergyCgroupContainer))
}

func TestAggregateNetworkFormula(t *testing.T) {
	run := idleRuntimeRun(2000, 2000)
	run.Samples = append(run.Samples,
		smp(phasestat.MetricNetworkIOCgroupContainer, "web", second, 1_000, "Bytes"),
		smp(phasestat.MetricNetworkIOCgroupContainer, "web", second+10, 501_000, "Bytes"),
		smp(phasestat.MetricNetworkIOCgroupContainer, "db", second, 0, "Bytes"),
		smp(phasestat.MetricNetworkIOCgroupContainer, "db", second+10, 1_500_000, "Bytes"),
	)
	rows, _ := aggregate(t, run, nil)

	web, ok := find(rows, phasestat.MetricNetworkIOCgroupContainer, "web", "001_[RUNTIME]")
	require.True(t, ok)
	assert.Equal(t, 500_000.0, web.Value, "counters contribute max - min")
	assert.Nil(t, web.MaxValue)

	bytes := 2_000_000.0
	kWh := bytes / 1e9 * 0.002651650429449553
	energy, ok := find(rows, phasestat.MetricNetworkEnergyFormulaGlobal, phasestat.DetailFormula, "001_[RUNTIME]")
	require.True(t, ok)
	assert.InDelta(t, kWh*3.6e9, energy.Value, 1e-9)

	co2, ok := find(rows, phasestat.MetricNetworkCO2FormulaGlobal, phasestat.DetailFormula, "001_[RUNTIME]")
	require.True(t, ok)
	assert.InDelta(t, kWh*436*1e6, co2.Value, 1e-9)

	_, ok = find(rows, phasestat.MetricNetworkEnergyFormulaGlobal, phasestat.DetailFormula, "000_[IDLE]")
	assert.False(t, ok)
}

func TestAggregateEmbodiedAndSCI(t *testing.T) {
	fu := &carbon.FunctionalUnit{R: 10, Rd: "request"}
	rows, _ := aggregate(t, idleRuntimeRun(2000, 4000), fu)

	embodiedUg := carbon.EmbodiedMicrograms(second, testParams)
	embodied, ok := find(rows, phasestat.MetricEmbodiedCarbonShareMachine, phasestat.DetailSystem, "000_[IDLE]")
	require.True(t, ok)
	assert.InDelta(t, embodiedUg, embodied.Value, 1e-9)

	sci, ok := find(rows, phasestat.MetricSoftwareCarbonIntensity, phasestat.DetailSystem, "001_[RUNTIME]")
	require.True(t, ok)
	machineUg := 4000.0 / 3600 * 436
	assert.InDelta(t, (machineUg+embodiedUg)/10, sci.Value, 1e-9)
	assert.Equal(t, "ugCO2e/request", sci.Unit)

	assert.Equal(t, 1, count(rows, phasestat.MetricSoftwareCarbonIntensity), "only the runtime phase")
}

func TestAggregateWithoutFunctionalUnitHasNoSCI(t *testing.T) {
	rows, _ := aggregate(t, idleRuntimeRun(2000, 4000), &carbon.FunctionalUnit{R: 0})
	assert.Zero(t, count(rows, phasestat.MetricSoftwareCarbonIntensity))
}

func TestAggregateSkipsEmptyWindows(t *testing.T) {
	run := idleRuntimeRun(2000, 2000)
	run.Samples = append(run.Samples, smp("lm_sensors_temperature_component", "CPU", 10, 45, "centi°C"))

	store := testkit.NewStore()
	store.AddRun(run)
	svc := NewAggregationService(store, store, testParams, nil, quietLogger())
	res, err := svc.Aggregate(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EmptyWindows)

	rows, _ := store.ListByRun(context.Background(), run.ID)
	_, ok := find(rows, "lm_sensors_temperature_component", "CPU", "000_[IDLE]")
	assert.True(t, ok)
	_, ok = find(rows, "lm_sensors_temperature_component", "CPU", "001_[RUNTIME]")
	assert.False(t, ok)
}

func TestAggregateOtherMetricIsSum(t *testing.T) {
	run := idleRuntimeRun(2000, 2000)
	run.Samples = append(run.Samples,
		smp("cpu_time_cgroup_container", "web", 10, 7, "us"),
		smp("cpu_time_cgroup_container", "web", 20, 5, "us"),
	)
	rows, _ := aggregate(t, run, nil)

	r, ok := find(rows, "cpu_time_cgroup_container", "web", "000_[IDLE]")
	require.True(t, ok)
	assert.Equal(t, 12.0, r.Value)
	assert.Equal(t, phasestat.Total, r.Type)
	assert.Equal(t, 7.0, *r.MaxValue)
	assert.Equal(t, 5.0, *r.MinValue)
}

func TestAggregateEmptyRun(t *testing.T) {
	store := testkit.NewStore()
	run := testkit.RunFixture{
		ID:     core.NewRunID(),
		Phases: []measurement.Phase{{Index: 0, Name: measurement.PhaseRuntime, Start: 0, End: second}},
	}
	store.AddRun(run)
	svc := NewAggregationService(store, store, testParams, nil, quietLogger())

	_, err := svc.Aggregate(context.Background(), run.ID)
	assert.ErrorIs(t, err, core.ErrEmptyMeasurements)
}

func TestAggregateSamplesOutsidePhases(t *testing.T) {
	store := testkit.NewStore()
	run := testkit.RunFixture{
		ID:      core.NewRunID(),
		Phases:  []measurement.Phase{{Index: 0, Name: measurement.PhaseRuntime, Start: 0, End: second}},
		Samples: []measurement.Sample{smp(machineEnergy, "[MACHINE]", 5*second, 10, "mJ")},
	}
	store.AddRun(run)
	svc := NewAggregationService(store, store, testParams, nil, quietLogger())

	_, err := svc.Aggregate(context.Background(), run.ID)
	assert.ErrorIs(t, err, core.ErrEmptyMeasurements)
}

func TestAggregateNoPhases(t *testing.T) {
	store := testkit.NewStore()
	run := testkit.RunFixture{
		ID:      core.NewRunID(),
		Samples: []measurement.Sample{smp(machineEnergy, "[MACHINE]", 0, 10, "mJ")},
	}
	store.AddRun(run)
	svc := NewAggregationService(store, store, testParams, nil, quietLogger())

	_, err := svc.Aggregate(context.Background(), run.ID)
	assert.ErrorIs(t, err, core.ErrNoPhases)
}

func TestAggregateFailedAppendLeavesNothing(t *testing.T) {
	store := testkit.NewStore()
	run := idleRuntimeRun(2000, 4000)
	store.AddRun(run)
	store.FailAppend = assert.AnError
	svc := NewAggregationService(store, store, testParams, nil, quietLogger())

	_, err := svc.Aggregate(context.Background(), run.ID)
	require.ErrorIs(t, err, assert.AnError)

	rows, err := store.ListByRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAggregateGeneratedRun(t *testing.T) {
	run := testkit.GenerateRun(testkit.DefaultRunConfig())
	rows, _ := aggregate(t, run, &carbon.FunctionalUnit{R: 1, Rd: "run"})

	assert.Equal(t, 3, count(rows, phasestat.MetricPhaseTime))
	assert.Equal(t, 1, count(rows, phasestat.MetricSoftwareCarbonIntensity))
	assert.Equal(t, 2, count(rows, phasestat.MetricPSUEnergyCgroupContainer), "one row per container in [RUNTIME]")
	assert.Equal(t, 3, count(rows, phasestat.MetricNetworkEnergyFormulaGlobal))
}
