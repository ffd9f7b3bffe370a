package testkit

import (
	"math/rand"

	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
	"greenmetrics/domain/phasestat"
)

// Metric names the generator writes
const (
	GeneratedMachineEnergy = "psu_energy_ac_ipmi_machine"
	GeneratedCPUEnergy     = "cpu_energy_rapl_msr_component"
)

// RunGeneratorConfig configures a synthetic benchmark run
type RunGeneratorConfig struct {
	URI        string
	Filename   string
	MachineID  int
	CommitHash string

	Phases         []string
	PhaseDuration  core.Microseconds
	SampleInterval core.Microseconds
	Containers     []string

	// Machine power per phase name in mW; phases not listed use IdlePower
	PhasePower map[string]float64
	IdlePower  float64
	// Relative gaussian noise applied to energy samples
	Noise float64

	NetworkBytesPerSample float64
	Seed                  int64
}

// DefaultRunConfig returns a three phase run on one machine with two
// containers
func DefaultRunConfig() RunGeneratorConfig {
	return RunGeneratorConfig{
		URI:            "https://github.com/green-coding/example",
		Filename:       "usage_scenario.yml",
		MachineID:      1,
		CommitHash:     "4f1c0de",
		Phases:         []string{measurement.PhaseBaseline, measurement.PhaseIdle, measurement.PhaseRuntime},
		PhaseDuration:  10_000_000,
		SampleInterval: 100_000,
		Containers:     []string{"db", "web"},
		PhasePower: map[string]float64{
			measurement.PhaseRuntime: 60_000,
		},
		IdlePower:             20_000,
		Noise:                 0.01,
		NetworkBytesPerSample: 1_500,
		Seed:                  42,
	}
}

// GenerateRun builds a run fixture from cfg. The same config always yields
// the same samples.
func GenerateRun(cfg RunGeneratorConfig) RunFixture {
	rng := rand.New(rand.NewSource(cfg.Seed))
	run := RunFixture{
		ID:         core.NewRunID(),
		URI:        cfg.URI,
		Filename:   cfg.Filename,
		MachineID:  cfg.MachineID,
		CommitHash: cfg.CommitHash,
	}

	start := core.Microseconds(1_700_000_000_000_000)
	network := make([]float64, len(cfg.Containers))
	for idx, name := range cfg.Phases {
		phase := measurement.Phase{Index: idx, Name: name, Start: start, End: start + cfg.PhaseDuration}
		run.Phases = append(run.Phases, phase)

		power, ok := cfg.PhasePower[name]
		if !ok {
			power = cfg.IdlePower
		}
		utilization := 100 * power / (power + cfg.IdlePower*2)

		for t := phase.Start; t < phase.End; t += cfg.SampleInterval {
			// mW * us / 1e6 = mJ
			energy := power * float64(cfg.SampleInterval) / 1e6 * (1 + cfg.Noise*rng.NormFloat64())
			run.Samples = append(run.Samples,
				sample(run.ID, GeneratedMachineEnergy, "[MACHINE]", t, energy, phasestat.UnitMillijoule),
				sample(run.ID, GeneratedCPUEnergy, "Package_0", t, energy/2, phasestat.UnitMillijoule),
				sample(run.ID, phasestat.MetricCPUUtilizationProcfsSystem, "[SYSTEM]", t, utilization, "Ratio"),
			)
			for i, c := range cfg.Containers {
				network[i] += cfg.NetworkBytesPerSample
				run.Samples = append(run.Samples,
					sample(run.ID, phasestat.MetricCPUUtilizationCgroupContainer, c, t, utilization/float64(i+1), "Ratio"),
					sample(run.ID, phasestat.MetricNetworkIOCgroupContainer, c, t, network[i], "Bytes"),
				)
			}
		}
		start = phase.End
	}
	return run
}

func sample(run core.RunID, metric, detail string, t core.Microseconds, v float64, unit string) measurement.Sample {
	return measurement.Sample{RunID: run, Metric: metric, DetailName: detail, Time: t, Value: v, Unit: unit}
}
