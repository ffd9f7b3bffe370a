package phasestat

import "strings"

// Metric names the aggregator routes on or emits
const (
	MetricPhaseTime = "phase_time"

	MetricCPUUtilizationProcfsSystem    = "cpu_utilization_procfs_system"
	MetricCPUUtilizationMachSystem      = "cpu_utilization_mach_system"
	MetricCPUUtilizationCgroupContainer = "cpu_utilization_cgroup_container"
	MetricNetworkIOCgroupContainer      = "network_io_cgroup_container"
	MetricEnergyImpactPowermetricsVM    = "energy_impact_powermetrics_vm"

	MetricNetworkEnergyFormulaGlobal = "network_energy_formula_global"
	MetricNetworkCO2FormulaGlobal    = "network_co2_formula_global"
	MetricEmbodiedCarbonShareMachine = "embodied_carbon_share_machine"
	MetricSoftwareCarbonIntensity    = "software_carbon_intensity_global"
	MetricPSUEnergyCgroupContainer   = "psu_energy_cgroup_container"
	MetricPSUPowerCgroupContainer    = "psu_power_cgroup_container"
)

// Units
const (
	UnitMicroseconds = "us"
	UnitMillijoule   = "mJ"
	UnitMilliwatt    = "mW"
	UnitMicrogram    = "ug"
)

// Kind is the aggregation route a metric takes
type Kind int

const (
	// KindOther is summed over the window.
	KindOther Kind = iota
	// KindGauge is averaged over the window.
	KindGauge
	// KindCounter is cumulative; the window contributes max - min.
	KindCounter
	// KindImpactGauge is a proprietary relative value, averaged.
	KindImpactGauge
	// KindEnergy is summed and also yields a derived power row.
	KindEnergy
)

func (k Kind) String() string {
	switch k {
	case KindGauge:
		return "gauge"
	case KindCounter:
		return "counter"
	case KindImpactGauge:
		return "impact_gauge"
	case KindEnergy:
		return "energy"
	default:
		return "other"
	}
}

var gaugeMetrics = map[string]bool{
	"lm_sensors_temperature_component":  true,
	"lm_sensors_fan_component":          true,
	MetricCPUUtilizationProcfsSystem:    true,
	MetricCPUUtilizationMachSystem:      true,
	MetricCPUUtilizationCgroupContainer: true,
	"memory_total_cgroup_container":     true,
	"cpu_frequency_sysfs_core":          true,
}

// Classify routes a metric by name and unit
func Classify(metric, unit string) Kind {
	switch {
	case gaugeMetrics[metric]:
		return KindGauge
	case metric == MetricNetworkIOCgroupContainer:
		return KindCounter
	case metric == MetricEnergyImpactPowermetricsVM:
		return KindImpactGauge
	case strings.Contains(metric, "_energy_") && unit == UnitMillijoule:
		return KindEnergy
	default:
		return KindOther
	}
}

// IsSystemCPUUtilization reports whether metric is a whole-machine CPU %
func IsSystemCPUUtilization(metric string) bool {
	return metric == MetricCPUUtilizationProcfsSystem || metric == MetricCPUUtilizationMachSystem
}

// IsMachineEnergy reports whether an energy metric covers the whole machine
func IsMachineEnergy(metric string) bool {
	return strings.HasSuffix(metric, "_machine")
}

// PowerMetricName derives the power companion of an energy metric
func PowerMetricName(energyMetric string) string {
	return strings.ReplaceAll(energyMetric, "_energy_", "_power_")
}

// CO2MetricName derives the CO2 companion of a machine energy metric
func CO2MetricName(energyMetric string) string {
	return strings.ReplaceAll(energyMetric, "_energy_", "_co2_")
}
