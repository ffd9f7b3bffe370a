// Package carbon holds the emission formulas used to derive CO2 and
// software carbon intensity rows from measured energy.
//
// Units are annotated on every quantity: mJ millijoule, kWh kilowatt-hour,
// ug microgram, g gram, us microsecond.
package carbon

import (
	"fmt"

	"greenmetrics/domain/core"
)

const (
	// NetworkKWhPerGB is the energy intensity of transferring one gigabyte
	// over the network, in kWh/GB.
	NetworkKWhPerGB = 0.002651650429449553

	bytesPerGB      = 1_000_000_000
	mJPerKWh        = 3_600_000_000 // 3.6e9
	mJPerWh         = 3_600         // mJ/3600 = mWh, and I is g/kWh, so mWh*I = ug
	ugPerGram       = 1_000_000
	mWPerMJPerMicro = 1_000_000 // mJ/us * 1e6 = mW
)

// Params are the externally configured SCI constants
type Params struct {
	// I is the grid carbon intensity in gCO2e/kWh.
	I float64 `yaml:"I"`
	// EL is the expected lifetime of the machine in years.
	EL float64 `yaml:"EL"`
	// TE is the total embodied emissions of the machine in gCO2e.
	TE float64 `yaml:"TE"`
	// RS is the share of the machine reserved for the run, 0..1.
	RS float64 `yaml:"RS"`
}

// Validate rejects parameter sets that would produce nonsense rows
func (p Params) Validate() error {
	if p.EL <= 0 {
		return fmt.Errorf("expected lifetime EL must be positive, got %v", p.EL)
	}
	if p.I < 0 || p.TE < 0 || p.RS < 0 {
		return fmt.Errorf("I, TE and RS must not be negative (I=%v TE=%v RS=%v)", p.I, p.TE, p.RS)
	}
	return nil
}

// FunctionalUnit is the SCI denominator: R units of R_d per run
type FunctionalUnit struct {
	R  float64 `yaml:"R"`
	Rd string  `yaml:"R_d"`
}

// Usable reports whether an SCI value can be computed with this unit
func (f *FunctionalUnit) Usable() bool {
	return f != nil && f.R != 0
}

// Unit is the display unit of an SCI value
func (f FunctionalUnit) Unit() string {
	return "ugCO2e/" + f.Rd
}

// PowerMilliwatts converts energy over a duration into average power.
// energy in mJ, duration in us, result in mW.
func PowerMilliwatts(energyMJ float64, duration core.Microseconds) float64 {
	return energyMJ * mWPerMJPerMicro / float64(duration)
}

// MachineCO2Micrograms converts machine energy into emissions.
// energy in mJ, I in g/kWh, result in ug.
func MachineCO2Micrograms(energyMJ float64, p Params) float64 {
	return (energyMJ / mJPerWh) * p.I
}

// NetworkEnergy holds the derived network transfer figures of a phase
type NetworkEnergy struct {
	KWh           float64
	Millijoules   float64
	CO2Micrograms float64
}

// NetworkTransfer derives energy and emissions of transferring totalBytes.
// bytes in B; kWh = B/1e9 * NetworkKWhPerGB; mJ = kWh*3.6e9; ug = kWh*I*1e6.
func NetworkTransfer(totalBytes float64, p Params) NetworkEnergy {
	kWh := (totalBytes / bytesPerGB) * NetworkKWhPerGB
	return NetworkEnergy{
		KWh:           kWh,
		Millijoules:   kWh * mJPerKWh,
		CO2Micrograms: kWh * p.I * ugPerGram,
	}
}

// EmbodiedMicrograms is the share of embodied emissions attributable to a
// window of the given duration. years = us/(1e6*60*60*24*365);
// g = years/EL * TE * RS; result in ug.
func EmbodiedMicrograms(duration core.Microseconds, p Params) float64 {
	grams := (duration.Years() / p.EL) * p.TE * p.RS
	return grams * ugPerGram
}

// SoftwareCarbonIntensity combines operational and embodied emissions per
// functional unit. All inputs in ug; result in ugCO2e per R_d.
func SoftwareCarbonIntensity(machineUg, embodiedUg, networkUg float64, fu FunctionalUnit) float64 {
	return (machineUg + embodiedUg + networkUg) / fu.R
}
