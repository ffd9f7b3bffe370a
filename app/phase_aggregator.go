package app

import (
	"context"
	"fmt"
	"time"

	"greenmetrics/domain/carbon"
	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
	"greenmetrics/domain/phasestat"
	"greenmetrics/internal"
	"greenmetrics/internal/telemetry"
	"greenmetrics/ports"
)

// AggregationService turns the raw samples of a run into phase statistics
type AggregationService struct {
	source ports.MeasurementSource
	repo   ports.PhaseStatsRepository
	params carbon.Params
	fu     *carbon.FunctionalUnit
	logger *internal.Logger
	now    func() time.Time
}

// AggregationResult summarizes one persisted aggregation
type AggregationResult struct {
	RunID        core.RunID `json:"run_id"`
	Phases       int        `json:"phases"`
	Rows         int        `json:"rows"`
	EmptyWindows int        `json:"empty_windows"`
	RuntimeMs    int64      `json:"runtime_ms"`
}

// NewAggregationService creates an aggregation service. fu may be nil, in
// which case no software carbon intensity rows are produced.
func NewAggregationService(source ports.MeasurementSource, repo ports.PhaseStatsRepository, params carbon.Params, fu *carbon.FunctionalUnit, logger *internal.Logger) *AggregationService {
	return &AggregationService{
		source: source,
		repo:   repo,
		params: params,
		fu:     fu,
		logger: logger,
		now:    time.Now,
	}
}

// Aggregate computes the phase statistics of run and stores them with a
// single bulk append. Callers must not aggregate the same run concurrently.
func (s *AggregationService) Aggregate(ctx context.Context, run core.RunID) (*AggregationResult, error) {
	started := time.Now()

	rows, info, err := s.build(ctx, run)
	if err != nil {
		telemetry.ObserveAggregation(telemetry.OutcomeError, started)
		return nil, err
	}
	if err := s.repo.BulkAppend(ctx, rows); err != nil {
		telemetry.ObserveAggregation(telemetry.OutcomeError, started)
		return nil, fmt.Errorf("store phase stats of run %s: %w", run, err)
	}
	telemetry.ObserveAggregation(telemetry.OutcomeOK, started)
	for _, r := range rows {
		telemetry.CountRow(string(r.Type))
	}

	info.Rows = len(rows)
	info.RuntimeMs = time.Since(started).Milliseconds()
	s.logger.Info("aggregated run %s: %d phases, %d rows, %d empty windows", run, info.Phases, info.Rows, info.EmptyWindows)
	return info, nil
}

// Build computes the phase statistics of run without storing them
func (s *AggregationService) Build(ctx context.Context, run core.RunID) ([]phasestat.Row, error) {
	rows, _, err := s.build(ctx, run)
	return rows, err
}

func (s *AggregationService) build(ctx context.Context, run core.RunID) ([]phasestat.Row, *AggregationResult, error) {
	keys, err := s.source.ListMetrics(ctx, run)
	if err != nil {
		return nil, nil, fmt.Errorf("list metrics of run %s: %w", run, err)
	}
	if len(keys) == 0 {
		return nil, nil, fmt.Errorf("run %s: %w", run, core.ErrEmptyMeasurements)
	}
	phases, err := s.source.ListPhases(ctx, run)
	if err != nil {
		return nil, nil, fmt.Errorf("list phases of run %s: %w", run, err)
	}
	if len(phases) == 0 {
		return nil, nil, fmt.Errorf("run %s: %w", run, core.ErrNoPhases)
	}

	agg := &runAggregation{
		run:     run,
		params:  s.params,
		fu:      s.fu,
		created: s.now(),
		logger:  s.logger,
	}
	for _, phase := range phases {
		if err := agg.phase(ctx, s.source, phase, keys); err != nil {
			return nil, nil, err
		}
	}
	if agg.samples == 0 {
		return nil, nil, fmt.Errorf("run %s: no samples inside any phase: %w", run, core.ErrEmptyMeasurements)
	}

	return agg.rows, &AggregationResult{
		RunID:        run,
		Phases:       len(phases),
		EmptyWindows: agg.empty,
	}, nil
}

// runAggregation carries the state of one run across its phases. Only the
// idle machine power outlives a phase.
type runAggregation struct {
	run     core.RunID
	params  carbon.Params
	fu      *carbon.FunctionalUnit
	created time.Time
	logger  *internal.Logger

	rows    []phasestat.Row
	samples int64
	empty   int

	idlePower *float64 // mW
}

// phaseState is reset for every phase
type phaseState struct {
	label    string
	duration core.Microseconds

	networkBytes []float64
	networkCO2   float64 // ug

	machineUtilization *float64
	containerNames     []string
	containerUtil      map[string]float64

	machineCO2    *float64 // ug
	runtimePower  *float64 // mW
	runtimeEnergy *float64 // mJ
}

func (a *runAggregation) emit(p *phaseState, metric, detail string, value float64, typ phasestat.ValueType, maxValue, minValue *float64, unit string) {
	a.rows = append(a.rows, phasestat.Row{
		RunID:      a.run,
		Metric:     metric,
		DetailName: detail,
		Phase:      p.label,
		Value:      value,
		Type:       typ,
		MaxValue:   maxValue,
		MinValue:   minValue,
		Unit:       unit,
		CreatedAt:  a.created,
	})
}

func (a *runAggregation) phase(ctx context.Context, source ports.MeasurementSource, phase measurement.Phase, keys []measurement.MetricKey) error {
	p := &phaseState{
		label:         phasestat.PhaseLabel(phase.Index, phase.Name),
		duration:      phase.Duration(),
		containerUtil: make(map[string]float64),
	}

	a.emit(p, phasestat.MetricPhaseTime, phasestat.DetailSystem, float64(p.duration), phasestat.Total, nil, nil, phasestat.UnitMicroseconds)

	for _, key := range keys {
		r, err := source.Aggregate(ctx, a.run, key, phase.Window())
		if err != nil {
			return fmt.Errorf("aggregate %s in phase %s of run %s: %w", key, phase.Name, a.run, err)
		}
		if r.Empty() {
			a.empty++
			telemetry.CountEmptyWindow()
			a.logger.Trace("run %s phase %s: no samples for %s", a.run, phase.Name, key)
			continue
		}
		a.samples += r.Count
		a.metric(p, phase, key, r)
	}

	a.network(p)
	embodied := a.embodied(p)
	a.sci(p, phase, embodied)
	a.attribute(p)
	return nil
}

func (a *runAggregation) metric(p *phaseState, phase measurement.Phase, key measurement.MetricKey, r measurement.RangeAggregate) {
	maxValue, minValue := r.Max, r.Min

	switch phasestat.Classify(key.Metric, key.Unit) {
	case phasestat.KindGauge:
		a.emit(p, key.Metric, key.DetailName, r.Avg, phasestat.Mean, &maxValue, &minValue, key.Unit)
		if phasestat.IsSystemCPUUtilization(key.Metric) {
			avg := r.Avg
			p.machineUtilization = &avg
		}
		if key.Metric == phasestat.MetricCPUUtilizationCgroupContainer {
			if _, seen := p.containerUtil[key.DetailName]; !seen {
				p.containerNames = append(p.containerNames, key.DetailName)
			}
			p.containerUtil[key.DetailName] = r.Avg
		}

	case phasestat.KindCounter:
		// cumulative counter: the window contributes max - min
		delta := r.Max - r.Min
		a.emit(p, key.Metric, key.DetailName, delta, phasestat.Total, nil, nil, key.Unit)
		p.networkBytes = append(p.networkBytes, delta)

	case phasestat.KindImpactGauge:
		a.emit(p, key.Metric, key.DetailName, r.Avg, phasestat.Mean, &maxValue, &minValue, key.Unit)

	case phasestat.KindEnergy:
		a.energy(p, phase, key, r)

	default:
		a.emit(p, key.Metric, key.DetailName, r.Sum, phasestat.Total, &maxValue, &minValue, key.Unit)
	}
}

func (a *runAggregation) energy(p *phaseState, phase measurement.Phase, key measurement.MetricKey, r measurement.RangeAggregate) {
	a.emit(p, key.Metric, key.DetailName, r.Sum, phasestat.Total, nil, nil, key.Unit)

	// mW; extremes assume uniform sampling, one sample every duration/count us
	powerAvg := carbon.PowerMilliwatts(r.Sum, p.duration)
	interval := float64(p.duration) / float64(r.Count)
	powerMax := r.Max * 1e6 / interval
	powerMin := r.Min * 1e6 / interval
	a.emit(p, phasestat.PowerMetricName(key.Metric), key.DetailName, powerAvg, phasestat.Mean, &powerMax, &powerMin, phasestat.UnitMilliwatt)

	if !phasestat.IsMachineEnergy(key.Metric) {
		return
	}
	co2 := carbon.MachineCO2Micrograms(r.Sum, a.params)
	p.machineCO2 = &co2
	a.emit(p, phasestat.CO2MetricName(key.Metric), key.DetailName, co2, phasestat.Total, nil, nil, phasestat.UnitMicrogram)

	if phase.Name == measurement.PhaseIdle {
		a.idlePower = &powerAvg
		return
	}
	energy := r.Sum
	p.runtimePower, p.runtimeEnergy = &powerAvg, &energy
}

// network derives the energy and CO2 of the phase's network transfer. The
// CO2 stays zero when no counter was sampled.
func (a *runAggregation) network(p *phaseState) {
	if len(p.networkBytes) == 0 {
		return
	}
	var total float64
	for _, b := range p.networkBytes {
		total += b
	}
	n := carbon.NetworkTransfer(total, a.params)
	a.emit(p, phasestat.MetricNetworkEnergyFormulaGlobal, phasestat.DetailFormula, n.Millijoules, phasestat.Total, nil, nil, phasestat.UnitMillijoule)
	a.emit(p, phasestat.MetricNetworkCO2FormulaGlobal, phasestat.DetailFormula, n.CO2Micrograms, phasestat.Total, nil, nil, phasestat.UnitMicrogram)
	p.networkCO2 = n.CO2Micrograms
}

func (a *runAggregation) embodied(p *phaseState) float64 {
	ug := carbon.EmbodiedMicrograms(p.duration, a.params)
	a.emit(p, phasestat.MetricEmbodiedCarbonShareMachine, phasestat.DetailSystem, ug, phasestat.Total, nil, nil, phasestat.UnitMicrogram)
	return ug
}

func (a *runAggregation) sci(p *phaseState, phase measurement.Phase, embodied float64) {
	if phase.Name != measurement.PhaseRuntime || p.machineCO2 == nil || !a.fu.Usable() {
		return
	}
	v := carbon.SoftwareCarbonIntensity(*p.machineCO2, embodied, p.networkCO2, *a.fu)
	a.emit(p, phasestat.MetricSoftwareCarbonIntensity, phasestat.DetailSystem, v, phasestat.Total, nil, nil, a.fu.Unit())
}

// attribute splits the machine's surplus over idle across containers by
// their share of CPU utilization
func (a *runAggregation) attribute(p *phaseState) {
	if a.idlePower == nil || *a.idlePower == 0 || p.runtimePower == nil || p.runtimeEnergy == nil {
		return
	}
	if p.machineUtilization == nil || *p.machineUtilization == 0 || len(p.containerNames) == 0 {
		return
	}

	surplusPower := *p.runtimePower - *a.idlePower                        // mW
	surplusEnergy := *p.runtimeEnergy - *a.idlePower*p.duration.Seconds() // mJ
	if surplusPower == 0 {
		return
	}

	var total float64
	for _, name := range p.containerNames {
		total += p.containerUtil[name]
	}
	if int64(total) == 0 {
		return
	}

	for _, name := range p.containerNames {
		share := p.containerUtil[name] / total
		a.emit(p, phasestat.MetricPSUEnergyCgroupContainer, name, surplusEnergy*share, phasestat.Total, nil, nil, phasestat.UnitMillijoule)
		a.emit(p, phasestat.MetricPSUPowerCgroupContainer, name, surplusPower*share, phasestat.Total, nil, nil, phasestat.UnitMilliwatt)
	}
}
