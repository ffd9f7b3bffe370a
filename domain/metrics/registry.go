// Package metrics provides the metric registry: display metadata for every
// metric name that can appear in phase statistics.
//
// A Registry is read-only after construction and is passed explicitly to
// the components that need it. Lookups of unknown names fail; there is no
// fallback metadata.
package metrics

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"greenmetrics/domain/core"
	"greenmetrics/domain/phasestat"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultRegistryYAML []byte

// Metadata describes how a metric is displayed
type Metadata struct {
	CleanName   string `yaml:"clean_name" json:"clean_name"`
	Explanation string `yaml:"explanation" json:"explanation"`
	Color       string `yaml:"color" json:"color"`
	Icon        string `yaml:"icon" json:"icon"`
}

// Registry maps metric names to Metadata
type Registry struct {
	entries map[string]Metadata
}

type registryFile struct {
	Metrics map[string]Metadata `yaml:"metrics"`
}

// RequiredMetrics are emitted by aggregation regardless of which providers
// ran, so every registry must describe them.
var RequiredMetrics = []string{
	phasestat.MetricPhaseTime,
	phasestat.MetricEmbodiedCarbonShareMachine,
	phasestat.MetricSoftwareCarbonIntensity,
	phasestat.MetricNetworkEnergyFormulaGlobal,
	phasestat.MetricNetworkCO2FormulaGlobal,
	phasestat.MetricPSUEnergyCgroupContainer,
	phasestat.MetricPSUPowerCgroupContainer,
}

// New builds a registry from an explicit table
func New(entries map[string]Metadata) (*Registry, error) {
	r := &Registry{entries: make(map[string]Metadata, len(entries))}
	for name, md := range entries {
		if name == "" {
			return nil, fmt.Errorf("%w: empty metric name", core.ErrInvalidRegistry)
		}
		if md.CleanName == "" {
			return nil, fmt.Errorf("%w: metric %s has no clean_name", core.ErrInvalidRegistry, name)
		}
		r.entries[name] = md
	}
	if err := r.Require(RequiredMetrics...); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns the registry compiled into the binary
func Default() (*Registry, error) {
	return Parse(defaultRegistryYAML)
}

// MustDefault is Default for package initialization and tests
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Parse reads a registry from YAML
func Parse(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRegistry, err)
	}
	return New(f.Metrics)
}

// Load reads a registry from r
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadFile reads a registry file; an empty path yields the default registry
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metric registry: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Lookup returns the metadata of metric or ErrUnknownMetric
func (r *Registry) Lookup(metric string) (Metadata, error) {
	md, ok := r.entries[metric]
	if !ok {
		return Metadata{}, core.NewUnknownMetricError(metric)
	}
	return md, nil
}

// Has reports whether metric is registered
func (r *Registry) Has(metric string) bool {
	_, ok := r.entries[metric]
	return ok
}

// Require fails with ErrInvalidRegistry listing every missing name
func (r *Registry) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !r.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing metrics %v", core.ErrInvalidRegistry, missing)
	}
	return nil
}

// Names returns all registered metric names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fingerprint hashes the registry contents in name order, so two
// registries with the same entries share a fingerprint
func (r *Registry) Fingerprint() core.Hash {
	var b strings.Builder
	for _, n := range r.Names() {
		md := r.entries[n]
		fmt.Fprintf(&b, "%s\x00%s\x00%s\x00%s\x00%s\n", n, md.CleanName, md.Explanation, md.Color, md.Icon)
	}
	return core.NewHash([]byte(b.String()))
}

// Len returns the number of registered metrics
func (r *Registry) Len() int {
	return len(r.entries)
}
