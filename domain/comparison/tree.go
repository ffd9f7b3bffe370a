package comparison

import (
	"greenmetrics/domain/metrics"
	"greenmetrics/domain/phasestat"
)

// Tree groups phase statistics as group -> phase -> metric -> detail.
// Every level keeps first-seen order; the two-group statistics rely on
// Groups[0] and Groups[1] being stable.
type Tree struct {
	Groups []*Group `json:"groups"`

	index map[string]*Group
}

// Group holds the phases of one comparison key (repo, machine, ...)
type Group struct {
	Key    string       `json:"key"`
	Phases []*PhaseNode `json:"phases"`

	index map[string]*PhaseNode
}

// PhaseNode holds the metrics of one phase within a group
type PhaseNode struct {
	Name    string        `json:"name"`
	Metrics []*MetricNode `json:"metrics"`

	index map[string]*MetricNode
}

// MetricNode carries registry metadata and the per-detail statistics of a
// metric
type MetricNode struct {
	Name     string              `json:"name"`
	Metadata metrics.Metadata    `json:"metadata"`
	Type     phasestat.ValueType `json:"type"`
	Unit     string              `json:"unit"`
	Details  []*DetailStats      `json:"details"`

	index map[string]*DetailStats
}

// DetailStats are the values of one detail across the runs of a group and
// the statistics derived from them. Nil means not defined for this N.
type DetailStats struct {
	Name          string    `json:"name"`
	Values        []float64 `json:"values"`
	Mean          *float64  `json:"mean"`
	StdDev        *float64  `json:"stddev"`
	CI            *float64  `json:"ci"`
	PValue        *float64  `json:"p_value"`
	IsSignificant *bool     `json:"is_significant"`
	Max           *float64  `json:"max"`
}

// NewTree returns an empty tree
func NewTree() *Tree {
	return &Tree{index: make(map[string]*Group)}
}

// Keys returns the group keys in first-seen order
func (t *Tree) Keys() []string {
	keys := make([]string, len(t.Groups))
	for i, g := range t.Groups {
		keys[i] = g.Key
	}
	return keys
}

// Group looks up a group by key
func (t *Tree) Group(key string) (*Group, bool) {
	g, ok := t.index[key]
	return g, ok
}

func (t *Tree) ensureGroup(key string) *Group {
	if g, ok := t.index[key]; ok {
		return g
	}
	g := &Group{Key: key, index: make(map[string]*PhaseNode)}
	t.Groups = append(t.Groups, g)
	t.index[key] = g
	return g
}

// Phase looks up a phase by its stripped name
func (g *Group) Phase(name string) (*PhaseNode, bool) {
	p, ok := g.index[name]
	return p, ok
}

func (g *Group) ensurePhase(name string) *PhaseNode {
	if p, ok := g.index[name]; ok {
		return p
	}
	p := &PhaseNode{Name: name, index: make(map[string]*MetricNode)}
	g.Phases = append(g.Phases, p)
	g.index[name] = p
	return p
}

// Metric looks up a metric node by metric name
func (p *PhaseNode) Metric(name string) (*MetricNode, bool) {
	m, ok := p.index[name]
	return m, ok
}

// Detail looks up the statistics of a detail name
func (m *MetricNode) Detail(name string) (*DetailStats, bool) {
	d, ok := m.index[name]
	return d, ok
}

// Leaf walks group -> phase -> metric -> detail, reporting false when any
// level is absent
func (t *Tree) Leaf(group, phase, metric, detail string) (*DetailStats, bool) {
	g, ok := t.Group(group)
	if !ok {
		return nil, false
	}
	p, ok := g.Phase(phase)
	if !ok {
		return nil, false
	}
	m, ok := p.Metric(metric)
	if !ok {
		return nil, false
	}
	return m.Detail(detail)
}

// BuildTree groups rows by the key of case c. Rows must already be in
// comparison order (phase, metric, detail, then the run dimensions). The
// registry supplies metadata once per metric node; an unknown metric
// aborts the build.
func BuildTree(rows []Row, c Case, registry *metrics.Registry) (*Tree, error) {
	tree := NewTree()
	for _, row := range rows {
		group := tree.ensureGroup(c.GroupKey(row))
		phase := group.ensurePhase(phasestat.StripPhaseLabel(row.Phase))

		metric, ok := phase.index[row.Metric]
		if !ok {
			md, err := registry.Lookup(row.Metric)
			if err != nil {
				return nil, err
			}
			metric = &MetricNode{
				Name:     row.Metric,
				Metadata: md,
				Type:     row.Type,
				Unit:     row.Unit,
				index:    make(map[string]*DetailStats),
			}
			phase.Metrics = append(phase.Metrics, metric)
			phase.index[row.Metric] = metric
		}

		detail, ok := metric.index[row.DetailName]
		if !ok {
			detail = &DetailStats{Name: row.DetailName, Max: copyFloat(row.MaxValue)}
			metric.Details = append(metric.Details, detail)
			metric.index[row.DetailName] = detail
		}
		detail.Values = append(detail.Values, row.Value)
	}
	return tree, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
