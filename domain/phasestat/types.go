// Package phasestat defines the normalized per-phase statistics produced
// by aggregation and read back by comparisons.
package phasestat

import (
	"fmt"
	"strings"
	"time"

	"greenmetrics/domain/core"
)

// ValueType dictates how a row may be combined downstream
type ValueType string

const (
	// Mean rows are averages over the phase window and must not be summed
	// across detail names.
	Mean ValueType = "MEAN"
	// Total rows are sums or deltas over the phase window and are summable
	// across detail names.
	Total ValueType = "TOTAL"
)

func (t ValueType) Valid() bool {
	return t == Mean || t == Total
}

// Detail names used for derived rows
const (
	DetailSystem  = "[SYSTEM]"
	DetailFormula = "[FORMULA]"
)

// Row is one persisted phase statistic. Rows are produced once per run and
// never updated.
type Row struct {
	RunID      core.RunID `json:"run_id" db:"run_id"`
	Metric     string     `json:"metric" db:"metric"`
	DetailName string     `json:"detail_name" db:"detail_name"`
	Phase      string     `json:"phase" db:"phase"`
	Value      float64    `json:"value" db:"value"`
	Type       ValueType  `json:"type" db:"type"`
	MaxValue   *float64   `json:"max_value,omitempty" db:"max_value"`
	MinValue   *float64   `json:"min_value,omitempty" db:"min_value"`
	Unit       string     `json:"unit" db:"unit"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// PhaseLabel encodes a phase for storage. The zero-padded index prefix makes
// lexical order equal run order, which comparison queries rely on.
func PhaseLabel(index int, name string) string {
	return fmt.Sprintf("%03d_%s", index, name)
}

// StripPhaseLabel removes the ordering prefix added by PhaseLabel. Labels
// without a prefix are returned unchanged.
func StripPhaseLabel(label string) string {
	prefix, rest, ok := strings.Cut(label, "_")
	if !ok || prefix == "" {
		return label
	}
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return label
		}
	}
	return rest
}
