package comparison

// LeafComparison is the Welch test result between the two groups for one
// (phase, metric, detail) leaf. Nil fields mean the test was undefined.
type LeafComparison struct {
	Detail        string   `json:"detail"`
	PValue        *float64 `json:"p_value"`
	IsSignificant *bool    `json:"is_significant"`
}

type MetricComparison struct {
	Metric  string           `json:"metric"`
	Details []LeafComparison `json:"details"`
}

type PhaseComparison struct {
	Phase   string             `json:"phase"`
	Metrics []MetricComparison `json:"metrics"`
}

// Report is the result of comparing a set of runs
type Report struct {
	Case Case `json:"comparison_case"`
	// Details lists the group keys in the order groups appear in Data.
	Details    []string          `json:"comparison_details"`
	Data       *Tree             `json:"data"`
	Statistics []PhaseComparison `json:"statistics"`
}
