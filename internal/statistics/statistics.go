// Package statistics computes the descriptive statistics and significance
// tests attached to a comparison tree.
package statistics

import (
	"math"
	"sync"

	moremath "github.com/aclements/go-moremath/stats"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"greenmetrics/domain/comparison"
	"greenmetrics/domain/core"
)

// Alpha is the significance level of every test
const Alpha = 0.05

// Summary holds the statistics of one value list. Nil fields are not
// defined for the list's size.
type Summary struct {
	N             int
	Mean          float64
	StdDev        *float64
	CI            *float64
	Max           *float64
	PValue        *float64
	IsSignificant *bool
}

// criticalT caches the two-sided 95% critical t value by sample count.
// Values are a pure function of N, so entries never need invalidation.
var criticalT sync.Map

// CriticalT returns |t| at alpha/2 for df = n-1. n must be at least 2.
func CriticalT(n int) float64 {
	if v, ok := criticalT.Load(n); ok {
		return v.(float64)
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile(Alpha / 2)
	v, _ := criticalT.LoadOrStore(n, math.Abs(t))
	return v.(float64)
}

// Describe summarizes values. For N=1 only Mean is set; N>=2 adds the
// population standard deviation, max and confidence interval; N>=3 tests
// the last value against the others with a one-sample t-test.
func Describe(values []float64) (Summary, error) {
	n := len(values)
	if n == 0 {
		return Summary{}, core.ErrEmptyMeasurements
	}
	data := stats.Float64Data(values)

	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{N: n, Mean: mean}
	if n < 2 {
		return s, nil
	}

	sd, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return Summary{}, err
	}
	maxValue, err := stats.Max(data)
	if err != nil {
		return Summary{}, err
	}
	ci := sd * CriticalT(n) / math.Sqrt(float64(n))
	s.StdDev, s.Max, s.CI = &sd, &maxValue, &ci

	if n < 3 {
		return s, nil
	}
	s.PValue, s.IsSignificant = OneSample(values[:n-1], values[n-1])
	return s, nil
}

// OneSample tests whether sample differs from popMean. Both results are
// nil when the test is undefined, e.g. for zero variance.
func OneSample(sample []float64, popMean float64) (*float64, *bool) {
	res, err := moremath.OneSampleTTest(moremath.Sample{Xs: sample}, popMean, moremath.LocationDiffers)
	if err != nil {
		return nil, nil
	}
	return significance(res.P)
}

// Welch runs a two-sample t-test without assuming equal variances
func Welch(a, b []float64) (*float64, *bool) {
	res, err := moremath.TwoSampleWelchTTest(moremath.Sample{Xs: a}, moremath.Sample{Xs: b}, moremath.LocationDiffers)
	if err != nil {
		return nil, nil
	}
	return significance(res.P)
}

func significance(p float64) (*float64, *bool) {
	if math.IsNaN(p) {
		return nil, nil
	}
	sig := p <= Alpha
	return &p, &sig
}

// ApplyGroupStatistics fills every detail leaf of the tree with its
// Describe summary. The stored max of a single value is left untouched.
func ApplyGroupStatistics(tree *comparison.Tree) error {
	for _, g := range tree.Groups {
		for _, p := range g.Phases {
			for _, m := range p.Metrics {
				for _, d := range m.Details {
					s, err := Describe(d.Values)
					if err != nil {
						return err
					}
					mean := s.Mean
					d.Mean = &mean
					d.StdDev = s.StdDev
					d.CI = s.CI
					d.PValue = s.PValue
					d.IsSignificant = s.IsSignificant
					if s.Max != nil {
						d.Max = s.Max
					}
				}
			}
		}
	}
	return nil
}

// BetweenGroups compares the first two groups leaf by leaf. Fewer than two
// groups yields no statistics and more than two is ErrTooManyGroups. Leaves
// of group one that are missing from group two are skipped.
func BetweenGroups(tree *comparison.Tree) ([]comparison.PhaseComparison, error) {
	switch len(tree.Groups) {
	case 0, 1:
		return nil, nil
	case 2:
	default:
		return nil, core.ErrTooManyGroups
	}

	first, second := tree.Groups[0], tree.Groups[1]
	var out []comparison.PhaseComparison
	for _, p := range first.Phases {
		pc := comparison.PhaseComparison{Phase: p.Name}
		for _, m := range p.Metrics {
			mc := comparison.MetricComparison{Metric: m.Name}
			for _, d := range m.Details {
				other, ok := tree.Leaf(second.Key, p.Name, m.Name, d.Name)
				if !ok {
					continue
				}
				pv, sig := Welch(d.Values, other.Values)
				mc.Details = append(mc.Details, comparison.LeafComparison{
					Detail:        d.Name,
					PValue:        pv,
					IsSignificant: sig,
				})
			}
			if len(mc.Details) > 0 {
				pc.Metrics = append(pc.Metrics, mc)
			}
		}
		if len(pc.Metrics) > 0 {
			out = append(out, pc)
		}
	}
	return out, nil
}
