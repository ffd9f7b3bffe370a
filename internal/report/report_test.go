package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenmetrics/domain/comparison"
	"greenmetrics/domain/metrics"
	"greenmetrics/domain/phasestat"
)

func testReport(t *testing.T, mean float64) *comparison.Report {
	t.Helper()
	rows := []comparison.Row{
		{Phase: "003_[RUNTIME]", Metric: "cpu_energy_rapl_msr_component", DetailName: "Package_0", Value: 10, Type: phasestat.Total, Unit: "mJ", CommitHash: "abc"},
		{Phase: "003_[RUNTIME]", Metric: "cpu_energy_rapl_msr_component", DetailName: "Package_0", Value: 20, Type: phasestat.Total, Unit: "mJ", CommitHash: "abc"},
	}
	tree, err := comparison.BuildTree(rows, comparison.CaseRepeatedRun, metrics.MustDefault())
	require.NoError(t, err)
	leaf, ok := tree.Leaf("abc", "[RUNTIME]", "cpu_energy_rapl_msr_component", "Package_0")
	require.True(t, ok)
	leaf.Mean = &mean

	p, sig := 0.01, true
	return &comparison.Report{
		Case:    comparison.CaseRepeatedRun,
		Details: tree.Keys(),
		Data:    tree,
		Statistics: []comparison.PhaseComparison{{
			Phase: "[RUNTIME]",
			Metrics: []comparison.MetricComparison{{
				Metric:  "cpu_energy_rapl_msr_component",
				Details: []comparison.LeafComparison{{Detail: "Package_0", PValue: &p, IsSignificant: &sig}},
			}},
		}},
	}
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(testReport(t, 15))
	require.NoError(t, err)

	assert.Contains(t, md, "# Comparison: Repeated Run\n")
	assert.Contains(t, md, "Groups: `abc`")
	assert.Contains(t, md, "### \\[RUNTIME\\]")
	assert.Contains(t, md, "| CPU Energy (Package) | Package_0 | TOTAL | 2 | 15.00 mJ | - | - | - |")
	assert.Contains(t, md, "| \\[RUNTIME\\] | cpu_energy_rapl_msr_component | Package_0 | 0.0100 | yes |")
}

func TestMarkdownRescalesEnergy(t *testing.T) {
	md, err := Markdown(testReport(t, 2_500_000))
	require.NoError(t, err)
	assert.Contains(t, md, "| 2.50 kJ |")

	md, err = Markdown(testReport(t, 2_000_000_000))
	require.NoError(t, err)
	assert.Contains(t, md, "| 0.00 GJ |", "values above 1e9 mJ are divided by 1e12")
}

func TestMarkdownWithoutStatistics(t *testing.T) {
	r := testReport(t, 15)
	r.Statistics = nil
	md, err := Markdown(r)
	require.NoError(t, err)
	assert.NotContains(t, md, "Between groups")
}

func TestHTML(t *testing.T) {
	out, err := HTML(testReport(t, 15))
	require.NoError(t, err)
	page := string(out)
	assert.Contains(t, page, "<title>Comparison: Repeated Run</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "CPU Energy (Package)")
}

func TestMarkdownScalesAllStatisticsLikeTheMean(t *testing.T) {
	r := testReport(t, 2_500_000)
	leaf, ok := r.Data.Leaf("abc", "[RUNTIME]", "cpu_energy_rapl_msr_component", "Package_0")
	require.True(t, ok)
	sd, ci, maxValue := 408_248.29, 1_014_144.97, 3_000_000.0
	leaf.StdDev, leaf.CI, leaf.Max = &sd, &ci, &maxValue

	md, err := Markdown(r)
	require.NoError(t, err)
	assert.Contains(t, md, "| 2.50 kJ | 0.41 kJ | 1.01 kJ | 3.00 kJ |")
}

func TestMarkdownKeepsNonEnergyUnits(t *testing.T) {
	v, sd := 5.5, 0.25
	assert.Equal(t, "5.50 mW", mustScale(t, &v, "mW").format(&v))
	assert.Equal(t, "0.25 mW", mustScale(t, &v, "mW").format(&sd))
	assert.Equal(t, "-", mustScale(t, nil, "mJ").format(nil))
}

func mustScale(t *testing.T, mean *float64, unit string) scale {
	t.Helper()
	s, err := scaleFor(mean, unit)
	require.NoError(t, err)
	return s
}

func TestMarkdownEscapesGroupKeys(t *testing.T) {
	r := testReport(t, 15)
	r.Data.Groups[0].Key = "[scenario].yml"
	md, err := Markdown(r)
	require.NoError(t, err)
	assert.Contains(t, md, "## \\[scenario\\].yml\n")
}
