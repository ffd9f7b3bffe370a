// Package report renders comparison reports as markdown and HTML.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"greenmetrics/domain/comparison"
	"greenmetrics/domain/phasestat"
)

// Markdown renders report as a markdown document: one table per group and
// phase, followed by the between-group tests when there are two groups
func Markdown(report *comparison.Report) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Comparison: %s\n\n", report.Case)
	fmt.Fprintf(&b, "Groups: %s\n\n", strings.Join(quoted(report.Details), ", "))

	if report.Data != nil {
		for _, g := range report.Data.Groups {
			fmt.Fprintf(&b, "## %s\n\n", escape(g.Key))
			for _, p := range g.Phases {
				if err := phaseTable(&b, p); err != nil {
					return "", err
				}
			}
		}
	}

	if len(report.Statistics) > 0 {
		b.WriteString("## Between groups\n\n")
		b.WriteString("| Phase | Metric | Detail | p-value | Significant |\n")
		b.WriteString("|---|---|---|---:|---|\n")
		for _, pc := range report.Statistics {
			for _, mc := range pc.Metrics {
				for _, lc := range mc.Details {
					fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
						escape(pc.Phase), mc.Metric, escape(lc.Detail), number(lc.PValue, "%.4f"), yesNo(lc.IsSignificant))
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func phaseTable(b *strings.Builder, p *comparison.PhaseNode) error {
	fmt.Fprintf(b, "### %s\n\n", escape(p.Name))
	b.WriteString("| Metric | Detail | Type | N | Mean | StdDev | CI | Max |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|---:|\n")
	for _, m := range p.Metrics {
		name := m.Name
		if m.Metadata.CleanName != "" {
			name = m.Metadata.CleanName
		}
		for _, d := range m.Details {
			sc, err := scaleFor(d.Mean, m.Unit)
			if err != nil {
				return fmt.Errorf("render %s/%s: %w", m.Name, d.Name, err)
			}
			fmt.Fprintf(b, "| %s | %s | %s | %d | %s | %s | %s | %s |\n",
				name, escape(d.Name), m.Type, len(d.Values),
				sc.format(d.Mean), sc.format(d.StdDev), sc.format(d.CI), sc.format(d.Max))
		}
	}
	b.WriteString("\n")
	return nil
}

// energyFactors converts millijoules into each display unit RescaleEnergy
// may pick
var energyFactors = map[string]float64{
	"GJ": 1e-12,
	"MJ": 1e-9,
	"kJ": 1e-6,
	"J":  1e-3,
	"mJ": 1,
	"nJ": 1e3,
}

// scale is the display unit shared by all statistics of one detail row
type scale struct {
	factor float64
	unit   string
}

// scaleFor picks the unit from the mean, so stddev, ci and max of the same
// row are shown in the same unit. Non-energy units are left as they are.
func scaleFor(mean *float64, unit string) (scale, error) {
	if mean == nil || unit != phasestat.UnitMillijoule {
		return scale{factor: 1, unit: unit}, nil
	}
	s, err := phasestat.RescaleEnergy(*mean, unit)
	if err != nil {
		return scale{}, err
	}
	factor, ok := energyFactors[s.Unit]
	if !ok {
		return scale{}, fmt.Errorf("no conversion from mJ to %s", s.Unit)
	}
	return scale{factor: factor, unit: s.Unit}, nil
}

func (s scale) format(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", *v*s.factor, s.unit)
}

// HTML renders the markdown report as a standalone HTML page
func HTML(report *comparison.Report) ([]byte, error) {
	md, err := Markdown(report)
	if err != nil {
		return nil, err
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("Comparison: %s", report.Case),
	})
	return markdown.ToHTML([]byte(md), p, renderer), nil
}

func number(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func yesNo(v *bool) string {
	switch {
	case v == nil:
		return "-"
	case *v:
		return "yes"
	default:
		return "no"
	}
}

func quoted(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = "`" + k + "`"
	}
	return out
}

// escape keeps detail names such as [MACHINE] from being read as links or
// breaking table cells
func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "[", `\[`, "]", `\]`).Replace(s)
}
