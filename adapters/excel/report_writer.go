package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"greenmetrics/domain/comparison"
)

const (
	sheetSummary    = "Summary"
	sheetGroups     = "Groups"
	sheetComparison = "Comparison"
)

var groupHeaders = []interface{}{
	"group", "phase", "metric", "clean_name", "detail", "type", "unit",
	"n", "mean", "stddev", "ci", "max", "p_value", "is_significant",
}

var comparisonHeaders = []interface{}{"phase", "metric", "detail", "p_value", "is_significant"}

// WriteReport renders a comparison report as an xlsx workbook with a
// summary sheet, one row per group leaf and one row per between-group test
func WriteReport(w io.Writer, report *comparison.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeSummary(f, report, bold); err != nil {
		return err
	}
	if err := writeGroups(f, report, bold); err != nil {
		return err
	}
	if err := writeComparison(f, report, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, report *comparison.Report, bold int) error {
	rows := [][]interface{}{
		{"comparison_case", string(report.Case)},
		{"groups", len(report.Details)},
	}
	for i, key := range report.Details {
		rows = append(rows, []interface{}{fmt.Sprintf("group_%d", i+1), key})
	}
	if err := setRows(f, sheetSummary, rows); err != nil {
		return err
	}
	return f.SetCellStyle(sheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), bold)
}

func writeGroups(f *excelize.File, report *comparison.Report, bold int) error {
	if _, err := f.NewSheet(sheetGroups); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", sheetGroups, err)
	}
	rows := [][]interface{}{groupHeaders}
	if report.Data != nil {
		for _, g := range report.Data.Groups {
			for _, p := range g.Phases {
				for _, m := range p.Metrics {
					for _, d := range m.Details {
						rows = append(rows, []interface{}{
							g.Key, p.Name, m.Name, m.Metadata.CleanName, d.Name, string(m.Type), m.Unit,
							len(d.Values), cell(d.Mean), cell(d.StdDev), cell(d.CI), cell(d.Max),
							cell(d.PValue), boolCell(d.IsSignificant),
						})
					}
				}
			}
		}
	}
	if err := setRows(f, sheetGroups, rows); err != nil {
		return err
	}
	return styleHeader(f, sheetGroups, len(groupHeaders), bold)
}

func writeComparison(f *excelize.File, report *comparison.Report, bold int) error {
	if _, err := f.NewSheet(sheetComparison); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", sheetComparison, err)
	}
	rows := [][]interface{}{comparisonHeaders}
	for _, pc := range report.Statistics {
		for _, mc := range pc.Metrics {
			for _, lc := range mc.Details {
				rows = append(rows, []interface{}{pc.Phase, mc.Metric, lc.Detail, cell(lc.PValue), boolCell(lc.IsSignificant)})
			}
		}
	}
	if err := setRows(f, sheetComparison, rows); err != nil {
		return err
	}
	return styleHeader(f, sheetComparison, len(comparisonHeaders), bold)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// cell leaves undefined statistics blank
func cell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolCell(v *bool) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
