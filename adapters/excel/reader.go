package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"greenmetrics/domain/core"
	"greenmetrics/domain/measurement"
	"greenmetrics/internal"
)

// SampleReader reads raw samples from an xlsx or csv file. xlsx files are
// read from their first sheet.
type SampleReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewSampleReader creates a reader, picking the format by extension
func NewSampleReader(filePath string, logger *internal.Logger) *SampleReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &SampleReader{filePath: filePath, fileType: fileType, logger: logger}
}

// ReadSamples reads all rows as samples of run, sorted as in the file
func (r *SampleReader) ReadSamples(run core.RunID) ([]measurement.Sample, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	for _, col := range []string{ColumnMetric, ColumnDetailName, ColumnUnit, ColumnTime, ColumnValue} {
		if !hasHeader(data.Headers, col) {
			return nil, fmt.Errorf("%w: missing column %q in %s", core.ErrInvalidInput, col, r.filePath)
		}
	}

	samples := make([]measurement.Sample, 0, len(data.Rows))
	for i, row := range data.Rows {
		t, err := strconv.ParseInt(row[ColumnTime], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad time %q", core.ErrInvalidInput, i+2, row[ColumnTime])
		}
		v, err := strconv.ParseFloat(row[ColumnValue], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad value %q", core.ErrInvalidInput, i+2, row[ColumnValue])
		}
		samples = append(samples, measurement.Sample{
			RunID:      run,
			Metric:     row[ColumnMetric],
			DetailName: row[ColumnDetailName],
			Unit:       row[ColumnUnit],
			Time:       core.Microseconds(t),
			Value:      v,
		})
	}
	return samples, nil
}

// ReadData reads the header and rows of the file
func (r *SampleReader) ReadData() (*SheetData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	default:
		return r.readExcelData()
	}
}

func (r *SampleReader) readExcelData() (*SheetData, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: Excel file has no sheets", core.ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	r.logger.Debug("read sheet %s in %.2fms (%d rows)", sheets[0], float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: Excel file must have a header row and one data row", core.ErrInvalidInput)
	}
	return processRows(rows), nil
}

func (r *SampleReader) readCSVData() (*SheetData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("read CSV file in %.2fms (%d rows)", float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: CSV file must have a header row and one data row", core.ErrInvalidInput)
	}
	return processRows(rows), nil
}

// processRows keys every data row by the trimmed header row
func processRows(rows [][]string) *SheetData {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	data := make([]RawRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRow, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		data = append(data, rowData)
	}
	return &SheetData{Headers: headers, Rows: data}
}

func hasHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}
