package excel

// RawRow is one data row keyed by trimmed header
type RawRow map[string]string

// SheetData is the header and data rows of a sheet or CSV file
type SheetData struct {
	Headers []string
	Rows    []RawRow
}

// Sample sheet columns. run_id is optional; the importing run wins.
const (
	ColumnMetric     = "metric"
	ColumnDetailName = "detail_name"
	ColumnUnit       = "unit"
	ColumnTime       = "time"
	ColumnValue      = "value"
)
