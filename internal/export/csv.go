package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVOptions configures the CSV export.
type CSVOptions struct {
	Delimiter     rune
	UseCRLF       bool
	IncludeHeader bool
}

// DefaultCSVOptions returns comma-separated output with a header row.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:     ',',
		UseCRLF:       false,
		IncludeHeader: true,
	}
}

// CSVExporter renders the monthly series of a report as a flat CSV
// table, the shape spreadsheet and BI imports expect.
type CSVExporter struct {
	options CSVOptions
}

// NewCSVExporter creates an exporter with the given options.
func NewCSVExporter(options CSVOptions) *CSVExporter {
	return &CSVExporter{options: options}
}

// Write renders the report's monthly figures to w.
func (e *CSVExporter) Write(report *AnnualReport, w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = e.options.Delimiter
	writer.UseCRLF = e.options.UseCRLF

	table := monthlyTable(report)
	if e.options.IncludeHeader {
		if err := writer.Write(table.headers); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, row := range table.rows {
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = formatCSVValue(value)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCSVValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
