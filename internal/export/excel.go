package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"blipee/sustainability-engine/internal/catalog"
	"blipee/sustainability-engine/internal/metrics"
)

const (
	sheetSummary    = "Summary"
	sheetMonthly    = "Monthly"
	sheetCategories = "Categories"
	sheetSites      = "Sites"

	minColumnWidth = 10.0
	maxColumnWidth = 50.0
)

// ExcelOptions controls workbook styling.
type ExcelOptions struct {
	HeaderFill  string
	HeaderColor string
	FreezePanes bool
}

// DefaultExcelOptions returns the house styling.
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		HeaderFill:  "4472C4",
		HeaderColor: "FFFFFF",
		FreezePanes: true,
	}
}

// ExcelExporter renders annual reports as xlsx workbooks with a summary
// sheet and one sheet per breakdown.
type ExcelExporter struct {
	options ExcelOptions
}

// NewExcelExporter creates an exporter with the given options.
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	return &ExcelExporter{options: options}
}

// Write renders the report and writes the workbook to w.
func (e *ExcelExporter) Write(report *AnnualReport, w io.Writer) error {
	file, err := e.Export(report)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Export renders the report into a workbook. The caller owns the file
// and must close it.
func (e *ExcelExporter) Export(report *AnnualReport) (*excelize.File, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}

	styles, err := e.buildStyles(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	e.writeSummary(file, report, styles)

	if err := e.writeTable(file, sheetMonthly, monthlyTable(report), styles); err != nil {
		file.Close()
		return nil, err
	}
	if err := e.writeTable(file, sheetCategories, categoryTable(report), styles); err != nil {
		file.Close()
		return nil, err
	}
	if err := e.writeTable(file, sheetSites, siteTable(report), styles); err != nil {
		file.Close()
		return nil, err
	}

	file.SetActiveSheet(0)
	return file, nil
}

type excelStyles struct {
	title  int
	header int
	label  int
	number int
}

func (e *ExcelExporter) buildStyles(file *excelize.File) (excelStyles, error) {
	var styles excelStyles

	title, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create title style: %w", err)
	}

	header, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: e.options.HeaderColor},
		Fill: excelize.Fill{Type: "pattern", Color: []string{e.options.HeaderFill}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create header style: %w", err)
	}

	label, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create label style: %w", err)
	}

	format := "#,##0.00"
	number, err := file.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return styles, fmt.Errorf("failed to create number style: %w", err)
	}

	styles.title = title
	styles.header = header
	styles.label = label
	styles.number = number
	return styles, nil
}

// ===== Summary sheet =====

func (e *ExcelExporter) writeSummary(file *excelize.File, report *AnnualReport, styles excelStyles) {
	file.SetCellValue(sheetSummary, "A1", fmt.Sprintf("%s Report %d", domainLabel(report.Domain), report.Year))
	file.SetCellStyle(sheetSummary, "A1", "A1", styles.title)

	row := 3
	writePair := func(label string, value interface{}, numeric bool) {
		labelCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		file.SetCellValue(sheetSummary, labelCell, label)
		file.SetCellStyle(sheetSummary, labelCell, labelCell, styles.label)
		file.SetCellValue(sheetSummary, valueCell, value)
		if numeric {
			file.SetCellStyle(sheetSummary, valueCell, valueCell, styles.number)
		}
		row++
	}

	writePair("Organization", report.OrganizationID.String(), false)
	writePair("Domain", string(report.Domain), false)
	writePair("Reporting year", report.Year, false)
	writePair(fmt.Sprintf("Total (%s)", report.Unit), report.Total, true)
	writePair("Records", report.RecordCount, false)

	for _, scope := range sortedScopes(report.ScopeTotals) {
		writePair(scopeLabel(scope), report.ScopeTotals[scope], true)
	}

	if progress := report.Progress; progress != nil {
		row++
		sectionCell, _ := excelize.CoordinatesToCellName(1, row)
		file.SetCellValue(sheetSummary, sectionCell, "Target standing")
		file.SetCellStyle(sheetSummary, sectionCell, sectionCell, styles.title)
		row++
		writePair(fmt.Sprintf("Baseline (%s)", report.Unit), progress.BaselineValue, true)
		writePair(fmt.Sprintf("Year target (%s)", report.Unit), progress.TargetValue, true)
		writePair(fmt.Sprintf("Actual YTD (%s)", report.Unit), progress.ActualYTD, true)
		writePair(fmt.Sprintf("Projected (%s)", report.Unit), progress.ProjectedValue, true)
		writePair("Projection method", progress.ProjectionMethod, false)
		writePair("Status", string(progress.Status), false)
		writePair(fmt.Sprintf("Reduction needed (%s)", report.Unit), progress.ReductionNeeded, true)
		writePair(fmt.Sprintf("Reduction achieved (%s)", report.Unit), progress.ReductionAchieved, true)
		writePair("Reduction achieved (%)", progress.ReductionAchievedPercent, true)
		writePair("Gap to target", progress.GapToTarget, true)
	}

	row++
	writePair("Generated at", report.GeneratedAt.Format("2006-01-02 15:04 UTC"), false)

	file.SetColWidth(sheetSummary, "A", "A", 24)
	file.SetColWidth(sheetSummary, "B", "B", 38)
}

// ===== Breakdown sheets =====

type sheetTable struct {
	headers []string
	rows    [][]interface{}
	// numeric marks the columns rendered with the number format.
	numeric []bool
}

func monthlyTable(report *AnnualReport) sheetTable {
	table := sheetTable{
		headers: []string{"Month", fmt.Sprintf("%s (%s)", domainLabel(report.Domain), report.Unit)},
		numeric: []bool{false, true},
	}
	for _, point := range report.Monthly {
		table.rows = append(table.rows, []interface{}{
			point.Month.Format("2006-01"),
			point.Value,
		})
	}
	return table
}

func categoryTable(report *AnnualReport) sheetTable {
	table := sheetTable{
		headers: []string{"Category", fmt.Sprintf("Total (%s)", report.Unit), "Share (%)"},
		numeric: []bool{false, true, true},
	}
	for _, category := range report.Categories {
		table.rows = append(table.rows, []interface{}{
			category.Category,
			category.Value,
			category.Percentage,
		})
	}
	return table
}

func siteTable(report *AnnualReport) sheetTable {
	table := sheetTable{
		headers: []string{"Site", fmt.Sprintf("Total (%s)", report.Unit), "Share (%)"},
		numeric: []bool{false, true, true},
	}
	for _, site := range report.Sites {
		table.rows = append(table.rows, []interface{}{
			site.SiteName,
			site.Value,
			site.Percentage,
		})
	}
	return table
}

func (e *ExcelExporter) writeTable(file *excelize.File, name string, table sheetTable, styles excelStyles) error {
	if _, err := file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	widths := make([]float64, len(table.headers))
	for col, header := range table.headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		file.SetCellValue(name, cell, header)
		widths[col] = float64(len(header))
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(table.headers), 1)
	file.SetCellStyle(name, "A1", lastHeader, styles.header)

	for i, rowValues := range table.rows {
		for col, value := range rowValues {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			file.SetCellValue(name, cell, value)
			if table.numeric[col] {
				file.SetCellStyle(name, cell, cell, styles.number)
			}
			if text, ok := value.(string); ok && float64(len(text)) > widths[col] {
				widths[col] = float64(len(text))
			}
		}
	}

	for col, width := range widths {
		width += 4
		if width < minColumnWidth {
			width = minColumnWidth
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		colName, _ := excelize.ColumnNumberToName(col + 1)
		file.SetColWidth(name, colName, colName, width)
	}

	if e.options.FreezePanes {
		file.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

// ===== Labels =====

func domainLabel(domain metrics.Domain) string {
	switch domain {
	case metrics.DomainEmissions:
		return "Emissions"
	case metrics.DomainEnergy:
		return "Energy"
	case metrics.DomainWater:
		return "Water"
	case metrics.DomainWaste:
		return "Waste"
	}
	return string(domain)
}

func scopeLabel(scope catalog.Scope) string {
	return "Scope " + strings.TrimPrefix(string(scope), "scope_")
}

func sortedScopes(totals map[catalog.Scope]float64) []catalog.Scope {
	scopes := make([]catalog.Scope, 0, len(totals))
	for scope := range totals {
		scopes = append(scopes, scope)
	}
	sort.Slice(scopes, func(i, j int) bool { return scopes[i] < scopes[j] })
	return scopes
}
