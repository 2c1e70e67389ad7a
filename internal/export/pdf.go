package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls page geometry and styling of PDF reports.
type PDFOptions struct {
	Orientation string
	PageSize    string
	Font        string
	TitleSize   float64
	HeadingSize float64
	BodySize    float64
	HeaderRGB   [3]int
	StripeRGB   [3]int
	Margins     PDFMargins
}

// PDFMargins are page margins in millimetres.
type PDFMargins struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// DefaultPDFOptions returns the house layout: A4 portrait with the
// same header palette as the Excel export.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Orientation: "P",
		PageSize:    "A4",
		Font:        "Arial",
		TitleSize:   16,
		HeadingSize: 12,
		BodySize:    10,
		HeaderRGB:   [3]int{68, 114, 196},
		StripeRGB:   [3]int{242, 242, 242},
		Margins:     PDFMargins{Left: 15, Right: 15, Top: 20, Bottom: 20},
	}
}

// PDFExporter renders annual reports as paginated PDF documents.
type PDFExporter struct {
	options PDFOptions
}

// NewPDFExporter creates an exporter with the given options.
func NewPDFExporter(options PDFOptions) *PDFExporter {
	return &PDFExporter{options: options}
}

const (
	pdfRowHeight     = 8.0
	pdfSummaryLabelW = 60.0
)

// Write renders the report and writes the document to w.
func (e *PDFExporter) Write(report *AnnualReport, w io.Writer) error {
	opts := e.options
	pdf := gofpdf.New(opts.Orientation, "mm", opts.PageSize, "")
	pdf.SetTitle(fmt.Sprintf("%s Report %d", domainLabel(report.Domain), report.Year), false)
	pdf.SetMargins(opts.Margins.Left, opts.Margins.Top, opts.Margins.Right)
	pdf.SetAutoPageBreak(true, opts.Margins.Bottom)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(opts.Font, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	e.addTitle(pdf, report)
	e.addSummary(pdf, report)

	monthly := monthlyTable(report)
	e.addTable(pdf, "Monthly figures", monthly.headers, formatRows(monthly.rows))

	categories := categoryTable(report)
	e.addTable(pdf, "By category", categories.headers, formatRows(categories.rows))

	sites := siteTable(report)
	e.addTable(pdf, "By site", sites.headers, formatRows(sites.rows))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func (e *PDFExporter) addTitle(pdf *gofpdf.Fpdf, report *AnnualReport) {
	opts := e.options
	pdf.SetFont(opts.Font, "B", opts.TitleSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s Report %d", domainLabel(report.Domain), report.Year), "", 1, "C", false, 0, "")

	pdf.SetFont(opts.Font, "", 9)
	pdf.SetTextColor(100, 100, 100)
	subtitle := fmt.Sprintf("Organization %s, generated %s",
		report.OrganizationID.String(),
		report.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	pdf.CellFormat(0, 6, subtitle, "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

// addSummary prints the key figures as label/value lines, with the
// target standing appended when the report carries one.
func (e *PDFExporter) addSummary(pdf *gofpdf.Fpdf, report *AnnualReport) {
	type line struct {
		label string
		value string
	}

	lines := []line{
		{fmt.Sprintf("Total (%s)", report.Unit), fmt.Sprintf("%.2f", report.Total)},
		{"Records", fmt.Sprintf("%d", report.RecordCount)},
	}
	for _, scope := range sortedScopes(report.ScopeTotals) {
		lines = append(lines, line{scopeLabel(scope), fmt.Sprintf("%.2f", report.ScopeTotals[scope])})
	}
	if progress := report.Progress; progress != nil {
		lines = append(lines,
			line{fmt.Sprintf("Baseline (%s)", report.Unit), fmt.Sprintf("%.2f", progress.BaselineValue)},
			line{fmt.Sprintf("Year target (%s)", report.Unit), fmt.Sprintf("%.2f", progress.TargetValue)},
			line{fmt.Sprintf("Projected (%s)", report.Unit), fmt.Sprintf("%.2f", progress.ProjectedValue)},
			line{"Status", string(progress.Status)},
			line{fmt.Sprintf("Reduction achieved (%s)", report.Unit), fmt.Sprintf("%.2f", progress.ReductionAchieved)},
			line{"Reduction achieved (%)", fmt.Sprintf("%.2f", progress.ReductionAchievedPercent)},
		)
	}

	opts := e.options
	pdf.SetFont(opts.Font, "B", opts.HeadingSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")

	for _, l := range lines {
		pdf.SetFont(opts.Font, "B", opts.BodySize)
		pdf.CellFormat(pdfSummaryLabelW, 6, l.label, "", 0, "L", false, 0, "")
		pdf.SetFont(opts.Font, "", opts.BodySize)
		pdf.CellFormat(0, 6, l.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

// ===== Tables =====

func (e *PDFExporter) addTable(pdf *gofpdf.Fpdf, title string, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	opts := e.options

	pdf.SetFont(opts.Font, "B", opts.HeadingSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")

	widths := e.columnWidths(pdf, headers, rows)
	e.addTableHeader(pdf, headers, widths)

	pdf.SetFont(opts.Font, "", opts.BodySize)
	pdf.SetTextColor(0, 0, 0)
	_, pageHeight := pdf.GetPageSize()

	for i, row := range rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-opts.Margins.Bottom {
			pdf.AddPage()
			e.addTableHeader(pdf, headers, widths)
			pdf.SetFont(opts.Font, "", opts.BodySize)
			pdf.SetTextColor(0, 0, 0)
		}

		fill := i%2 == 1
		if fill {
			pdf.SetFillColor(opts.StripeRGB[0], opts.StripeRGB[1], opts.StripeRGB[2])
		}
		for j, value := range row {
			align := "L"
			if j > 0 {
				align = "R"
			}
			pdf.CellFormat(widths[j], pdfRowHeight, truncate(pdf, value, widths[j]), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addTableHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	opts := e.options
	pdf.SetFont(opts.Font, "B", opts.BodySize)
	pdf.SetFillColor(opts.HeaderRGB[0], opts.HeaderRGB[1], opts.HeaderRGB[2])
	pdf.SetTextColor(255, 255, 255)
	for j, header := range headers {
		pdf.CellFormat(widths[j], pdfRowHeight, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// columnWidths sizes columns by their widest content and scales the
// set to fill the printable width.
func (e *PDFExporter) columnWidths(pdf *gofpdf.Fpdf, headers []string, rows [][]string) []float64 {
	opts := e.options
	pdf.SetFont(opts.Font, "B", opts.BodySize)

	widths := make([]float64, len(headers))
	for j, header := range headers {
		widths[j] = pdf.GetStringWidth(header) + 6
	}

	pdf.SetFont(opts.Font, "", opts.BodySize)
	for _, row := range rows {
		for j, value := range row {
			if w := pdf.GetStringWidth(value) + 6; w > widths[j] {
				widths[j] = w
			}
		}
	}

	pageWidth, _ := pdf.GetPageSize()
	printable := pageWidth - opts.Margins.Left - opts.Margins.Right
	var total float64
	for _, w := range widths {
		total += w
	}
	scale := printable / total
	for j := range widths {
		widths[j] *= scale
	}
	return widths
}

// truncate shortens a value that cannot fit its column.
func truncate(pdf *gofpdf.Fpdf, value string, width float64) string {
	if pdf.GetStringWidth(value) <= width-2 {
		return value
	}
	runes := []rune(value)
	for len(runes) > 3 && pdf.GetStringWidth(string(runes)+"...") > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func formatRows(rows [][]interface{}) [][]string {
	formatted := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, value := range row {
			switch v := value.(type) {
			case float64:
				cells[j] = fmt.Sprintf("%.2f", v)
			case string:
				cells[j] = v
			default:
				cells[j] = fmt.Sprintf("%v", v)
			}
		}
		formatted[i] = cells
	}
	return formatted
}
