package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/targets"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
	contentTypeCSV  = "text/csv"
)

// Handler exposes report downloads over HTTP.
type Handler struct {
	builder *Builder
	plans   *PlanBuilder
	excel   *ExcelExporter
	pdf     *PDFExporter
	csv     *CSVExporter
	logger  *zap.Logger
}

// NewHandler creates an export handler with the default exporters.
func NewHandler(builder *Builder, plans *PlanBuilder, logger *zap.Logger) *Handler {
	return &Handler{
		builder: builder,
		plans:   plans,
		excel:   NewExcelExporter(DefaultExcelOptions()),
		pdf:     NewPDFExporter(DefaultPDFOptions()),
		csv:     NewCSVExporter(DefaultCSVOptions()),
		logger:  logger,
	}
}

// RegisterRoutes registers report routes on an organization-scoped
// group and the plan download on the API root group.
func (h *Handler) RegisterRoutes(orgs *gin.RouterGroup, root *gin.RouterGroup) {
	orgs.GET("/domains/:domain/report", h.DownloadReport)
	root.GET("/targets/:targetId/plan", h.DownloadPlan)
}

// DownloadReport renders the annual report for a domain and streams it
// as an attachment. Query parameters: year (default current) and
// format, one of xlsx, pdf or csv (default xlsx).
func (h *Handler) DownloadReport(c *gin.Context) {
	organizationID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}
	domain := metrics.Domain(c.Param("domain"))
	if !domain.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown domain: " + c.Param("domain")})
		return
	}

	year := 0
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
			return
		}
		year = parsed
	}

	format := c.DefaultQuery("format", "xlsx")
	if format != "xlsx" && format != "pdf" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown format: " + format})
		return
	}

	report, err := h.builder.Annual(c.Request.Context(), organizationID, domain, year)
	if err != nil {
		h.logger.Error("Failed to build report",
			zap.String("organization_id", organizationID.String()),
			zap.String("domain", string(domain)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	var buf bytes.Buffer
	contentType := contentTypeXLSX
	switch format {
	case "xlsx":
		err = h.excel.Write(report, &buf)
	case "pdf":
		contentType = contentTypePDF
		err = h.pdf.Write(report, &buf)
	case "csv":
		contentType = contentTypeCSV
		err = h.csv.Write(report, &buf)
	}
	if err != nil {
		h.logger.Error("Failed to render report",
			zap.String("format", format),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(format)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// DownloadPlan renders a target's reduction plan workbook, covering the
// replanned trajectory, allocations, initiatives and audit trail.
func (h *Handler) DownloadPlan(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("targetId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target ID"})
		return
	}

	plan, err := h.plans.Plan(c.Request.Context(), targetID)
	if err != nil {
		if errors.Is(err, targets.ErrTargetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Target not found"})
			return
		}
		h.logger.Error("Failed to build plan export",
			zap.String("target_id", targetID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build plan export"})
		return
	}

	var buf bytes.Buffer
	if err := h.excel.WritePlan(plan, &buf); err != nil {
		h.logger.Error("Failed to render plan export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render plan export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", plan.Filename()))
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}
