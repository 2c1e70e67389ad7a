package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler exposes activity data and aggregations over HTTP.
type Handler struct {
	aggregator *Aggregator
	repository *Repository
	logger     *zap.Logger
}

// NewHandler creates a new metrics handler.
func NewHandler(aggregator *Aggregator, repository *Repository, logger *zap.Logger) *Handler {
	return &Handler{
		aggregator: aggregator,
		repository: repository,
		logger:     logger,
	}
}

// RegisterRoutes registers metrics routes on an organization-scoped group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/metrics/records", h.ListRecords)
	router.GET("/metrics/snapshot", h.GetSnapshot)
	router.GET("/domains/:domain/monthly", h.GetMonthlySeries)
	router.GET("/domains/:domain/breakdown", h.GetBreakdown)
}

type recordListResponse struct {
	Records  []ActivityRecord `json:"records"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// ListRecords returns a page of raw activity records.
func (h *Handler) ListRecords(c *gin.Context) {
	organizationID, ok := parseOrgID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	filter := RecordFilter{
		OrganizationID: organizationID,
		Limit:          pageSize,
		Offset:         (page - 1) * pageSize,
	}
	if siteParam := c.Query("site_id"); siteParam != "" {
		siteID, err := uuid.Parse(siteParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid site ID"})
			return
		}
		filter.SiteID = &siteID
	}
	if metricParam := c.Query("metric_id"); metricParam != "" {
		metricID, err := uuid.Parse(metricParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid metric ID"})
			return
		}
		filter.MetricIDs = []uuid.UUID{metricID}
	}
	if start, ok := parseDateQuery(c, "start"); ok {
		filter.PeriodStart = &start
	} else if c.Query("start") != "" {
		return
	}
	if end, ok := parseDateQuery(c, "end"); ok {
		filter.PeriodEnd = &end
	} else if c.Query("end") != "" {
		return
	}

	total, err := h.repository.Count(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to count records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list records"})
		return
	}

	records, err := h.repository.ListPage(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list records"})
		return
	}

	c.JSON(http.StatusOK, recordListResponse{
		Records:  records,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetSnapshot returns the totals of all reporting domains for a period.
func (h *Handler) GetSnapshot(c *gin.Context) {
	organizationID, ok := parseOrgID(c)
	if !ok {
		return
	}
	start, end, ok := parsePeriod(c)
	if !ok {
		return
	}

	snapshot, err := h.aggregator.SnapshotAll(c.Request.Context(), organizationID, start, end)
	if err != nil {
		h.logger.Error("Failed to build snapshot",
			zap.String("organization_id", organizationID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build snapshot"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetMonthlySeries returns the month-by-month series of one domain.
func (h *Handler) GetMonthlySeries(c *gin.Context) {
	organizationID, ok := parseOrgID(c)
	if !ok {
		return
	}
	domain, ok := parseDomain(c)
	if !ok {
		return
	}
	start, end, ok := parsePeriod(c)
	if !ok {
		return
	}

	series, err := h.aggregator.MonthlySeries(c.Request.Context(), organizationID, domain, start, end)
	if err != nil {
		h.logger.Error("Failed to build monthly series", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build monthly series"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"domain": domain,
		"unit":   domain.Unit(),
		"series": series,
	})
}

// GetBreakdown returns a category or site breakdown of one domain.
func (h *Handler) GetBreakdown(c *gin.Context) {
	organizationID, ok := parseOrgID(c)
	if !ok {
		return
	}
	domain, ok := parseDomain(c)
	if !ok {
		return
	}
	start, end, ok := parsePeriod(c)
	if !ok {
		return
	}

	by := c.DefaultQuery("by", "category")
	switch by {
	case "category":
		breakdown, err := h.aggregator.CategoryBreakdown(c.Request.Context(), organizationID, domain, start, end)
		if err != nil {
			h.logger.Error("Failed to build category breakdown", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build breakdown"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"domain": domain, "by": by, "breakdown": breakdown})
	case "site":
		breakdown, err := h.aggregator.SiteBreakdown(c.Request.Context(), organizationID, domain, start, end)
		if err != nil {
			h.logger.Error("Failed to build site breakdown", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build breakdown"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"domain": domain, "by": by, "breakdown": breakdown})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Breakdown must be by category or site"})
	}
}

// ===== Parameter helpers =====

func parseOrgID(c *gin.Context) (uuid.UUID, bool) {
	organizationID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return uuid.Nil, false
	}
	return organizationID, true
}

func parseDomain(c *gin.Context) (Domain, bool) {
	domain := Domain(c.Param("domain"))
	if !domain.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown domain: " + c.Param("domain")})
		return "", false
	}
	return domain, true
}

func parseDateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t.UTC(), true
}

// parsePeriod reads the start and end query dates, defaulting to the
// current calendar year.
func parsePeriod(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := now

	if c.Query("start") != "" {
		parsed, ok := parseDateQuery(c, "start")
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		start = parsed
	}
	if c.Query("end") != "" {
		parsed, ok := parseDateQuery(c, "end")
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		end = parsed
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date precedes start date"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
