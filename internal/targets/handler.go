package targets

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler exposes target management over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new target handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers target routes on an organization-scoped
// group and pathway routes on the API root group.
func (h *Handler) RegisterRoutes(orgs *gin.RouterGroup, root *gin.RouterGroup) {
	orgs.POST("/targets", h.CreateTarget)
	orgs.GET("/targets", h.ListTargets)
	root.GET("/targets/:targetId", h.GetTarget)
	root.GET("/targets/:targetId/history", h.GetHistory)
	root.GET("/targets/:targetId/allocations", h.GetAllocations)
	root.GET("/pathways/:scenario", h.GetPathway)
}

// CreateTarget creates a reduction target for an organization.
func (h *Handler) CreateTarget(c *gin.Context) {
	organizationID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	var req CreateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.OrganizationID = organizationID

	target, err := h.service.CreateTarget(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidTarget) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create target", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create target"})
		return
	}
	c.JSON(http.StatusCreated, target)
}

// ListTargets lists an organization's targets with optional status,
// domain and type filters.
func (h *Handler) ListTargets(c *gin.Context) {
	organizationID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	filter := TargetFilter{OrganizationID: organizationID}
	if status := c.Query("status"); status != "" {
		s := TargetStatus(status)
		filter.Status = &s
	}
	if domain := c.Query("domain"); domain != "" {
		filter.Domain = &domain
	}
	if targetType := c.Query("type"); targetType != "" {
		t := TargetType(targetType)
		filter.TargetType = &t
	}

	targets, err := h.service.ListTargets(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list targets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list targets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"targets": targets, "total": len(targets)})
}

// GetTarget returns one target.
func (h *Handler) GetTarget(c *gin.Context) {
	targetID, ok := h.parseTargetID(c)
	if !ok {
		return
	}

	target, err := h.service.GetTarget(c.Request.Context(), targetID)
	if err != nil {
		h.respondTargetError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

// GetHistory returns the replanning history of a target.
func (h *Handler) GetHistory(c *gin.Context) {
	targetID, ok := h.parseTargetID(c)
	if !ok {
		return
	}

	history, err := h.service.GetHistory(c.Request.Context(), targetID)
	if err != nil {
		h.respondTargetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "total": len(history)})
}

// GetAllocations returns the current metric allocations of a target.
func (h *Handler) GetAllocations(c *gin.Context) {
	targetID, ok := h.parseTargetID(c)
	if !ok {
		return
	}

	allocations, err := h.service.GetAllocations(c.Request.Context(), targetID)
	if err != nil {
		h.respondTargetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocations, "total": len(allocations)})
}

// GetPathway returns the remaining-emissions curve of a scenario
// between two years, yearly.
func (h *Handler) GetPathway(c *gin.Context) {
	scenario := Scenario(c.Param("scenario"))

	fromYear, _ := strconv.Atoi(c.DefaultQuery("from", "2020"))
	toYear, _ := strconv.Atoi(c.DefaultQuery("to", "2050"))
	if toYear < fromYear {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year range"})
		return
	}

	type yearValue struct {
		Year      int     `json:"year"`
		Remaining float64 `json:"remaining"`
	}
	curve := []yearValue{}
	for year := fromYear; year <= toYear; year++ {
		remaining, err := h.service.Pathways().Remaining(scenario, sectorCrossSector, year)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		curve = append(curve, yearValue{Year: year, Remaining: remaining})
	}
	c.JSON(http.StatusOK, gin.H{"scenario": scenario, "curve": curve})
}

func (h *Handler) parseTargetID(c *gin.Context) (uuid.UUID, bool) {
	targetID, err := uuid.Parse(c.Param("targetId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target ID"})
		return uuid.Nil, false
	}
	return targetID, true
}

func (h *Handler) respondTargetError(c *gin.Context, err error) {
	if errors.Is(err, ErrTargetNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target not found"})
		return
	}
	h.logger.Error("Target request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
