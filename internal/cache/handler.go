package cache

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler exposes cache administration endpoints.
type Handler struct {
	layer  *Layer
	logger *zap.Logger
}

// NewHandler creates a new cache handler.
func NewHandler(layer *Layer, logger *zap.Logger) *Handler {
	return &Handler{layer: layer, logger: logger}
}

// RegisterRoutes registers cache routes on an organization-scoped group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.DELETE("/cache", h.Invalidate)
	router.GET("/cache/stats", h.Stats)
}

// Invalidate drops the organization's cached results. An optional type
// query limits invalidation to one result type.
func (h *Handler) Invalidate(c *gin.Context) {
	organizationID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	var resultType *ResultType
	if raw := c.Query("type"); raw != "" {
		t := ResultType(raw)
		valid := false
		for _, known := range AllResultTypes() {
			if t == known {
				valid = true
				break
			}
		}
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown cache type: " + raw})
			return
		}
		resultType = &t
	}

	removed, err := h.layer.Invalidate(c.Request.Context(), organizationID, resultType)
	if err != nil {
		h.logger.Error("Cache invalidation failed",
			zap.String("organization_id", organizationID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate cache"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Stats reports in-memory cache occupancy.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"memory_entries": h.layer.Entries()})
}
