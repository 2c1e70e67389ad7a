package replanning

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/targets"
)

// Handler exposes replanning over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new replanning handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers replanning routes on the API root group.
func (h *Handler) RegisterRoutes(root *gin.RouterGroup) {
	root.POST("/targets/:targetId/replan", h.Replan)
	root.GET("/replanning/strategies", h.ListStrategies)
}

// Replan computes a reduction plan for a target and applies it unless
// the request asks for a dry run.
func (h *Handler) Replan(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("targetId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target ID"})
		return
	}

	var req ReplanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Replan(c.Request.Context(), targetID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidReplan):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, targets.ErrTargetNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Target not found"})
		case errors.Is(err, ErrNoActivity):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Replan failed",
				zap.String("target_id", targetID.String()),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replan target"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListStrategies describes the available allocation strategies.
func (h *Handler) ListStrategies(c *gin.Context) {
	type strategyInfo struct {
		Name        Strategy `json:"name"`
		Description string   `json:"description"`
	}
	c.JSON(http.StatusOK, gin.H{"strategies": []strategyInfo{
		{Name: StrategyEqual, Description: "Same percentage cut on every metric"},
		{Name: StrategyCostOptimized, Description: "Cheapest reductions first, capped per metric"},
		{Name: StrategyQuickWins, Description: "Fastest reductions first, capped per metric"},
		{Name: StrategyCustom, Description: "Caller supplied percentages per metric"},
		{Name: StrategyAIRecommended, Description: "External optimizer recommendation with cost optimized fallback"},
	}})
}
