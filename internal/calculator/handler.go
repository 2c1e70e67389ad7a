package calculator

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/forecast"
	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/targets"
)

// Handler exposes the calculator over HTTP.
type Handler struct {
	calculator *Calculator
	logger     *zap.Logger
}

// NewHandler creates a new calculator handler.
func NewHandler(calculator *Calculator, logger *zap.Logger) *Handler {
	return &Handler{calculator: calculator, logger: logger}
}

// RegisterRoutes registers calculator routes on an organization-scoped
// group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/domains/:domain/baseline", h.GetBaseline)
	router.GET("/domains/:domain/target", h.GetTarget)
	router.GET("/domains/:domain/actual", h.GetActual)
	router.GET("/domains/:domain/projected", h.GetProjected)
	router.GET("/domains/:domain/progress", h.GetProgress)
	router.GET("/domains/:domain/forecast", h.GetForecast)
}

// GetBaseline returns the aggregated baseline year figure.
func (h *Handler) GetBaseline(c *gin.Context) {
	organizationID, domain, ok := h.parseScope(c)
	if !ok {
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

	result, err := h.calculator.Baseline(c.Request.Context(), organizationID, domain, year)
	if err != nil {
		h.respondError(c, err, "Failed to compute baseline")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTarget returns the target figure interpolated for a year.
func (h *Handler) GetTarget(c *gin.Context) {
	organizationID, domain, ok := h.parseScope(c)
	if !ok {
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

	result, err := h.calculator.TargetForYear(c.Request.Context(), organizationID, domain, year)
	if err != nil {
		h.respondError(c, err, "Failed to compute target")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetActual returns the year-to-date figure.
func (h *Handler) GetActual(c *gin.Context) {
	organizationID, domain, ok := h.parseScope(c)
	if !ok {
		return
	}

	result, err := h.calculator.Actual(c.Request.Context(), organizationID, domain)
	if err != nil {
		h.respondError(c, err, "Failed to compute actual")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProjected returns the estimated end-of-year figure.
func (h *Handler) GetProjected(c *gin.Context) {
	organizationID, domain, ok := h.parseScope(c)
	if !ok {
		return
	}

	result, err := h.calculator.Projected(c.Request.Context(), organizationID, domain)
	if err != nil {
		h.respondError(c, err, "Failed to compute projection")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProgress returns the standing against the current year target.
func (h *Handler) GetProgress(c *gin.Context) {
	organizationID, domain, ok := h.parseScope(c)
	if !ok {
		return
	}

	result, err := h.calculator.Progress(c.Request.Context(), organizationID, domain)
	if err != nil {
		h.respondError(c, err, "Failed to compute progress")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetForecast returns the raw forecast for the requested horizon.
func (h *Handler) GetForecast(c *gin.Context) {
	organizationID, domain, ok := h.parseScope(c)
	if !ok {
		return
	}

	months, _ := strconv.Atoi(c.DefaultQuery("months", "12"))
	result, err := h.calculator.forecaster.Forecast(c.Request.Context(), organizationID, domain, months)
	if err != nil {
		h.respondError(c, err, "Failed to forecast")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) parseScope(c *gin.Context) (uuid.UUID, metrics.Domain, bool) {
	organizationID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return uuid.Nil, "", false
	}
	domain := metrics.Domain(c.Param("domain"))
	if !domain.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown domain: " + c.Param("domain")})
		return uuid.Nil, "", false
	}
	return organizationID, domain, true
}

func (h *Handler) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, targets.ErrTargetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No active target for this domain"})
	case errors.Is(err, forecast.ErrInsufficientHistory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
