package replanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/config"
)

// OptimizerClient talks to the external allocation optimizer backing
// the ai_recommended strategy. Like the forecasting sidecar it is
// optional; without a URL the strategy degrades along its resolution
// order.
type OptimizerClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOptimizerClient creates a client from replanning configuration.
func NewOptimizerClient(cfg config.ReplanningConfig, logger *zap.Logger) *OptimizerClient {
	return &OptimizerClient{
		baseURL: cfg.OptimizerURL,
		httpClient: &http.Client{
			Timeout: cfg.OptimizerTimeout,
		},
		logger: logger,
	}
}

// Enabled reports whether an optimizer URL is configured.
func (c *OptimizerClient) Enabled() bool {
	return c.baseURL != ""
}

// OptimizeMetric is one metric offered to the optimizer.
type OptimizeMetric struct {
	ID                   string  `json:"id"`
	Category             string  `json:"category"`
	AnnualEmissions      float64 `json:"annualEmissions"`
	CostPerTonne         float64 `json:"costPerTonne"`
	ImplementationMonths int     `json:"implementationMonths"`
}

// OptimizeRequest is the optimizer request body.
type OptimizeRequest struct {
	OrganizationID          string           `json:"organizationId"`
	RequiredReductionTonnes float64          `json:"requiredReductionTonnes"`
	Metrics                 []OptimizeMetric `json:"metrics"`
}

// OptimizeAllocation is one recommended metric share.
type OptimizeAllocation struct {
	MetricID         string  `json:"metricId"`
	ReductionPercent float64 `json:"reductionPercent"`
}

// OptimizeResponse is the optimizer response body.
type OptimizeResponse struct {
	Allocations []OptimizeAllocation `json:"allocations"`
	Model       string               `json:"model"`
}

// Optimize requests a recommended allocation.
func (c *OptimizerClient) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResponse, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("optimizer is not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode optimize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/optimize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build optimize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("optimizer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("optimizer returned status %d: %s", resp.StatusCode, string(detail))
	}

	var optimizeResp OptimizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&optimizeResp); err != nil {
		return nil, fmt.Errorf("failed to decode optimize response: %w", err)
	}
	if len(optimizeResp.Allocations) == 0 {
		return nil, fmt.Errorf("optimizer returned no allocations")
	}

	c.logger.Debug("Optimizer recommendation received",
		zap.Int("allocations", len(optimizeResp.Allocations)),
		zap.String("model", optimizeResp.Model))
	return &optimizeResp, nil
}
