package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/config"
)

// ProphetClient talks to the Python forecasting sidecar. The sidecar is
// optional; when no URL is configured every call reports disabled and
// the engine falls back to the in-process models.
type ProphetClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewProphetClient creates a client from forecast configuration.
func NewProphetClient(cfg config.ForecastConfig, logger *zap.Logger) *ProphetClient {
	return &ProphetClient{
		baseURL: cfg.ProphetURL,
		httpClient: &http.Client{
			Timeout: cfg.ProphetTimeout,
		},
		logger: logger,
	}
}

// Enabled reports whether a sidecar URL is configured.
func (c *ProphetClient) Enabled() bool {
	return c.baseURL != ""
}

// PredictDataPoint is one historical month sent to the sidecar.
type PredictDataPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// PredictRequest is the sidecar request body.
type PredictRequest struct {
	Domain           string             `json:"domain"`
	OrganizationID   string             `json:"organizationId"`
	HistoricalData   []PredictDataPoint `json:"historicalData"`
	MonthsToForecast int                `json:"monthsToForecast"`
}

// PredictForecastPoint is one forecast month returned by the sidecar.
type PredictForecastPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// PredictResponse is the sidecar response body.
type PredictResponse struct {
	Forecast   []PredictForecastPoint `json:"forecast"`
	Method     string                 `json:"method"`
	Confidence float64                `json:"confidence"`
}

// Predict requests a forecast from the sidecar.
func (c *ProphetClient) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("prophet sidecar is not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode predict request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build predict request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("prophet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prophet returned status %d: %s", resp.StatusCode, string(detail))
	}

	var predictResp PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&predictResp); err != nil {
		return nil, fmt.Errorf("failed to decode predict response: %w", err)
	}
	if len(predictResp.Forecast) == 0 {
		return nil, fmt.Errorf("prophet returned an empty forecast")
	}

	c.logger.Debug("Prophet forecast received",
		zap.String("domain", req.Domain),
		zap.Int("points", len(predictResp.Forecast)),
		zap.Duration("took", time.Since(start)))
	return &predictResp, nil
}
