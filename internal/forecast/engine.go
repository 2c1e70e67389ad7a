package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/config"
	"blipee/sustainability-engine/internal/metrics"
)

// SeriesSource supplies monthly history, normally the metrics aggregator.
type SeriesSource interface {
	MonthlySeries(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, start, end time.Time) ([]metrics.MonthlyPoint, error)
	EnergyMixSeries(ctx context.Context, organizationID uuid.UUID, start, end time.Time) (renewable, fossil []metrics.MonthlyPoint, err error)
}

// Engine produces forecasts with a fixed model ladder: the Prophet
// sidecar when configured and healthy, then in-process Holt-Winters,
// then a linear fit for short histories. Below twelve months of history
// it refuses to forecast at all.
type Engine struct {
	source  SeriesSource
	prophet *ProphetClient
	cfg     config.ForecastConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates a forecast engine.
func NewEngine(source SeriesSource, prophet *ProphetClient, cfg config.ForecastConfig, logger *zap.Logger) *Engine {
	return &Engine{
		source:  source,
		prophet: prophet,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Forecast projects a domain horizon months ahead from the lookback
// window of history.
func (e *Engine) Forecast(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, horizon int) (*Result, error) {
	if !domain.Valid() {
		return nil, fmt.Errorf("unknown domain: %s", domain)
	}
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}
	if horizon > MaxHorizonMonths {
		horizon = MaxHorizonMonths
	}

	now := e.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(-e.cfg.LookbackYears, 0, 0)

	history, err := e.source.MonthlySeries(ctx, organizationID, domain, start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load forecast history: %w", err)
	}
	if len(history) < MinHistoryMonths {
		return nil, fmt.Errorf("%w, have %d", ErrInsufficientHistory, len(history))
	}

	values := make([]float64, len(history))
	for i, point := range history {
		values[i] = point.Value
	}
	lastMonth := history[len(history)-1].Month

	result := &Result{
		OrganizationID: organizationID,
		Domain:         domain,
		HistoryMonths:  len(history),
		GeneratedAt:    now,
	}

	if e.prophet.Enabled() {
		points, err := e.forecastWithProphet(ctx, organizationID, domain, history, lastMonth, horizon)
		if err != nil {
			e.logger.Warn("Prophet sidecar unavailable, using in-process model",
				zap.String("organization_id", organizationID.String()),
				zap.String("domain", string(domain)),
				zap.Error(err))
		} else {
			result.Method = MethodProphet
			result.Points = points
		}
	}

	if result.Points == nil && len(values) >= holtWintersMinimum {
		forecast, lower, upper, err := holtWinters(values, horizon)
		if err == nil {
			result.Method = MethodHoltWinters
			result.Points = stampMonths(lastMonth, forecast, lower, upper)
		} else {
			e.logger.Warn("Holt-Winters failed, using linear fit", zap.Error(err))
		}
	}

	if result.Points == nil {
		forecast, lower, upper := linearForecast(values, horizon)
		result.Method = MethodLinear
		result.Points = stampMonths(lastMonth, forecast, lower, upper)
	}

	if domain == metrics.DomainEnergy {
		result.EnergyMix = e.energyMix(ctx, organizationID, result.Method, lastMonth, horizon, start, now)
	}
	return result, nil
}

// energyMix projects the renewable and fossil components of the energy
// domain with the method picked for the total. A failing mix is logged
// and omitted rather than failing the whole forecast.
func (e *Engine) energyMix(ctx context.Context, organizationID uuid.UUID, method Method, lastMonth time.Time, horizon int, start, end time.Time) *EnergyMix {
	renewable, fossil, err := e.source.EnergyMixSeries(ctx, organizationID, start, end)
	if err != nil {
		e.logger.Warn("Energy mix history unavailable",
			zap.String("organization_id", organizationID.String()),
			zap.Error(err))
		return nil
	}
	if len(renewable) == 0 && len(fossil) == 0 {
		return nil
	}

	mix := &EnergyMix{
		Renewable: e.forecastComponent(ctx, organizationID, method, renewable, lastMonth, horizon),
		Fossil:    e.forecastComponent(ctx, organizationID, method, fossil, lastMonth, horizon),
	}

	renewableTotal := sumPoints(mix.Renewable)
	combined := renewableTotal + sumPoints(mix.Fossil)
	if combined > 0 {
		mix.RenewableShare = math.Round(renewableTotal/combined*1000) / 10
	}
	return mix
}

// forecastComponent runs one component series through the method the
// total used, degrading down the ladder when the component cannot
// support it. A component with no history projects flat zero.
func (e *Engine) forecastComponent(ctx context.Context, organizationID uuid.UUID, method Method, history []metrics.MonthlyPoint, lastMonth time.Time, horizon int) []Point {
	if len(history) == 0 {
		return stampMonths(lastMonth, make([]float64, horizon), make([]float64, horizon), make([]float64, horizon))
	}

	if method == MethodProphet {
		points, err := e.forecastWithProphet(ctx, organizationID, metrics.DomainEnergy, history, lastMonth, horizon)
		if err == nil {
			return points
		}
		e.logger.Warn("Prophet unavailable for energy component", zap.Error(err))
	}

	values := make([]float64, len(history))
	for i, point := range history {
		values[i] = point.Value
	}

	if method != MethodLinear && len(values) >= holtWintersMinimum {
		forecast, lower, upper, err := holtWinters(values, horizon)
		if err == nil {
			return stampMonths(lastMonth, forecast, lower, upper)
		}
	}

	forecast, lower, upper := linearForecast(values, horizon)
	return stampMonths(lastMonth, forecast, lower, upper)
}

func sumPoints(points []Point) float64 {
	total := 0.0
	for _, p := range points {
		total += p.Value
	}
	return total
}

func (e *Engine) forecastWithProphet(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, history []metrics.MonthlyPoint, lastMonth time.Time, horizon int) ([]Point, error) {
	req := PredictRequest{
		Domain:           string(domain),
		OrganizationID:   organizationID.String(),
		MonthsToForecast: horizon,
		HistoricalData:   make([]PredictDataPoint, len(history)),
	}
	for i, point := range history {
		req.HistoricalData[i] = PredictDataPoint{
			Date:  point.Month.Format("2006-01"),
			Value: point.Value,
		}
	}

	resp, err := e.prophet.Predict(ctx, req)
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, horizon)
	for i, fp := range resp.Forecast {
		if i >= horizon {
			break
		}
		month, err := time.Parse("2006-01", fp.Date)
		if err != nil {
			month = lastMonth.AddDate(0, i+1, 0)
		}
		points = append(points, Point{
			Month: month,
			Value: clampNonNegative(fp.Value),
			Lower: clampNonNegative(fp.Lower),
			Upper: clampNonNegative(fp.Upper),
		})
	}
	return points, nil
}

func stampMonths(lastMonth time.Time, forecast, lower, upper []float64) []Point {
	points := make([]Point, len(forecast))
	for i := range forecast {
		points[i] = Point{
			Month: lastMonth.AddDate(0, i+1, 0),
			Value: forecast[i],
			Lower: lower[i],
			Upper: upper[i],
		}
	}
	return points
}
