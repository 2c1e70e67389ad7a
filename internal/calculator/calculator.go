package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/cache"
	"blipee/sustainability-engine/internal/forecast"
	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/targets"
)

// Aggregation supplies domain totals, normally the metrics aggregator.
type Aggregation interface {
	PeriodTotal(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, start, end time.Time) (metrics.DomainTotal, error)
}

// TargetSource supplies the active target, normally the target repository.
type TargetSource interface {
	GetActive(ctx context.Context, organizationID uuid.UUID, domain string) (*targets.Target, error)
}

// Forecaster projects future months, normally the forecast engine.
type Forecaster interface {
	Forecast(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, horizon int) (*forecast.Result, error)
}

// ResultCache is the cache layer surface the calculator uses.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (cache.Meta, bool)
	SetJSON(ctx context.Context, organizationID uuid.UUID, resultType cache.ResultType, key string, value interface{})
}

// Calculator answers the five core questions per organization and
// domain: baseline, target, actual, projected and progress.
type Calculator struct {
	aggregator Aggregation
	targets    TargetSource
	forecaster Forecaster
	cache      ResultCache
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a calculator.
func New(aggregator Aggregation, targetSource TargetSource, forecaster Forecaster, resultCache ResultCache, logger *zap.Logger) *Calculator {
	return &Calculator{
		aggregator: aggregator,
		targets:    targetSource,
		forecaster: forecaster,
		cache:      resultCache,
		logger:     logger,
		now:        time.Now,
	}
}

// ===== Baseline =====

// Baseline aggregates a domain over a reference year. A non-positive
// year resolves to the active target's baseline year, or the previous
// calendar year when no target exists. Results are cached.
func (c *Calculator) Baseline(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, year int) (*BaselineResult, error) {
	if year <= 0 {
		year = c.resolveBaselineYear(ctx, organizationID, domain)
	}

	key := cache.Key(cache.ResultTypeBaseline, organizationID, string(domain), strconv.Itoa(year))
	var cached BaselineResult
	if _, ok := c.cache.GetJSON(ctx, key, &cached); ok {
		return &cached, nil
	}

	total, err := c.aggregator.PeriodTotal(ctx, organizationID, domain, startOfYear(year), endOfYear(year))
	if err != nil {
		return nil, fmt.Errorf("failed to compute baseline: %w", err)
	}

	result := &BaselineResult{
		OrganizationID: organizationID,
		Domain:         domain,
		Year:           year,
		Value:          total.Total,
		Unit:           total.Unit,
		ScopeTotals:    total.ScopeTotals,
		RecordCount:    total.RecordCount,
		ComputedAt:     c.now().UTC(),
	}
	c.cache.SetJSON(ctx, organizationID, cache.ResultTypeBaseline, key, result)
	return result, nil
}

func (c *Calculator) resolveBaselineYear(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain) int {
	if target, err := c.targets.GetActive(ctx, organizationID, string(domain)); err == nil {
		return target.BaselineYear
	}
	return c.now().UTC().Year() - 1
}

// ===== Target =====

// TargetForYear interpolates the active target's value for a year along
// its linear reduction path. A non-positive year means the current one.
func (c *Calculator) TargetForYear(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, year int) (*TargetResult, error) {
	if year <= 0 {
		year = c.now().UTC().Year()
	}

	target, err := c.targets.GetActive(ctx, organizationID, string(domain))
	if err != nil {
		return nil, err
	}

	value, cumulative := targetValueForYear(target, year)
	return &TargetResult{
		OrganizationID:             organizationID,
		Domain:                     domain,
		TargetID:                   target.ID,
		Year:                       year,
		Value:                      round1(value),
		Unit:                       domain.Unit(),
		BaselineYear:               target.BaselineYear,
		BaselineValue:              target.BaselineValue,
		TargetYear:                 target.TargetYear,
		FinalTargetValue:           target.TargetValue,
		ReductionPercentAnnual:     round2(target.AnnualReductionPercent()),
		ReductionPercentCumulative: round2(cumulative),
	}, nil
}

// targetValueForYear walks the linear path: the total reduction spread
// evenly over the years between baseline and target year. Years at or
// before the baseline return the baseline; years at or past the target
// year return the final target.
func targetValueForYear(target *targets.Target, year int) (value, cumulativePercent float64) {
	switch {
	case year <= target.BaselineYear:
		return target.BaselineValue, 0
	case year >= target.TargetYear:
		return target.TargetValue, target.TotalReductionPercent
	default:
		cumulative := target.AnnualReductionPercent() * float64(year-target.BaselineYear)
		return target.BaselineValue * (1 - cumulative/100), cumulative
	}
}

// ===== Actual =====

// Actual aggregates the current year to date. Never cached; actuals
// must reflect the store immediately.
func (c *Calculator) Actual(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain) (*ActualResult, error) {
	now := c.now().UTC()
	year := now.Year()

	total, err := c.aggregator.PeriodTotal(ctx, organizationID, domain, startOfYear(year), now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute actual: %w", err)
	}

	return &ActualResult{
		OrganizationID: organizationID,
		Domain:         domain,
		Year:           year,
		Value:          total.Total,
		Unit:           total.Unit,
		ScopeTotals:    total.ScopeTotals,
		MonthsElapsed:  int(now.Month()),
		RecordCount:    total.RecordCount,
		ComputedAt:     now,
	}, nil
}

// ===== Projected =====

// Projected estimates the current year's final figure. Sources are
// tried in order: the cache, the applied replan trajectory (emissions
// only), the forecast engine, and a linear annualization of the actual
// when history is too short to model.
func (c *Calculator) Projected(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain) (*ProjectedResult, error) {
	now := c.now().UTC()
	year := now.Year()

	key := cache.Key(cache.ResultTypeForecast, organizationID, string(domain), "projected", strconv.Itoa(year))
	var cached ProjectedResult
	if meta, ok := c.cache.GetJSON(ctx, key, &cached); ok {
		cached.Method = MethodCached
		cached.ComputedAt = meta.ComputedAt
		return &cached, nil
	}

	actual, err := c.Actual(ctx, organizationID, domain)
	if err != nil {
		return nil, err
	}

	result := &ProjectedResult{
		OrganizationID:  organizationID,
		Domain:          domain,
		Year:            year,
		Unit:            domain.Unit(),
		ActualYTD:       actual.Value,
		RemainingMonths: 12 - actual.MonthsElapsed,
		ComputedAt:      now,
	}

	if result.RemainingMonths == 0 {
		result.Value = actual.Value
		result.Method = string(forecast.MethodLinear)
		c.cache.SetJSON(ctx, organizationID, cache.ResultTypeForecast, key, result)
		return result, nil
	}

	if months, ok := c.trajectoryMonths(ctx, organizationID, domain, now, result.RemainingMonths); ok {
		result.Method = MethodReplanTrajectory
		result.Months = months
		for _, m := range months {
			result.ForecastValue += m.Value
		}
	} else if err := c.forecastRemainder(ctx, organizationID, domain, actual, result); err != nil {
		return nil, err
	}

	result.ForecastValue = round1(result.ForecastValue)
	result.Value = round1(actual.Value + result.ForecastValue)
	c.cache.SetJSON(ctx, organizationID, cache.ResultTypeForecast, key, result)
	return result, nil
}

// trajectoryMonths returns the replanned expected values for the rest
// of the year when the active target carries a trajectory covering
// every remaining month.
func (c *Calculator) trajectoryMonths(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, now time.Time, remaining int) ([]metrics.MonthlyPoint, bool) {
	if domain != metrics.DomainEmissions {
		return nil, false
	}
	target, err := c.targets.GetActive(ctx, organizationID, string(domain))
	if err != nil {
		return nil, false
	}
	meta, err := target.ParseMetadata()
	if err != nil || len(meta.Trajectory) == 0 {
		return nil, false
	}

	byMonth := make(map[string]float64, len(meta.Trajectory))
	for _, point := range meta.Trajectory {
		byMonth[point.Month] = point.Value
	}

	months := make([]metrics.MonthlyPoint, 0, remaining)
	cursor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= remaining; i++ {
		month := cursor.AddDate(0, i, 0)
		value, ok := byMonth[month.Format("2006-01")]
		if !ok {
			return nil, false
		}
		months = append(months, metrics.MonthlyPoint{Month: month, Value: value})
	}
	return months, true
}

// forecastRemainder fills the projection from the forecast engine, or
// annualizes the actual when history is too short.
func (c *Calculator) forecastRemainder(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, actual *ActualResult, result *ProjectedResult) error {
	forecastResult, err := c.forecaster.Forecast(ctx, organizationID, domain, result.RemainingMonths)
	if err != nil {
		if !errors.Is(err, forecast.ErrInsufficientHistory) {
			return fmt.Errorf("failed to forecast remainder: %w", err)
		}

		c.logger.Info("History too short to model, annualizing actual",
			zap.String("organization_id", organizationID.String()),
			zap.String("domain", string(domain)))
		perMonth := 0.0
		if actual.MonthsElapsed > 0 {
			perMonth = actual.Value / float64(actual.MonthsElapsed)
		}
		result.Method = string(forecast.MethodLinear)
		cursor := time.Date(actual.Year, time.Month(actual.MonthsElapsed), 1, 0, 0, 0, 0, time.UTC)
		for i := 1; i <= result.RemainingMonths; i++ {
			result.ForecastValue += perMonth
			result.Months = append(result.Months, metrics.MonthlyPoint{
				Month: cursor.AddDate(0, i, 0),
				Value: round1(perMonth),
			})
		}
		return nil
	}

	result.Method = string(forecastResult.Method)
	for _, point := range forecastResult.Points {
		result.ForecastValue += point.Value
		result.Months = append(result.Months, metrics.MonthlyPoint{Month: point.Month, Value: round1(point.Value)})
	}
	return nil
}

// ===== Progress =====

// Progress compares the projection against the current year's target
// figure and classifies the organization's standing.
func (c *Calculator) Progress(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain) (*ProgressResult, error) {
	now := c.now().UTC()
	year := now.Year()

	target, err := c.TargetForYear(ctx, organizationID, domain, year)
	if err != nil {
		return nil, err
	}
	projected, err := c.Projected(ctx, organizationID, domain)
	if err != nil {
		return nil, err
	}

	result := &ProgressResult{
		OrganizationID:    organizationID,
		Domain:            domain,
		Year:              year,
		BaselineValue:     target.BaselineValue,
		TargetValue:       target.Value,
		ActualYTD:         projected.ActualYTD,
		ProjectedValue:    projected.Value,
		ProjectionMethod:  projected.Method,
		ReductionNeeded:   round1(target.Value - target.BaselineValue),
		ReductionAchieved: round1(projected.Value - target.BaselineValue),
		GapToTarget:       round1(projected.Value - target.Value),
		ComputedAt:        now,
	}

	switch {
	case projected.Value > target.BaselineValue:
		result.Status = StatusExceededBaseline
	case projected.Value <= target.Value:
		result.Status = StatusOnTrack
	case projected.Value <= target.Value*atRiskTolerance:
		result.Status = StatusAtRisk
	default:
		result.Status = StatusOffTrack
	}

	if target.BaselineValue > 0 {
		result.ReductionAchievedPercent = round2((target.BaselineValue - projected.Value) / target.BaselineValue * 100)
	}
	requiredReduction := target.BaselineValue - target.Value
	if requiredReduction > 0 {
		progress := (target.BaselineValue - projected.Value) / requiredReduction * 100
		result.ProgressPercent = round2(math.Max(0, progress))
	} else if projected.Value <= target.Value {
		result.ProgressPercent = 100
	}

	return result, nil
}

// ===== Helpers =====

func startOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func endOfYear(year int) time.Time {
	return time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
