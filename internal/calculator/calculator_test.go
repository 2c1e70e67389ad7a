package calculator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/cache"
	"blipee/sustainability-engine/internal/forecast"
	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/targets"
)

type mockAggregation struct {
	mock.Mock
}

func (m *mockAggregation) PeriodTotal(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, start, end time.Time) (metrics.DomainTotal, error) {
	args := m.Called(ctx, organizationID, domain, start, end)
	return args.Get(0).(metrics.DomainTotal), args.Error(1)
}

type mockTargetSource struct {
	mock.Mock
}

func (m *mockTargetSource) GetActive(ctx context.Context, organizationID uuid.UUID, domain string) (*targets.Target, error) {
	args := m.Called(ctx, organizationID, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*targets.Target), args.Error(1)
}

type mockForecaster struct {
	mock.Mock
}

func (m *mockForecaster) Forecast(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, horizon int) (*forecast.Result, error) {
	args := m.Called(ctx, organizationID, domain, horizon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*forecast.Result), args.Error(1)
}

type fakeCache struct {
	store map[string][]byte
	meta  map[string]cache.Meta
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}, meta: map[string]cache.Meta{}}
}

func (f *fakeCache) GetJSON(ctx context.Context, key string, dest interface{}) (cache.Meta, bool) {
	raw, ok := f.store[key]
	if !ok {
		return cache.Meta{}, false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return cache.Meta{}, false
	}
	return f.meta[key], true
}

func (f *fakeCache) SetJSON(ctx context.Context, organizationID uuid.UUID, resultType cache.ResultType, key string, value interface{}) {
	raw, _ := json.Marshal(value)
	f.store[key] = raw
	f.meta[key] = cache.Meta{Source: "store", ComputedAt: time.Now().UTC()}
}

type calcFixture struct {
	calc       *Calculator
	aggregator *mockAggregation
	targets    *mockTargetSource
	forecaster *mockForecaster
	cache      *fakeCache
}

func newFixture(now time.Time) *calcFixture {
	f := &calcFixture{
		aggregator: new(mockAggregation),
		targets:    new(mockTargetSource),
		forecaster: new(mockForecaster),
		cache:      newFakeCache(),
	}
	f.calc = New(f.aggregator, f.targets, f.forecaster, f.cache, zap.NewNop())
	f.calc.now = func() time.Time { return now }
	return f
}

func activeTarget() *targets.Target {
	return &targets.Target{
		ID:                    uuid.New(),
		BaselineYear:          2024,
		BaselineValue:         1000,
		TargetYear:            2030,
		TargetValue:           700,
		TotalReductionPercent: 30,
		Status:                targets.TargetStatusActive,
		Domain:                "emissions",
	}
}

func forecastPoints(method forecast.Method, start time.Time, values ...float64) *forecast.Result {
	result := &forecast.Result{Method: method}
	for i, v := range values {
		result.Points = append(result.Points, forecast.Point{Month: start.AddDate(0, i, 0), Value: v})
	}
	return result
}

var june2026 = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func TestTargetForYearLinearPath(t *testing.T) {
	f := newFixture(june2026)
	f.targets.On("GetActive", mock.Anything, mock.Anything, "emissions").Return(activeTarget(), nil)

	orgID := uuid.New()

	// 30% over six years is 5% a year; two years in means 10% off the
	// baseline.
	result, err := f.calc.TargetForYear(context.Background(), orgID, metrics.DomainEmissions, 2026)
	assert.NoError(t, err)
	assert.Equal(t, 900.0, result.Value)
	assert.Equal(t, 5.0, result.ReductionPercentAnnual)
	assert.Equal(t, 10.0, result.ReductionPercentCumulative)

	atBaseline, err := f.calc.TargetForYear(context.Background(), orgID, metrics.DomainEmissions, 2024)
	assert.NoError(t, err)
	assert.Equal(t, 1000.0, atBaseline.Value)

	pastTarget, err := f.calc.TargetForYear(context.Background(), orgID, metrics.DomainEmissions, 2035)
	assert.NoError(t, err)
	assert.Equal(t, 700.0, pastTarget.Value)
	assert.Equal(t, 30.0, pastTarget.ReductionPercentCumulative)
}

func TestTargetForYearWithoutActiveTarget(t *testing.T) {
	f := newFixture(june2026)
	f.targets.On("GetActive", mock.Anything, mock.Anything, mock.Anything).Return(nil, targets.ErrTargetNotFound)

	_, err := f.calc.TargetForYear(context.Background(), uuid.New(), metrics.DomainEmissions, 2026)
	assert.ErrorIs(t, err, targets.ErrTargetNotFound)
}

func TestBaselineComputedOnceThenCached(t *testing.T) {
	f := newFixture(june2026)
	orgID := uuid.New()

	f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
		Return(metrics.DomainTotal{Total: 1000, Unit: "tCO2e", RecordCount: 48}, nil).Once()

	first, err := f.calc.Baseline(context.Background(), orgID, metrics.DomainEmissions, 2024)
	assert.NoError(t, err)
	assert.Equal(t, 1000.0, first.Value)

	second, err := f.calc.Baseline(context.Background(), orgID, metrics.DomainEmissions, 2024)
	assert.NoError(t, err)
	assert.Equal(t, 1000.0, second.Value)
	assert.Equal(t, 48, second.RecordCount)

	f.aggregator.AssertExpectations(t)
}

func TestProjectedUsesForecast(t *testing.T) {
	f := newFixture(june2026)
	orgID := uuid.New()

	f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
		Return(metrics.DomainTotal{Total: 550, Unit: "tCO2e"}, nil)
	f.targets.On("GetActive", mock.Anything, mock.Anything, mock.Anything).Return(nil, targets.ErrTargetNotFound)
	f.forecaster.On("Forecast", mock.Anything, orgID, metrics.DomainEmissions, 6).
		Return(forecastPoints(forecast.MethodHoltWinters, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 50, 50, 50, 50, 50, 50), nil)

	result, err := f.calc.Projected(context.Background(), orgID, metrics.DomainEmissions)
	assert.NoError(t, err)
	assert.Equal(t, 550.0, result.ActualYTD)
	assert.Equal(t, 300.0, result.ForecastValue)
	assert.Equal(t, 850.0, result.Value)
	assert.Equal(t, 6, result.RemainingMonths)
	assert.Equal(t, string(forecast.MethodHoltWinters), result.Method)
}

func TestProjectedServedFromCache(t *testing.T) {
	f := newFixture(june2026)
	orgID := uuid.New()

	f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
		Return(metrics.DomainTotal{Total: 550, Unit: "tCO2e"}, nil)
	f.targets.On("GetActive", mock.Anything, mock.Anything, mock.Anything).Return(nil, targets.ErrTargetNotFound)
	f.forecaster.On("Forecast", mock.Anything, orgID, metrics.DomainEmissions, 6).
		Return(forecastPoints(forecast.MethodProphet, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 60, 60, 60, 60, 60, 60), nil).Once()

	first, err := f.calc.Projected(context.Background(), orgID, metrics.DomainEmissions)
	assert.NoError(t, err)
	assert.Equal(t, string(forecast.MethodProphet), first.Method)

	second, err := f.calc.Projected(context.Background(), orgID, metrics.DomainEmissions)
	assert.NoError(t, err)
	assert.Equal(t, MethodCached, second.Method)
	assert.Equal(t, first.Value, second.Value)

	f.forecaster.AssertExpectations(t)
}

func TestProjectedPrefersReplanTrajectory(t *testing.T) {
	f := newFixture(june2026)
	orgID := uuid.New()

	target := activeTarget()
	trajectory := []targets.TrajectoryPoint{}
	for month := 7; month <= 12; month++ {
		trajectory = append(trajectory, targets.TrajectoryPoint{
			Month: fmt.Sprintf("2026-%02d", month),
			Value: 60,
		})
	}
	assert.NoError(t, target.SetMetadata(&targets.TargetMetadata{Trajectory: trajectory}))

	f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
		Return(metrics.DomainTotal{Total: 500, Unit: "tCO2e"}, nil)
	f.targets.On("GetActive", mock.Anything, mock.Anything, mock.Anything).Return(target, nil)

	result, err := f.calc.Projected(context.Background(), orgID, metrics.DomainEmissions)
	assert.NoError(t, err)
	assert.Equal(t, MethodReplanTrajectory, result.Method)
	assert.Equal(t, 360.0, result.ForecastValue)
	assert.Equal(t, 860.0, result.Value)
	f.forecaster.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectedIgnoresPartialTrajectory(t *testing.T) {
	f := newFixture(june2026)
	orgID := uuid.New()

	target := activeTarget()
	assert.NoError(t, target.SetMetadata(&targets.TargetMetadata{Trajectory: []targets.TrajectoryPoint{
		{Month: "2026-07", Value: 60},
		{Month: "2026-08", Value: 60},
	}}))

	f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
		Return(metrics.DomainTotal{Total: 500, Unit: "tCO2e"}, nil)
	f.targets.On("GetActive", mock.Anything, mock.Anything, mock.Anything).Return(target, nil)
	f.forecaster.On("Forecast", mock.Anything, orgID, metrics.DomainEmissions, 6).
		Return(forecastPoints(forecast.MethodLinear, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 40, 40, 40, 40, 40, 40), nil)

	result, err := f.calc.Projected(context.Background(), orgID, metrics.DomainEmissions)
	assert.NoError(t, err)
	assert.Equal(t, string(forecast.MethodLinear), result.Method)
	assert.Equal(t, 740.0, result.Value)
}

func TestProjectedAnnualizesShortHistory(t *testing.T) {
	f := newFixture(june2026)
	orgID := uuid.New()

	f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
		Return(metrics.DomainTotal{Total: 600, Unit: "tCO2e"}, nil)
	f.targets.On("GetActive", mock.Anything, mock.Anything, mock.Anything).Return(nil, targets.ErrTargetNotFound)
	f.forecaster.On("Forecast", mock.Anything, orgID, metrics.DomainEmissions, 6).
		Return(nil, fmt.Errorf("%w, have 4", forecast.ErrInsufficientHistory))

	result, err := f.calc.Projected(context.Background(), orgID, metrics.DomainEmissions)
	assert.NoError(t, err)
	// Six months at the observed 100 per month pace.
	assert.Equal(t, 600.0, result.ForecastValue)
	assert.Equal(t, 1200.0, result.Value)
	assert.Equal(t, string(forecast.MethodLinear), result.Method)
}

func TestProjectedAtYearEnd(t *testing.T) {
	december := time.Date(2026, 12, 20, 10, 0, 0, 0, time.UTC)
	f := newFixture(december)
	orgID := uuid.New()

	f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
		Return(metrics.DomainTotal{Total: 980, Unit: "tCO2e"}, nil)

	result, err := f.calc.Projected(context.Background(), orgID, metrics.DomainEmissions)
	assert.NoError(t, err)
	assert.Equal(t, 980.0, result.Value)
	assert.Equal(t, 0, result.RemainingMonths)
	f.forecaster.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProgressStatuses(t *testing.T) {
	cases := []struct {
		name      string
		actual    float64
		remainder float64
		status    ProgressStatus
	}{
		{"on track", 800, 80, StatusOnTrack},                    // projected 880 <= 900
		{"at risk", 800, 130, StatusAtRisk},                     // projected 930 <= 945
		{"off track", 800, 150, StatusOffTrack},                 // projected 950 > 945
		{"exceeded baseline", 800, 210, StatusExceededBaseline}, // projected 1010 > 1000
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(june2026)
			orgID := uuid.New()

			f.targets.On("GetActive", mock.Anything, mock.Anything, mock.Anything).Return(activeTarget(), nil)
			f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
				Return(metrics.DomainTotal{Total: tc.actual, Unit: "tCO2e"}, nil)
			f.forecaster.On("Forecast", mock.Anything, orgID, metrics.DomainEmissions, 6).
				Return(forecastPoints(forecast.MethodHoltWinters, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), tc.remainder), nil)

			result, err := f.calc.Progress(context.Background(), orgID, metrics.DomainEmissions)
			assert.NoError(t, err)
			assert.Equal(t, tc.status, result.Status)
			assert.Equal(t, 900.0, result.TargetValue)
		})
	}
}

func TestProgressPercentages(t *testing.T) {
	f := newFixture(june2026)
	orgID := uuid.New()

	f.targets.On("GetActive", mock.Anything, mock.Anything, mock.Anything).Return(activeTarget(), nil)
	f.aggregator.On("PeriodTotal", mock.Anything, orgID, metrics.DomainEmissions, mock.Anything, mock.Anything).
		Return(metrics.DomainTotal{Total: 800, Unit: "tCO2e"}, nil)
	f.forecaster.On("Forecast", mock.Anything, orgID, metrics.DomainEmissions, 6).
		Return(forecastPoints(forecast.MethodHoltWinters, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), 80), nil)

	result, err := f.calc.Progress(context.Background(), orgID, metrics.DomainEmissions)
	assert.NoError(t, err)
	// 120 tonnes cut of the 100 required by 2026.
	assert.Equal(t, -100.0, result.ReductionNeeded)
	assert.Equal(t, -120.0, result.ReductionAchieved)
	assert.Equal(t, 12.0, result.ReductionAchievedPercent)
	assert.Equal(t, 120.0, result.ProgressPercent)
	assert.Equal(t, -20.0, result.GapToTarget)
}
