package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/catalog"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FetchAll(ctx context.Context, filter RecordFilter) ([]ActivityRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ActivityRecord), args.Error(1)
}

func (m *mockStore) SiteNames(ctx context.Context, organizationID uuid.UUID) (map[uuid.UUID]string, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]string), args.Error(1)
}

func testCatalog() *catalog.Catalog {
	return catalog.New(catalog.DefaultDefinitions())
}

func metricID(t *testing.T, cat *catalog.Catalog, code string) uuid.UUID {
	t.Helper()
	def, ok := cat.ByCode(code)
	assert.True(t, ok, "metric %s not in catalog", code)
	return def.ID
}

func emissionRecord(metricID uuid.UUID, start time.Time, co2eKg float64) ActivityRecord {
	return ActivityRecord{
		ID:            uuid.New(),
		MetricID:      metricID,
		PeriodStart:   start,
		PeriodEnd:     start.AddDate(0, 1, -1),
		CO2eEmissions: &co2eKg,
		CreatedAt:     start,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestAggregator(store Store) *Aggregator {
	agg := NewAggregator(store, testCatalog(), zap.NewNop())
	agg.now = fixedClock(time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC))
	return agg
}

func TestPeriodTotalRoundsScopesBeforeTotal(t *testing.T) {
	cat := testCatalog()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []ActivityRecord{
		emissionRecord(metricID(t, cat, "scope1_natural_gas"), jan, 10440),       // 10.44 t -> 10.4
		emissionRecord(metricID(t, cat, "scope2_electricity_grid"), jan, 20440),  // 20.44 t -> 20.4
		emissionRecord(metricID(t, cat, "scope3_business_travel_air"), jan, 5040), // 5.04 t -> 5.0
	}

	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return(records, nil)

	agg := newTestAggregator(store)
	total, err := agg.PeriodTotal(context.Background(), uuid.New(), DomainEmissions, jan, jan.AddDate(1, 0, 0))

	assert.NoError(t, err)
	assert.Equal(t, 10.4, total.ScopeTotals[catalog.Scope1])
	assert.Equal(t, 20.4, total.ScopeTotals[catalog.Scope2])
	assert.Equal(t, 5.0, total.ScopeTotals[catalog.Scope3])
	// Sum of the rounded scope figures, not a fresh rounding of the raw
	// sum (which would give 35.9).
	assert.Equal(t, 35.8, total.Total)
	assert.Equal(t, 3, total.RecordCount)
	assert.Equal(t, "tCO2e", total.Unit)
}

func TestPeriodTotalExcludesFutureMonths(t *testing.T) {
	cat := testCatalog()
	gasID := metricID(t, cat, "scope1_natural_gas")

	records := []ActivityRecord{
		emissionRecord(gasID, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 1000),
		emissionRecord(gasID, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), 1000),
		emissionRecord(gasID, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), 9000),
	}

	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return(records, nil)

	agg := newTestAggregator(store)
	agg.now = fixedClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	total, err := agg.PeriodTotal(context.Background(), uuid.New(), DomainEmissions,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))

	assert.NoError(t, err)
	assert.Equal(t, 2.0, total.Total)
	assert.Equal(t, 2, total.RecordCount)
}

func TestPeriodTotalSkipsRecordsWithoutEmissions(t *testing.T) {
	cat := testCatalog()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	noCO2e := ActivityRecord{
		ID:          uuid.New(),
		MetricID:    metricID(t, cat, "scope2_electricity_grid"),
		PeriodStart: jan,
		Value:       5000,
	}
	records := []ActivityRecord{
		noCO2e,
		emissionRecord(metricID(t, cat, "scope2_electricity_grid"), jan, 2500),
	}

	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return(records, nil)

	agg := newTestAggregator(store)
	total, err := agg.PeriodTotal(context.Background(), uuid.New(), DomainEmissions, jan, jan.AddDate(1, 0, 0))

	assert.NoError(t, err)
	assert.Equal(t, 2.5, total.Total)
	assert.Equal(t, 1, total.RecordCount)
}

func TestEnergyDomainFiltersToEnergyMetrics(t *testing.T) {
	cat := testCatalog()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []ActivityRecord{
		{ID: uuid.New(), MetricID: metricID(t, cat, "scope2_electricity_grid"), PeriodStart: jan, Value: 12000.26},
		{ID: uuid.New(), MetricID: metricID(t, cat, "scope2_purchased_heating"), PeriodStart: jan, Value: 3000},
	}

	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.MatchedBy(func(f RecordFilter) bool {
		// Electricity (2 defs) plus Purchased Energy (2 defs).
		return len(f.MetricIDs) == 4
	})).Return(records, nil)

	agg := newTestAggregator(store)
	total, err := agg.PeriodTotal(context.Background(), uuid.New(), DomainEnergy, jan, jan.AddDate(1, 0, 0))

	assert.NoError(t, err)
	assert.Equal(t, 15000.3, total.Total)
	assert.Equal(t, "kWh", total.Unit)
	store.AssertExpectations(t)
}

func TestWaterDomainRoundsToWholeUnits(t *testing.T) {
	cat := testCatalog()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []ActivityRecord{
		{ID: uuid.New(), MetricID: metricID(t, cat, "scope3_water_supply"), PeriodStart: jan, Value: 1200.4},
		{ID: uuid.New(), MetricID: metricID(t, cat, "scope3_wastewater"), PeriodStart: jan, Value: 800.3},
	}

	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return(records, nil)

	agg := newTestAggregator(store)
	total, err := agg.PeriodTotal(context.Background(), uuid.New(), DomainWater, jan, jan.AddDate(1, 0, 0))

	assert.NoError(t, err)
	assert.Equal(t, 2001.0, total.Total)
	assert.Equal(t, "m³", total.Unit)
}

func TestMonthlySeriesZeroFillsAndDeduplicates(t *testing.T) {
	cat := testCatalog()
	gasID := metricID(t, cat, "scope1_natural_gas")
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	latest := emissionRecord(gasID, jan, 2000)
	stale := emissionRecord(gasID, jan, 9999)

	// Repository order: period ascending, newest submission first.
	records := []ActivityRecord{latest, stale, emissionRecord(gasID, mar, 3000)}

	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return(records, nil)

	agg := newTestAggregator(store)
	series, err := agg.MonthlySeries(context.Background(), uuid.New(), DomainEmissions,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))

	assert.NoError(t, err)
	assert.Len(t, series, 3)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), series[0].Month)
	assert.Equal(t, 2.0, series[0].Value)
	assert.Equal(t, 0.0, series[1].Value)
	assert.Equal(t, 3.0, series[2].Value)
}

func TestMonthlySeriesEmptyWithoutRecords(t *testing.T) {
	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return([]ActivityRecord{}, nil)

	agg := newTestAggregator(store)
	series, err := agg.MonthlySeries(context.Background(), uuid.New(), DomainEmissions,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))

	assert.NoError(t, err)
	assert.Empty(t, series)
}

func TestCategoryBreakdownPercentages(t *testing.T) {
	cat := testCatalog()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []ActivityRecord{
		emissionRecord(metricID(t, cat, "scope2_electricity_grid"), jan, 75000),
		emissionRecord(metricID(t, cat, "scope1_natural_gas"), jan, 25000),
	}

	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return(records, nil)

	agg := newTestAggregator(store)
	breakdown, err := agg.CategoryBreakdown(context.Background(), uuid.New(), DomainEmissions, jan, jan.AddDate(1, 0, 0))

	assert.NoError(t, err)
	assert.Len(t, breakdown, 2)
	assert.Equal(t, "Electricity", breakdown[0].Category)
	assert.Equal(t, 75.0, breakdown[0].Value)
	assert.Equal(t, 75.0, breakdown[0].Percentage)
	assert.Equal(t, "Stationary Combustion", breakdown[1].Category)
	assert.Equal(t, 25.0, breakdown[1].Percentage)
}

func TestSiteBreakdownLabelsUnassigned(t *testing.T) {
	cat := testCatalog()
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	siteID := uuid.New()

	withSite := emissionRecord(metricID(t, cat, "scope1_natural_gas"), jan, 60000)
	withSite.SiteID = &siteID
	records := []ActivityRecord{
		withSite,
		emissionRecord(metricID(t, cat, "scope1_natural_gas"), jan, 40000),
	}

	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return(records, nil)
	store.On("SiteNames", mock.Anything, mock.Anything).Return(map[uuid.UUID]string{siteID: "Lisbon HQ"}, nil)

	agg := newTestAggregator(store)
	breakdown, err := agg.SiteBreakdown(context.Background(), uuid.New(), DomainEmissions, jan, jan.AddDate(1, 0, 0))

	assert.NoError(t, err)
	assert.Len(t, breakdown, 2)
	assert.Equal(t, "Lisbon HQ", breakdown[0].SiteName)
	assert.Equal(t, 60.0, breakdown[0].Value)
	assert.Equal(t, "Unassigned", breakdown[1].SiteName)
	assert.Equal(t, 40.0, breakdown[1].Value)
}

func TestSnapshotAllCoversEveryDomain(t *testing.T) {
	store := new(mockStore)
	store.On("FetchAll", mock.Anything, mock.Anything).Return([]ActivityRecord{}, nil)

	agg := newTestAggregator(store)
	snapshot, err := agg.SnapshotAll(context.Background(), uuid.New(),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))

	assert.NoError(t, err)
	assert.Len(t, snapshot.Domains, 4)
	for _, domain := range AllDomains() {
		total, ok := snapshot.Domains[domain]
		assert.True(t, ok, "missing domain %s", domain)
		assert.Equal(t, domain.Unit(), total.Unit)
	}
}
