package replanning

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func metricState(name string, annual, costPerTonne float64, months int) MetricState {
	return MetricState{
		MetricID:             uuid.New(),
		MetricName:           name,
		Category:             "electricity",
		AnnualEmissions:      annual,
		CostPerTonne:         costPerTonne,
		ImplementationMonths: months,
	}
}

func testState(states ...MetricState) *CurrentState {
	state := &CurrentState{OrganizationID: uuid.New()}
	for _, m := range states {
		state.Metrics = append(state.Metrics, m)
		state.TotalAnnual += m.AnnualEmissions
	}
	return state
}

func TestAllocateUniformSpreadsEvenly(t *testing.T) {
	state := testState(
		metricState("Grid electricity", 800, 45, 6),
		metricState("Natural gas", 200, 85, 12),
		metricState("Fleet diesel", 100, 110, 18),
	)

	outcome, err := runAllocation(state, 200, StrategyEqual, nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, outcome.warnings)
	assert.Len(t, outcome.allocations, 3)
	assert.InDelta(t, 200, outcome.achieved, 0.1)

	var targetSum float64
	for _, a := range outcome.allocations {
		assert.InDelta(t, 18.18, a.ReductionPercent, 0.01)
		targetSum += a.TargetAnnual
	}
	assert.InDelta(t, 900, targetSum, 1.0)
}

func TestAllocateUniformCapsAtFullEmissions(t *testing.T) {
	state := testState(
		metricState("Grid electricity", 800, 45, 6),
		metricState("Natural gas", 300, 85, 12),
	)

	outcome, err := runAllocation(state, 1200, StrategyEqual, nil, nil)
	assert.NoError(t, err)
	assert.InDelta(t, 1100, outcome.achieved, 0.1)
	assert.Len(t, outcome.warnings, 1)
	assert.Contains(t, outcome.warnings[0], "capped")
}

func TestAllocateUniformHonorsUserCap(t *testing.T) {
	state := testState(
		metricState("Grid electricity", 800, 45, 6),
		metricState("Natural gas", 300, 85, 12),
	)
	userCap := 10.0

	outcome, err := runAllocation(state, 200, StrategyEqual, nil, &userCap)
	assert.NoError(t, err)
	assert.InDelta(t, 110, outcome.achieved, 0.1)
	for _, a := range outcome.allocations {
		assert.InDelta(t, 10, a.ReductionPercent, 0.01)
	}
	assert.Len(t, outcome.warnings, 1)
}

func TestAllocateCostOptimizedTakesCheapestFirst(t *testing.T) {
	expensive := metricState("Fleet diesel", 700, 120, 18)
	mid := metricState("Natural gas", 200, 50, 12)
	cheap := metricState("Waste to landfill", 100, 30, 6)
	state := testState(expensive, mid, cheap)

	outcome, err := runAllocation(state, 200, StrategyCostOptimized, nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, outcome.warnings)
	assert.InDelta(t, 200, outcome.achieved, 0.1)
	assert.Len(t, outcome.allocations, 2)

	byName := map[string]Allocation{}
	for _, a := range outcome.allocations {
		byName[a.MetricName] = a
	}
	assert.InDelta(t, 80, byName["Waste to landfill"].ReductionPercent, 0.01)
	assert.InDelta(t, 60, byName["Natural gas"].ReductionPercent, 0.01)
	_, touched := byName["Fleet diesel"]
	assert.False(t, touched)
}

func TestAllocateQuickWinsPrefersFastMetrics(t *testing.T) {
	slow := metricState("Fleet diesel", 850, 40, 24)
	fast := metricState("Business travel", 150, 100, 3)
	state := testState(slow, fast)

	outcome, err := runAllocation(state, 80, StrategyQuickWins, nil, nil)
	assert.NoError(t, err)
	assert.Len(t, outcome.allocations, 1)
	assert.Equal(t, "Business travel", outcome.allocations[0].MetricName)
	assert.InDelta(t, 53.33, outcome.allocations[0].ReductionPercent, 0.01)
}

func TestAllocateOrderedSpillsBeyondCaps(t *testing.T) {
	state := testState(
		metricState("Grid electricity", 600, 45, 6),
		metricState("Natural gas", 500, 85, 12),
	)

	outcome, err := runAllocation(state, 950, StrategyCostOptimized, nil, nil)
	assert.NoError(t, err)
	assert.InDelta(t, 950, outcome.achieved, 0.1)

	// The 80% caps absorb 880 t; the last 70 t spread over the
	// remaining headroom in proportion to size, so both metrics land
	// on the same percentage.
	for _, a := range outcome.allocations {
		assert.InDelta(t, 86.36, a.ReductionPercent, 0.01)
	}
	assert.Len(t, outcome.warnings, 1)
	assert.Contains(t, outcome.warnings[0], "beyond")
}

func TestAllocateOrderedReportsUncoverableRemainder(t *testing.T) {
	state := testState(metricState("Grid electricity", 600, 45, 6))

	outcome, err := runAllocation(state, 700, StrategyCostOptimized, nil, nil)
	assert.NoError(t, err)
	assert.InDelta(t, 600, outcome.achieved, 0.1)
	assert.InDelta(t, 100, outcome.allocations[0].ReductionPercent, 0.01)
	assert.Len(t, outcome.warnings, 2)
	assert.Contains(t, outcome.warnings[1], "uncovered")
}

func TestAllocateCustomAppliesGivenShares(t *testing.T) {
	a := metricState("Grid electricity", 600, 45, 6)
	b := metricState("Natural gas", 400, 85, 12)
	state := testState(a, b)
	custom := map[string]float64{
		a.MetricID.String(): 25,
		b.MetricID.String(): 0,
	}

	outcome, err := runAllocation(state, 150, StrategyCustom, custom, nil)
	assert.NoError(t, err)
	assert.Len(t, outcome.allocations, 1)
	assert.Equal(t, a.MetricID, outcome.allocations[0].MetricID)
	assert.InDelta(t, 150, outcome.achieved, 0.1)
}

func TestAllocateCustomRejectsUnknownMetric(t *testing.T) {
	state := testState(metricState("Grid electricity", 600, 45, 6))

	_, err := runAllocation(state, 100, StrategyCustom, map[string]float64{uuid.NewString(): 10}, nil)
	assert.ErrorIs(t, err, ErrInvalidReplan)
}

func TestAllocateCustomRejectsOutOfRangeShare(t *testing.T) {
	m := metricState("Grid electricity", 600, 45, 6)
	state := testState(m)

	_, err := runAllocation(state, 100, StrategyCustom, map[string]float64{m.MetricID.String(): 120}, nil)
	assert.ErrorIs(t, err, ErrInvalidReplan)
}

func TestAllocationCarriesCostAndLeadTime(t *testing.T) {
	state := testState(metricState("Grid electricity", 600, 45, 6))

	outcome, err := runAllocation(state, 60, StrategyEqual, nil, nil)
	assert.NoError(t, err)
	assert.InDelta(t, 2700, outcome.allocations[0].EstimatedCost, 0.1)
	assert.Equal(t, 6, outcome.allocations[0].ImplementationMonths)
	assert.InDelta(t, 540, outcome.allocations[0].TargetAnnual, 0.01)
}
