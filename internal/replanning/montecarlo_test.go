package replanning

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func simAllocations(percents []float64, annuals []float64) []Allocation {
	allocations := make([]Allocation, len(percents))
	for i := range percents {
		reduction := annuals[i] * percents[i] / 100
		allocations[i] = Allocation{
			MetricID:         uuid.New(),
			CurrentAnnual:    annuals[i],
			ReductionPercent: percents[i],
			ReductionTonnes:  reduction,
			TargetAnnual:     annuals[i] - reduction,
		}
	}
	return allocations
}

func TestSimulationDeterministicForSeed(t *testing.T) {
	sim := simulation{
		currentAnnual: 1000,
		targetAnnual:  850,
		allocations:   simAllocations([]float64{15, 15, 15}, []float64{500, 300, 200}),
		runs:          500,
		workers:       4,
		seed:          42,
	}

	first, err := runSimulation(context.Background(), sim)
	assert.NoError(t, err)
	second, err := runSimulation(context.Background(), sim)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSimulationPercentileOrdering(t *testing.T) {
	result, err := runSimulation(context.Background(), simulation{
		currentAnnual: 1000,
		targetAnnual:  800,
		allocations:   simAllocations([]float64{25, 15}, []float64{600, 400}),
		runs:          1000,
		workers:       3,
		seed:          7,
	})
	assert.NoError(t, err)
	assert.Equal(t, 1000, result.Runs)
	assert.LessOrEqual(t, result.P5, result.P25)
	assert.LessOrEqual(t, result.P25, result.P50)
	assert.LessOrEqual(t, result.P50, result.P75)
	assert.LessOrEqual(t, result.P75, result.P95)
	assert.Greater(t, result.Mean, result.P5)
	assert.Less(t, result.Mean, result.P95)
	assert.GreaterOrEqual(t, result.ProbabilityOfSuccess, 0.0)
	assert.LessOrEqual(t, result.ProbabilityOfSuccess, 1.0)
}

func TestSimulationConfidenceSeparatesRisk(t *testing.T) {
	annuals := []float64{500, 300, 200}

	comfortable, err := runSimulation(context.Background(), simulation{
		currentAnnual: 1000,
		targetAnnual:  850,
		allocations:   simAllocations([]float64{15, 15, 15}, annuals),
		runs:          4000,
		workers:       4,
		seed:          42,
	})
	assert.NoError(t, err)

	aggressive, err := runSimulation(context.Background(), simulation{
		currentAnnual: 1000,
		targetAnnual:  250,
		allocations:   simAllocations([]float64{75, 75, 75}, annuals),
		runs:          4000,
		workers:       4,
		seed:          42,
	})
	assert.NoError(t, err)

	// Shallow cuts carry tight noise and usually land; deep cuts are
	// far less certain.
	assert.Greater(t, comfortable.ProbabilityOfSuccess, 0.5)
	assert.Less(t, aggressive.ProbabilityOfSuccess, comfortable.ProbabilityOfSuccess-0.05)
}

func TestSimulationCarriesUnallocatedEmissions(t *testing.T) {
	result, err := runSimulation(context.Background(), simulation{
		currentAnnual: 1000,
		targetAnnual:  900,
		allocations:   simAllocations([]float64{20, 20}, []float64{300, 200}),
		runs:          2000,
		workers:       2,
		seed:          11,
	})
	assert.NoError(t, err)

	// 500 t outside the plan plus 400 t of planned emissions.
	assert.InDelta(t, 900, result.Mean, 10)
}

func TestSimulationCapsRuns(t *testing.T) {
	result, err := runSimulation(context.Background(), simulation{
		currentAnnual: 100,
		targetAnnual:  90,
		allocations:   simAllocations([]float64{10}, []float64{100}),
		runs:          50000,
		workers:       4,
		seed:          1,
	})
	assert.NoError(t, err)
	assert.Equal(t, maxMonteCarloRuns, result.Runs)
}

func TestSimulationZeroRunsSkips(t *testing.T) {
	result, err := runSimulation(context.Background(), simulation{runs: 0})
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestConfidenceForDepth(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, confidenceFor(12))
	assert.Equal(t, ConfidenceHigh, confidenceFor(20))
	assert.Equal(t, ConfidenceMedium, confidenceFor(35))
	assert.Equal(t, ConfidenceMedium, confidenceFor(50))
	assert.Equal(t, ConfidenceLow, confidenceFor(80))
}
