package replanning

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"blipee/sustainability-engine/pkg/stats"
)

const (
	// maxMonteCarloRuns bounds a single simulation so a request cannot
	// burn unbounded CPU.
	maxMonteCarloRuns = 10000

	// successTolerance treats a landing within 2% of the target as
	// met. Annual reporting works at that granularity; without it the
	// probability degenerates to a coin flip for any plan that covers
	// its requirement exactly.
	successTolerance = 1.02
)

// confidenceFor grades a reduction depth. Shallow cuts are routine,
// deep ones depend on projects that slip.
func confidenceFor(reductionPercent float64) ConfidenceLevel {
	switch {
	case reductionPercent <= 20:
		return ConfidenceHigh
	case reductionPercent <= 50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// spreadFor is the half-width of the uniform noise applied to a
// metric's simulated emissions.
func spreadFor(level ConfidenceLevel) float64 {
	switch level {
	case ConfidenceHigh:
		return 0.10
	case ConfidenceMedium:
		return 0.20
	default:
		return 0.30
	}
}

// simulation holds the inputs of one Monte Carlo run set.
type simulation struct {
	currentAnnual float64
	targetAnnual  float64
	allocations   []Allocation
	runs          int
	workers       int
	seed          int64
}

// runSimulation perturbs every allocated metric's planned emissions by
// uniform noise sized to its confidence level and reports the outcome
// distribution. Emissions outside the plan carry through unchanged.
// Runs are split across workers, each with its own seeded source and
// its own slice range, so the result is deterministic for a given seed
// and worker count.
func runSimulation(ctx context.Context, sim simulation) (*MonteCarloResult, error) {
	runs := sim.runs
	if runs <= 0 {
		return nil, nil
	}
	if runs > maxMonteCarloRuns {
		runs = maxMonteCarloRuns
	}
	workers := sim.workers
	if workers < 1 {
		workers = 1
	}
	if workers > runs {
		workers = runs
	}

	planned := make([]float64, len(sim.allocations))
	spreads := make([]float64, len(sim.allocations))
	unallocated := sim.currentAnnual
	for i, a := range sim.allocations {
		planned[i] = a.TargetAnnual
		spreads[i] = spreadFor(confidenceFor(a.ReductionPercent))
		unallocated -= a.CurrentAnnual
	}
	if unallocated < 0 {
		unallocated = 0
	}
	threshold := sim.targetAnnual * successTolerance

	outcomes := make([]float64, runs)
	successes := make([]int, workers)
	chunk := (runs + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > runs {
			end = runs
		}
		if start >= end {
			break
		}
		worker := w
		rng := rand.New(rand.NewSource(sim.seed + int64(worker)))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				total := unallocated
				for j, base := range planned {
					factor := 1 + (rng.Float64()*2-1)*spreads[j]
					total += base * factor
				}
				if total < 0 {
					total = 0
				}
				outcomes[i] = total
				if total <= threshold {
					successes[worker]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	met := 0
	for _, s := range successes {
		met += s
	}
	mean := stats.Mean(outcomes)
	sort.Float64s(outcomes)

	return &MonteCarloResult{
		Runs:                 runs,
		Mean:                 round2(mean),
		P5:                   round2(stats.PercentileSorted(outcomes, 5)),
		P25:                  round2(stats.PercentileSorted(outcomes, 25)),
		P50:                  round2(stats.PercentileSorted(outcomes, 50)),
		P75:                  round2(stats.PercentileSorted(outcomes, 75)),
		P95:                  round2(stats.PercentileSorted(outcomes, 95)),
		ProbabilityOfSuccess: math.Round(float64(met)/float64(runs)*1000) / 1000,
	}, nil
}
