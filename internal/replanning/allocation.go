package replanning

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// allocationEpsilon is the tonnage below which a remainder counts as
// covered. Keeps float dust out of warnings.
const allocationEpsilon = 0.01

type allocationOutcome struct {
	allocations []Allocation
	achieved    float64
	warnings    []string
}

// ===== Strategy dispatch =====

// runAllocation distributes requiredTonnes across the metric state
// according to the strategy. The state must already exclude metrics the
// caller wants untouched.
func runAllocation(state *CurrentState, requiredTonnes float64, strategy Strategy, custom map[string]float64, userCap *float64) (allocationOutcome, error) {
	switch strategy {
	case StrategyEqual:
		return allocateUniform(state, requiredTonnes, effectiveCap(100, userCap)), nil
	case StrategyCostOptimized:
		return allocateOrdered(state, requiredTonnes, effectiveCap(costOptimizedCap, userCap), func(a, b MetricState) bool {
			if a.CostPerTonne != b.CostPerTonne {
				return a.CostPerTonne < b.CostPerTonne
			}
			return a.AnnualEmissions > b.AnnualEmissions
		}), nil
	case StrategyQuickWins:
		return allocateOrdered(state, requiredTonnes, effectiveCap(quickWinsCap, userCap), func(a, b MetricState) bool {
			if a.ImplementationMonths != b.ImplementationMonths {
				return a.ImplementationMonths < b.ImplementationMonths
			}
			return a.CostPerTonne < b.CostPerTonne
		}), nil
	case StrategyCustom:
		return allocateCustom(state, custom)
	default:
		return allocationOutcome{}, fmt.Errorf("strategy %s has no allocator", strategy)
	}
}

func effectiveCap(strategyCap float64, userCap *float64) float64 {
	if userCap != nil && *userCap < strategyCap {
		return *userCap
	}
	return strategyCap
}

// ===== Uniform =====

// allocateUniform cuts every metric by the same percentage.
func allocateUniform(state *CurrentState, requiredTonnes float64, cap float64) allocationOutcome {
	outcome := allocationOutcome{}
	if state.TotalAnnual <= 0 {
		return outcome
	}

	percent := requiredTonnes / state.TotalAnnual * 100
	if percent > cap {
		outcome.warnings = append(outcome.warnings,
			fmt.Sprintf("Uniform reduction of %.1f%% exceeds the %.0f%% cap; allocations are capped", percent, cap))
		percent = cap
	}

	for _, m := range state.Metrics {
		outcome.add(m, percent)
	}
	outcome.finish()
	return outcome
}

// ===== Ordered greedy =====

// allocateOrdered walks metrics in the strategy's preference order,
// taking up to cap percent from each until the requirement is covered.
// When the caps cannot absorb everything, the remainder spreads over
// the headroom left below 100% and a warning is attached.
func allocateOrdered(state *CurrentState, requiredTonnes float64, cap float64, less func(a, b MetricState) bool) allocationOutcome {
	outcome := allocationOutcome{}

	ordered := make([]MetricState, len(state.Metrics))
	copy(ordered, state.Metrics)
	sort.SliceStable(ordered, func(i, j int) bool { return less(ordered[i], ordered[j]) })

	assigned := map[uuid.UUID]float64{}
	remaining := requiredTonnes
	for _, m := range ordered {
		if remaining <= allocationEpsilon {
			break
		}
		capTonnes := m.AnnualEmissions * cap / 100
		take := math.Min(capTonnes, remaining)
		if take <= 0 {
			continue
		}
		assigned[m.MetricID] = take / m.AnnualEmissions * 100
		remaining -= take
	}

	if remaining > allocationEpsilon {
		spread, leftover := spreadOverHeadroom(ordered, assigned, remaining)
		if spread > allocationEpsilon {
			outcome.warnings = append(outcome.warnings,
				fmt.Sprintf("Preferred caps of %.0f%% could not absorb the reduction; %.1f t allocated beyond them", cap, spread))
		}
		remaining = leftover
	}
	if remaining > allocationEpsilon {
		outcome.warnings = append(outcome.warnings,
			fmt.Sprintf("Required reduction exceeds current emissions; %.1f t remain uncovered", remaining))
	}

	// Report in the state's emitter order, not the strategy order.
	for _, m := range state.Metrics {
		if percent := assigned[m.MetricID]; percent > 0 {
			outcome.add(m, percent)
		}
	}
	outcome.finish()
	return outcome
}

// spreadOverHeadroom distributes remaining tonnes proportionally to the
// headroom each metric still has below 100%. Returns the amount spread
// and whatever could not be placed.
func spreadOverHeadroom(metrics []MetricState, assigned map[uuid.UUID]float64, remaining float64) (float64, float64) {
	totalHeadroom := 0.0
	headrooms := make([]float64, len(metrics))
	for i, m := range metrics {
		headrooms[i] = m.AnnualEmissions * (100 - assigned[m.MetricID]) / 100
		totalHeadroom += headrooms[i]
	}
	if totalHeadroom <= 0 {
		return 0, remaining
	}

	toSpread := math.Min(remaining, totalHeadroom)
	for i, m := range metrics {
		if headrooms[i] <= 0 {
			continue
		}
		extra := toSpread * headrooms[i] / totalHeadroom
		assigned[m.MetricID] += extra / m.AnnualEmissions * 100
	}
	return toSpread, remaining - toSpread
}

// ===== Custom =====

// allocateCustom applies caller-provided percentages keyed by metric id.
func allocateCustom(state *CurrentState, custom map[string]float64) (allocationOutcome, error) {
	outcome := allocationOutcome{}

	known := map[string]MetricState{}
	for _, m := range state.Metrics {
		known[m.MetricID.String()] = m
	}
	for id, percent := range custom {
		if _, ok := known[id]; !ok {
			return outcome, fmt.Errorf("%w: metric %s has no emissions in the trailing year", ErrInvalidReplan, id)
		}
		if percent < 0 || percent > 100 {
			return outcome, fmt.Errorf("%w: allocation for metric %s must lie in [0, 100]", ErrInvalidReplan, id)
		}
	}

	for _, m := range state.Metrics {
		percent, ok := custom[m.MetricID.String()]
		if !ok || percent == 0 {
			continue
		}
		outcome.add(m, percent)
	}
	outcome.finish()
	return outcome, nil
}

// ===== Outcome assembly =====

func (o *allocationOutcome) add(m MetricState, percent float64) {
	tonnes := m.AnnualEmissions * percent / 100
	o.allocations = append(o.allocations, Allocation{
		MetricID:             m.MetricID,
		MetricName:           m.MetricName,
		Category:             m.Category,
		CurrentAnnual:        m.AnnualEmissions,
		ReductionPercent:     round2(percent),
		ReductionTonnes:      round2(tonnes),
		TargetAnnual:         round2(m.AnnualEmissions - tonnes),
		EstimatedCost:        round2(tonnes * m.CostPerTonne),
		ImplementationMonths: m.ImplementationMonths,
	})
	o.achieved += tonnes
}

// finish rounds the achieved figure and orders allocations by size.
func (o *allocationOutcome) finish() {
	o.achieved = round2(o.achieved)
	sort.SliceStable(o.allocations, func(i, j int) bool {
		return o.allocations[i].ReductionTonnes > o.allocations[j].ReductionTonnes
	})
}
