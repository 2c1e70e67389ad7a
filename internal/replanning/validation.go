package replanning

import (
	"errors"
	"fmt"

	"blipee/sustainability-engine/internal/targets"
)

// ErrInvalidReplan is returned for requests that fail validation.
var ErrInvalidReplan = errors.New("invalid replan request")

// ErrNoActivity is returned when the trailing year holds no emission
// records to plan against.
var ErrNoActivity = errors.New("no emissions recorded in the trailing year")

// validateRequest checks the structural shape of a replan request.
func validateRequest(req ReplanRequest) error {
	if req.Strategy == "" {
		return fmt.Errorf("%w: strategy is required", ErrInvalidReplan)
	}
	if !req.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %s", ErrInvalidReplan, req.Strategy)
	}
	if req.Strategy == StrategyCustom && len(req.CustomAllocations) == 0 {
		return fmt.Errorf("%w: custom strategy requires custom_allocations", ErrInvalidReplan)
	}
	if req.Strategy != StrategyCustom && len(req.CustomAllocations) > 0 {
		return fmt.Errorf("%w: custom_allocations only apply to the custom strategy", ErrInvalidReplan)
	}
	if req.TargetEmissions == nil && req.TargetReductionPercent == nil && req.TargetYear == nil {
		return fmt.Errorf("%w: one of target_emissions, target_reduction_percent or target_year is required", ErrInvalidReplan)
	}
	if req.MaxMetricReduction != nil && (*req.MaxMetricReduction <= 0 || *req.MaxMetricReduction > 100) {
		return fmt.Errorf("%w: max_metric_reduction must lie in (0, 100]", ErrInvalidReplan)
	}
	if req.MonteCarloRuns != nil && *req.MonteCarloRuns < 0 {
		return fmt.Errorf("%w: monte_carlo_runs must not be negative", ErrInvalidReplan)
	}
	return nil
}

// replanGoal is the resolved objective of a replan.
type replanGoal struct {
	targetAnnual float64
	targetYear   int
	source       string
}

// resolveGoal turns the request parameters into a concrete annual
// emissions objective. When several parameters are set the absolute
// emissions figure wins, then the reduction percent, then the year.
func resolveGoal(req ReplanRequest, target *targets.Target, currentYear int) (replanGoal, error) {
	targetYear := target.TargetYear
	if req.TargetYear != nil {
		if *req.TargetYear <= currentYear || *req.TargetYear > 2100 {
			return replanGoal{}, fmt.Errorf("%w: target_year must lie after %d", ErrInvalidReplan, currentYear)
		}
		targetYear = *req.TargetYear
	}

	switch {
	case req.TargetEmissions != nil:
		if *req.TargetEmissions < 0 {
			return replanGoal{}, fmt.Errorf("%w: target_emissions must not be negative", ErrInvalidReplan)
		}
		return replanGoal{targetAnnual: *req.TargetEmissions, targetYear: targetYear, source: "emissions"}, nil

	case req.TargetReductionPercent != nil:
		percent := *req.TargetReductionPercent
		if percent <= 0 || percent > 100 {
			return replanGoal{}, fmt.Errorf("%w: target_reduction_percent must lie in (0, 100]", ErrInvalidReplan)
		}
		return replanGoal{
			targetAnnual: target.BaselineValue * (1 - percent/100),
			targetYear:   targetYear,
			source:       "percent",
		}, nil

	default:
		// Year-only replans keep the committed end value and move the
		// deadline.
		return replanGoal{targetAnnual: target.TargetValue, targetYear: targetYear, source: "year"}, nil
	}
}
