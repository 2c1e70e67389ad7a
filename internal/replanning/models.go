package replanning

import (
	"time"

	"github.com/google/uuid"

	"blipee/sustainability-engine/internal/targets"
)

// Strategy names an allocation strategy.
type Strategy string

const (
	StrategyEqual         Strategy = "equal"
	StrategyCostOptimized Strategy = "cost_optimized"
	StrategyQuickWins     Strategy = "quick_wins"
	StrategyCustom        Strategy = "custom"
	StrategyAIRecommended Strategy = "ai_recommended"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyEqual, StrategyCostOptimized, StrategyQuickWins, StrategyCustom, StrategyAIRecommended:
		return true
	}
	return false
}

// Per-metric reduction caps. No single lever carries the whole plan:
// cost optimization may push a cheap metric hard, quick wins stay
// shallower because fast measures rarely cut deep.
const (
	costOptimizedCap = 80.0
	quickWinsCap     = 60.0
)

// ConfidenceLevel grades how certain the plan is.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ReplanRequest asks for a new reduction plan against a target. Exactly
// one of TargetEmissions, TargetReductionPercent and TargetYear drives
// the replan; when several are set the absolute emissions figure wins,
// then the percent, then the year.
type ReplanRequest struct {
	TargetEmissions        *float64           `json:"target_emissions"`
	TargetReductionPercent *float64           `json:"target_reduction_percent"`
	TargetYear             *int               `json:"target_year"`
	Strategy               Strategy           `json:"strategy"`
	CustomAllocations      map[string]float64 `json:"custom_allocations,omitempty"`
	ExcludedMetricIDs      []uuid.UUID        `json:"excluded_metric_ids,omitempty"`
	MaxMetricReduction     *float64           `json:"max_metric_reduction,omitempty"`
	Reason                 string             `json:"reason"`
	TriggeredBy            string             `json:"triggered_by"`
	DryRun                 bool               `json:"dry_run"`
	MonteCarloRuns         *int               `json:"monte_carlo_runs,omitempty"`
	Seed                   *int64             `json:"seed,omitempty"`
}

// Initiative is an illustrative measure attached to an allocation.
type Initiative struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	RiskLevel string  `json:"risk_level"`
	ROIYears  float64 `json:"roi_years"`
}

// Allocation is one metric's share of the planned reduction.
type Allocation struct {
	MetricID             uuid.UUID    `json:"metric_id"`
	MetricName           string       `json:"metric_name"`
	Category             string       `json:"category"`
	CurrentAnnual        float64      `json:"current_annual"`
	ReductionPercent     float64      `json:"reduction_percent"`
	ReductionTonnes      float64      `json:"reduction_tonnes"`
	TargetAnnual         float64      `json:"target_annual"`
	EstimatedCost        float64      `json:"estimated_cost"`
	ImplementationMonths int          `json:"implementation_months"`
	Initiatives          []Initiative `json:"initiatives,omitempty"`
}

// MonteCarloResult summarizes the uncertainty simulation over the
// plan's achieved annual emissions.
type MonteCarloResult struct {
	Runs                 int     `json:"runs"`
	Mean                 float64 `json:"mean"`
	P5                   float64 `json:"p5"`
	P25                  float64 `json:"p25"`
	P50                  float64 `json:"p50"`
	P75                  float64 `json:"p75"`
	P95                  float64 `json:"p95"`
	ProbabilityOfSuccess float64 `json:"probability_of_success"`
}

// ReplanResult is the full outcome of a replan computation.
type ReplanResult struct {
	TargetID                 uuid.UUID                 `json:"target_id"`
	OrganizationID           uuid.UUID                 `json:"organization_id"`
	Strategy                 Strategy                  `json:"strategy"`
	RequestedStrategy        Strategy                  `json:"requested_strategy"`
	CurrentAnnualEmissions   float64                   `json:"current_annual_emissions"`
	TargetAnnualEmissions    float64                   `json:"target_annual_emissions"`
	RequiredReductionTonnes  float64                   `json:"required_reduction_tonnes"`
	RequiredReductionPercent float64                   `json:"required_reduction_percent"`
	AchievedReductionTonnes  float64                   `json:"achieved_reduction_tonnes"`
	Allocations              []Allocation              `json:"allocations"`
	Trajectory               []targets.TrajectoryPoint `json:"trajectory"`
	TargetYear               int                       `json:"target_year"`
	FeasibilityScore         float64                   `json:"feasibility_score"`
	Confidence               ConfidenceLevel           `json:"confidence"`
	Uncertainty              *MonteCarloResult         `json:"uncertainty,omitempty"`
	Warnings                 []string                  `json:"warnings,omitempty"`
	Applied                  bool                      `json:"applied"`
	ReplanID                 *uuid.UUID                `json:"replan_id,omitempty"`
	GeneratedAt              time.Time                 `json:"generated_at"`
}

// MetricState is one metric's standing over the trailing year, the
// input to allocation.
type MetricState struct {
	MetricID             uuid.UUID `json:"metric_id"`
	MetricName           string    `json:"metric_name"`
	Category             string    `json:"category"`
	AnnualEmissions      float64   `json:"annual_emissions"`
	CostPerTonne         float64   `json:"cost_per_tonne"`
	ImplementationMonths int       `json:"implementation_months"`
}

// CurrentState is the organization's trailing-year emissions picture.
type CurrentState struct {
	OrganizationID uuid.UUID     `json:"organization_id"`
	TotalAnnual    float64       `json:"total_annual"`
	Metrics        []MetricState `json:"metrics"`
	WindowStart    time.Time     `json:"window_start"`
	WindowEnd      time.Time     `json:"window_end"`
}
