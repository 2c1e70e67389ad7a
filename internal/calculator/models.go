package calculator

import (
	"time"

	"github.com/google/uuid"

	"blipee/sustainability-engine/internal/catalog"
	"blipee/sustainability-engine/internal/metrics"
)

// ProgressStatus summarizes where an organization stands against its
// target year figure.
type ProgressStatus string

const (
	StatusOnTrack          ProgressStatus = "on-track"
	StatusAtRisk           ProgressStatus = "at-risk"
	StatusOffTrack         ProgressStatus = "off-track"
	StatusExceededBaseline ProgressStatus = "exceeded-baseline"
)

// atRiskTolerance is how far above the year target a projection may sit
// and still count as at-risk rather than off-track.
const atRiskTolerance = 1.05

// MethodCached tags responses served from the cache layer.
const MethodCached = "cached"

// MethodReplanTrajectory tags projections taken from an applied
// replan's expected path.
const MethodReplanTrajectory = "replanning_trajectory"

// BaselineResult is the aggregated figure of a target's reference year.
type BaselineResult struct {
	OrganizationID uuid.UUID                 `json:"organization_id"`
	Domain         metrics.Domain            `json:"domain"`
	Year           int                       `json:"year"`
	Value          float64                   `json:"value"`
	Unit           string                    `json:"unit"`
	ScopeTotals    map[catalog.Scope]float64 `json:"scope_totals,omitempty"`
	RecordCount    int                       `json:"record_count"`
	ComputedAt     time.Time                 `json:"computed_at"`
}

// TargetResult is the active target's figure for a requested year,
// interpolated along the linear reduction path.
type TargetResult struct {
	OrganizationID             uuid.UUID      `json:"organization_id"`
	Domain                     metrics.Domain `json:"domain"`
	TargetID                   uuid.UUID      `json:"target_id"`
	Year                       int            `json:"year"`
	Value                      float64        `json:"value"`
	Unit                       string         `json:"unit"`
	BaselineYear               int            `json:"baseline_year"`
	BaselineValue              float64        `json:"baseline_value"`
	TargetYear                 int            `json:"target_year"`
	FinalTargetValue           float64        `json:"final_target_value"`
	ReductionPercentAnnual     float64        `json:"reduction_percent_annual"`
	ReductionPercentCumulative float64        `json:"reduction_percent_cumulative"`
}

// ActualResult is the year-to-date figure of the current year.
type ActualResult struct {
	OrganizationID uuid.UUID                 `json:"organization_id"`
	Domain         metrics.Domain            `json:"domain"`
	Year           int                       `json:"year"`
	Value          float64                   `json:"value"`
	Unit           string                    `json:"unit"`
	ScopeTotals    map[catalog.Scope]float64 `json:"scope_totals,omitempty"`
	MonthsElapsed  int                       `json:"months_elapsed"`
	RecordCount    int                       `json:"record_count"`
	ComputedAt     time.Time                 `json:"computed_at"`
}

// ProjectedResult estimates the current year's final figure: the
// year-to-date actual plus a forecast of the remaining months. Method
// names what produced the remaining-months estimate.
type ProjectedResult struct {
	OrganizationID  uuid.UUID              `json:"organization_id"`
	Domain          metrics.Domain         `json:"domain"`
	Year            int                    `json:"year"`
	Value           float64                `json:"value"`
	Unit            string                 `json:"unit"`
	ActualYTD       float64                `json:"actual_ytd"`
	ForecastValue   float64                `json:"forecast_value"`
	RemainingMonths int                    `json:"remaining_months"`
	Method          string                 `json:"method"`
	Months          []metrics.MonthlyPoint `json:"months,omitempty"`
	ComputedAt      time.Time              `json:"computed_at"`
}

// ProgressResult compares the projection against the year target.
// ReductionNeeded and ReductionAchieved are signed deltas from the
// baseline; for a shrinking domain both are negative.
type ProgressResult struct {
	OrganizationID           uuid.UUID      `json:"organization_id"`
	Domain                   metrics.Domain `json:"domain"`
	Year                     int            `json:"year"`
	Status                   ProgressStatus `json:"status"`
	BaselineValue            float64        `json:"baseline_value"`
	TargetValue              float64        `json:"target_value"`
	ActualYTD                float64        `json:"actual_ytd"`
	ProjectedValue           float64        `json:"projected_value"`
	ProjectionMethod         string         `json:"projection_method"`
	ReductionNeeded          float64        `json:"reduction_needed"`
	ReductionAchieved        float64        `json:"reduction_achieved"`
	ReductionAchievedPercent float64        `json:"reduction_achieved_percent"`
	ProgressPercent          float64        `json:"progress_percent"`
	GapToTarget              float64        `json:"gap_to_target"`
	ComputedAt               time.Time      `json:"computed_at"`
}
