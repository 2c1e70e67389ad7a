package replanning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"blipee/sustainability-engine/internal/cache"
	"blipee/sustainability-engine/internal/catalog"
	"blipee/sustainability-engine/internal/config"
	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/targets"
)

// TargetStore is the slice of target persistence a replan needs.
type TargetStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*targets.Target, error)
	ApplyReplan(ctx context.Context, target *targets.Target, history *targets.ReplanningHistory, allocations []targets.MetricAllocation) (uuid.UUID, error)
}

// CacheInvalidator drops cached results an applied replan makes stale.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, organizationID uuid.UUID, resultType *cache.ResultType) (int64, error)
}

// Service computes reduction plans against an active target and,
// unless asked for a dry run, commits them.
type Service struct {
	targets   TargetStore
	state     *stateBuilder
	catalog   *catalog.Catalog
	optimizer *OptimizerClient
	cache     CacheInvalidator
	cfg       config.ReplanningConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a replanning service.
func NewService(targetStore TargetStore, records metrics.Store, cat *catalog.Catalog, optimizer *OptimizerClient, invalidator CacheInvalidator, cfg config.ReplanningConfig, logger *zap.Logger) *Service {
	return &Service{
		targets:   targetStore,
		state:     &stateBuilder{records: records, catalog: cat},
		catalog:   cat,
		optimizer: optimizer,
		cache:     invalidator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ===== Replan =====

// Replan builds a new reduction plan for the target. The trailing
// twelve complete months define the current state; the request picks
// the objective and the allocation strategy. Unless DryRun is set the
// resulting plan replaces the target's committed figures atomically.
func (s *Service) Replan(ctx context.Context, targetID uuid.UUID, req ReplanRequest) (*ReplanResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	target, err := s.targets.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Status != targets.TargetStatusActive {
		return nil, fmt.Errorf("%w: target is %s, only active targets can be replanned", ErrInvalidReplan, target.Status)
	}

	now := s.now().UTC()
	state, err := s.state.build(ctx, target.OrganizationID, now)
	if err != nil {
		return nil, err
	}
	if len(state.Metrics) == 0 {
		return nil, ErrNoActivity
	}

	goal, err := resolveGoal(req, target, now.Year())
	if err != nil {
		return nil, err
	}

	result := &ReplanResult{
		TargetID:               target.ID,
		OrganizationID:         target.OrganizationID,
		Strategy:               req.Strategy,
		RequestedStrategy:      req.Strategy,
		CurrentAnnualEmissions: state.TotalAnnual,
		TargetAnnualEmissions:  round2(goal.targetAnnual),
		TargetYear:             goal.targetYear,
		GeneratedAt:            now,
	}

	requiredTonnes := state.TotalAnnual - goal.targetAnnual
	if requiredTonnes <= allocationEpsilon {
		result.FeasibilityScore = 1
		result.Confidence = ConfidenceHigh
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Current annual emissions of %.1f t already meet the %.1f t objective; nothing to reallocate",
				state.TotalAnnual, goal.targetAnnual))
		return result, nil
	}
	result.RequiredReductionTonnes = round2(requiredTonnes)
	result.RequiredReductionPercent = round2(requiredTonnes / state.TotalAnnual * 100)

	allocatable := allocatableState(state, req.ExcludedMetricIDs)
	if len(allocatable.Metrics) == 0 {
		return nil, fmt.Errorf("%w: every metric with emissions is excluded", ErrInvalidReplan)
	}

	strategy := req.Strategy
	var outcome allocationOutcome
	if strategy == StrategyAIRecommended {
		recommended, aiErr := s.recommendedAllocations(ctx, allocatable, requiredTonnes, req.MaxMetricReduction)
		if aiErr == nil {
			outcome, aiErr = allocateCustom(allocatable, recommended)
		}
		if aiErr != nil {
			s.logger.Warn("Optimizer recommendation unavailable, falling back to cost optimization",
				zap.String("target_id", target.ID.String()),
				zap.Error(aiErr))
			result.Warnings = append(result.Warnings, "Optimizer unavailable; allocations fall back to cost optimization")
			strategy = StrategyCostOptimized
		}
	}
	if strategy != StrategyAIRecommended {
		outcome, err = runAllocation(allocatable, requiredTonnes, strategy, req.CustomAllocations, req.MaxMetricReduction)
		if err != nil {
			return nil, err
		}
	}
	result.Strategy = strategy

	attachInitiatives(s.catalog, outcome.allocations)
	result.Allocations = outcome.allocations
	result.AchievedReductionTonnes = outcome.achieved
	result.Warnings = append(result.Warnings, outcome.warnings...)
	if strategy == StrategyCustom && outcome.achieved+allocationEpsilon < requiredTonnes {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Custom allocations cover %.1f t of the %.1f t required", outcome.achieved, requiredTonnes))
	}

	avgPercent := averageReductionPercent(outcome)
	result.Confidence = confidenceFor(avgPercent)
	result.FeasibilityScore = feasibilityScore(avgPercent, outcome.achieved, requiredTonnes)
	result.Trajectory = buildTrajectory(state.TotalAnnual, goal.targetAnnual, now, goal.targetYear)

	runs := s.cfg.MonteCarloRuns
	if req.MonteCarloRuns != nil {
		runs = *req.MonteCarloRuns
	}
	if runs > 0 {
		seed := now.UnixNano()
		if req.Seed != nil {
			seed = *req.Seed
		}
		result.Uncertainty, err = runSimulation(ctx, simulation{
			currentAnnual: state.TotalAnnual,
			targetAnnual:  goal.targetAnnual,
			allocations:   outcome.allocations,
			runs:          runs,
			workers:       s.cfg.MonteCarloWorkers,
			seed:          seed,
		})
		if err != nil {
			return nil, err
		}
	}

	if req.DryRun {
		s.logger.Info("Replan computed",
			zap.String("target_id", target.ID.String()),
			zap.String("strategy", string(strategy)),
			zap.Float64("required_tonnes", result.RequiredReductionTonnes),
			zap.Bool("applied", false))
		return result, nil
	}

	replanID, err := s.apply(ctx, target, goal, result, req, now)
	if err != nil {
		return nil, err
	}
	result.Applied = true
	result.ReplanID = &replanID
	s.invalidateCaches(ctx, target.OrganizationID)

	s.logger.Info("Replan applied",
		zap.String("target_id", target.ID.String()),
		zap.String("replan_id", replanID.String()),
		zap.String("strategy", string(strategy)),
		zap.Float64("required_tonnes", result.RequiredReductionTonnes))
	return result, nil
}

// ===== Strategy resolution =====

// recommendedAllocations asks the optimizer for per-metric shares and
// returns them keyed by metric id, clamped to the caller's cap.
func (s *Service) recommendedAllocations(ctx context.Context, state *CurrentState, requiredTonnes float64, userCap *float64) (map[string]float64, error) {
	if s.optimizer == nil || !s.optimizer.Enabled() {
		return nil, fmt.Errorf("optimizer is not configured")
	}

	optReq := OptimizeRequest{
		OrganizationID:          state.OrganizationID.String(),
		RequiredReductionTonnes: round2(requiredTonnes),
		Metrics:                 make([]OptimizeMetric, 0, len(state.Metrics)),
	}
	for _, m := range state.Metrics {
		optReq.Metrics = append(optReq.Metrics, OptimizeMetric{
			ID:                   m.MetricID.String(),
			Category:             m.Category,
			AnnualEmissions:      m.AnnualEmissions,
			CostPerTonne:         m.CostPerTonne,
			ImplementationMonths: m.ImplementationMonths,
		})
	}

	resp, err := s.optimizer.Optimize(ctx, optReq)
	if err != nil {
		return nil, err
	}
	recommended := make(map[string]float64, len(resp.Allocations))
	for _, a := range resp.Allocations {
		percent := a.ReductionPercent
		if userCap != nil && percent > *userCap {
			percent = *userCap
		}
		recommended[a.MetricID] = percent
	}
	return recommended, nil
}

// allocatableState removes excluded metrics. The organization total
// keeps every metric; exclusion only shields a metric from cuts.
func allocatableState(state *CurrentState, excluded []uuid.UUID) *CurrentState {
	if len(excluded) == 0 {
		return state
	}
	skip := make(map[uuid.UUID]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}

	filtered := &CurrentState{
		OrganizationID: state.OrganizationID,
		WindowStart:    state.WindowStart,
		WindowEnd:      state.WindowEnd,
	}
	for _, m := range state.Metrics {
		if skip[m.MetricID] {
			continue
		}
		filtered.Metrics = append(filtered.Metrics, m)
		filtered.TotalAnnual += m.AnnualEmissions
	}
	filtered.TotalAnnual = round2(filtered.TotalAnnual)
	return filtered
}

// ===== Plan grading =====

// averageReductionPercent is the emissions weighted mean cut across
// the allocated metrics.
func averageReductionPercent(outcome allocationOutcome) float64 {
	var current float64
	for _, a := range outcome.allocations {
		current += a.CurrentAnnual
	}
	if current <= 0 {
		return 0
	}
	return outcome.achieved / current * 100
}

// feasibilityScore grades a plan. Cuts averaging at most half of each
// allocated metric score full marks; deeper plans lose points
// linearly, and a plan that could not cover its requirement is scaled
// down by the shortfall.
func feasibilityScore(avgPercent, achieved, required float64) float64 {
	score := 1.0
	if avgPercent > 50 {
		score = 1 - (avgPercent-50)/50
		if score < 0 {
			score = 0
		}
	}
	if required > 0 && achieved+allocationEpsilon < required {
		score *= achieved / required
	}
	return round2(score)
}

// ===== Commit =====

// apply commits the plan: the target moves to the new objective, a
// history entry captures both states, and the stored allocations are
// replaced, all in one transaction.
func (s *Service) apply(ctx context.Context, target *targets.Target, goal replanGoal, result *ReplanResult, req ReplanRequest, now time.Time) (uuid.UUID, error) {
	previous, err := stateSnapshot(target)
	if err != nil {
		return uuid.Nil, err
	}

	historyID := uuid.New()
	target.TargetValue = round2(goal.targetAnnual)
	target.TargetYear = goal.targetYear
	if target.BaselineValue > 0 {
		target.TotalReductionPercent = round2((target.BaselineValue - target.TargetValue) / target.BaselineValue * 100)
	}

	meta, err := target.ParseMetadata()
	if err != nil {
		s.logger.Warn("Replacing unreadable target metadata",
			zap.String("target_id", target.ID.String()),
			zap.Error(err))
		meta = &targets.TargetMetadata{}
	}
	meta.Trajectory = result.Trajectory
	meta.ReplannedAt = &now
	meta.LastReplanID = &historyID
	if err := target.SetMetadata(meta); err != nil {
		return uuid.Nil, err
	}

	next, err := stateSnapshot(target)
	if err != nil {
		return uuid.Nil, err
	}

	history := &targets.ReplanningHistory{
		ID:            historyID,
		TriggeredBy:   req.TriggeredBy,
		Reason:        req.Reason,
		Strategy:      string(result.Strategy),
		PreviousState: previous,
		NewState:      next,
		AppliedAt:     now,
	}

	rows := make([]targets.MetricAllocation, 0, len(result.Allocations))
	for _, a := range result.Allocations {
		initiatives, err := json.Marshal(a.Initiatives)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to encode initiatives: %w", err)
		}
		rows = append(rows, targets.MetricAllocation{
			MetricID:             a.MetricID,
			MetricName:           a.MetricName,
			Category:             a.Category,
			AnnualEmissions:      a.CurrentAnnual,
			ReductionPercent:     a.ReductionPercent,
			ReductionTonnes:      a.ReductionTonnes,
			EstimatedCost:        a.EstimatedCost,
			ImplementationMonths: a.ImplementationMonths,
			Initiatives:          datatypes.JSON(initiatives),
		})
	}

	return s.targets.ApplyReplan(ctx, target, history, rows)
}

// stateSnapshot captures the audit-relevant fields of a target.
func stateSnapshot(target *targets.Target) (datatypes.JSON, error) {
	snapshot := map[string]interface{}{
		"target_value":            target.TargetValue,
		"target_year":             target.TargetYear,
		"total_reduction_percent": target.TotalReductionPercent,
		"status":                  target.Status,
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode target snapshot: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// invalidateCaches drops derived results made stale by the new plan.
// Cache trouble never fails a replan.
func (s *Service) invalidateCaches(ctx context.Context, organizationID uuid.UUID) {
	if s.cache == nil {
		return
	}
	for _, resultType := range []cache.ResultType{cache.ResultTypeForecast, cache.ResultTypeTrend, cache.ResultTypeAggregation} {
		rt := resultType
		if _, err := s.cache.Invalidate(ctx, organizationID, &rt); err != nil {
			s.logger.Warn("Failed to invalidate cache after replan",
				zap.String("result_type", string(rt)),
				zap.Error(err))
		}
	}
}
