package targets

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/metrics"
)

// ErrInvalidTarget is returned for requests that fail validation.
var ErrInvalidTarget = errors.New("invalid target")

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, target *Target) error
	GetByID(ctx context.Context, id uuid.UUID) (*Target, error)
	List(ctx context.Context, filter TargetFilter) ([]Target, error)
	GetActive(ctx context.Context, organizationID uuid.UUID, domain string) (*Target, error)
	Update(ctx context.Context, target *Target) error
	ListHistory(ctx context.Context, targetID uuid.UUID) ([]ReplanningHistory, error)
	ListAllocations(ctx context.Context, targetID uuid.UUID) ([]MetricAllocation, error)
}

// Service owns target lifecycle and pathway alignment checks.
type Service struct {
	store    Store
	pathways *Pathways
	logger   *zap.Logger
}

// NewService creates a new target service.
func NewService(store Store, pathways *Pathways, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		pathways: pathways,
		logger:   logger,
	}
}

// CreateTargetRequest carries the fields of a new target. Exactly one
// of TargetValue and TotalReductionPercent is required; when both are
// present the absolute value wins and the percent is recomputed.
type CreateTargetRequest struct {
	OrganizationID        uuid.UUID  `json:"-"`
	Name                  string     `json:"name"`
	TargetType            TargetType `json:"target_type"`
	Domain                string     `json:"domain"`
	BaselineYear          int        `json:"baseline_year" binding:"required"`
	BaselineValue         float64    `json:"baseline_value" binding:"required"`
	TargetYear            int        `json:"target_year" binding:"required"`
	TargetValue           *float64   `json:"target_value"`
	TotalReductionPercent *float64   `json:"total_reduction_percent"`
	SBTiScenario          *string    `json:"sbti_scenario"`
}

// CreateTarget validates and stores a new target. New targets become
// active immediately.
func (s *Service) CreateTarget(ctx context.Context, req CreateTargetRequest) (*Target, error) {
	if req.Domain == "" {
		req.Domain = string(metrics.DomainEmissions)
	}
	if !metrics.Domain(req.Domain).Valid() {
		return nil, fmt.Errorf("%w: unknown domain %s", ErrInvalidTarget, req.Domain)
	}
	if req.TargetType == "" {
		req.TargetType = TargetTypeNearTerm
	}
	if req.BaselineYear < 2000 || req.BaselineYear > 2100 {
		return nil, fmt.Errorf("%w: baseline year out of range", ErrInvalidTarget)
	}
	if req.TargetYear <= req.BaselineYear {
		return nil, fmt.Errorf("%w: target year must come after baseline year", ErrInvalidTarget)
	}
	if req.BaselineValue <= 0 {
		return nil, fmt.Errorf("%w: baseline value must be positive", ErrInvalidTarget)
	}

	targetValue, percent, err := resolveTargetFigures(req.BaselineValue, req.TargetValue, req.TotalReductionPercent)
	if err != nil {
		return nil, err
	}

	target := &Target{
		OrganizationID:        req.OrganizationID,
		Name:                  req.Name,
		TargetType:            req.TargetType,
		Domain:                req.Domain,
		Status:                TargetStatusActive,
		BaselineYear:          req.BaselineYear,
		BaselineValue:         req.BaselineValue,
		TargetYear:            req.TargetYear,
		TargetValue:           targetValue,
		TotalReductionPercent: percent,
	}
	if target.Name == "" {
		target.Name = fmt.Sprintf("Reduce %s %.0f%% by %d", req.Domain, percent, req.TargetYear)
	}

	if req.SBTiScenario != nil {
		alignment, err := s.CheckAlignment(target, Scenario(*req.SBTiScenario))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		target.SBTiScenario = req.SBTiScenario
		target.SBTiValidated = alignment.Aligned
	}

	if err := s.store.Create(ctx, target); err != nil {
		return nil, err
	}

	s.logger.Info("Target created",
		zap.String("target_id", target.ID.String()),
		zap.String("organization_id", target.OrganizationID.String()),
		zap.Float64("reduction_percent", target.TotalReductionPercent),
		zap.Int("target_year", target.TargetYear))
	return target, nil
}

// resolveTargetFigures reconciles the absolute target value with the
// reduction percent. The absolute value takes precedence.
func resolveTargetFigures(baseline float64, targetValue, reductionPercent *float64) (float64, float64, error) {
	switch {
	case targetValue != nil:
		if *targetValue < 0 || *targetValue > baseline {
			return 0, 0, fmt.Errorf("%w: target value must lie between zero and the baseline", ErrInvalidTarget)
		}
		percent := (baseline - *targetValue) / baseline * 100
		return *targetValue, round2(percent), nil
	case reductionPercent != nil:
		if *reductionPercent <= 0 || *reductionPercent > 100 {
			return 0, 0, fmt.Errorf("%w: reduction percent must lie in (0, 100]", ErrInvalidTarget)
		}
		value := baseline * (1 - *reductionPercent/100)
		return round2(value), *reductionPercent, nil
	default:
		return 0, 0, fmt.Errorf("%w: either target value or reduction percent is required", ErrInvalidTarget)
	}
}

// AlignmentResult compares a target against a pathway scenario.
type AlignmentResult struct {
	Scenario                  Scenario `json:"scenario"`
	RequiredReductionPercent  float64  `json:"required_reduction_percent"`
	CommittedReductionPercent float64  `json:"committed_reduction_percent"`
	Aligned                   bool     `json:"aligned"`
}

// CheckAlignment reports whether a target meets the reduction a
// scenario demands over the same years. Sector-specific pathways are
// not modelled; the cross-sector pathway applies.
func (s *Service) CheckAlignment(target *Target, scenario Scenario) (*AlignmentResult, error) {
	required, err := s.pathways.RequiredReduction(scenario, sectorCrossSector, target.BaselineYear, target.TargetYear)
	if err != nil {
		return nil, err
	}
	return &AlignmentResult{
		Scenario:                  scenario,
		RequiredReductionPercent:  round2(required),
		CommittedReductionPercent: target.TotalReductionPercent,
		Aligned:                   target.TotalReductionPercent >= required-0.01,
	}, nil
}

// GetTarget loads one target.
func (s *Service) GetTarget(ctx context.Context, id uuid.UUID) (*Target, error) {
	return s.store.GetByID(ctx, id)
}

// ListTargets lists an organization's targets.
func (s *Service) ListTargets(ctx context.Context, filter TargetFilter) ([]Target, error) {
	return s.store.List(ctx, filter)
}

// GetHistory lists the replanning history of a target.
func (s *Service) GetHistory(ctx context.Context, targetID uuid.UUID) ([]ReplanningHistory, error) {
	if _, err := s.store.GetByID(ctx, targetID); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, targetID)
}

// GetAllocations lists the current metric allocations of a target.
func (s *Service) GetAllocations(ctx context.Context, targetID uuid.UUID) ([]MetricAllocation, error) {
	if _, err := s.store.GetByID(ctx, targetID); err != nil {
		return nil, err
	}
	return s.store.ListAllocations(ctx, targetID)
}

// Pathways exposes the loaded pathway set.
func (s *Service) Pathways() *Pathways {
	return s.pathways
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
