package targets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTargetNotFound is returned when a target does not exist or is
// soft-deleted.
var ErrTargetNotFound = errors.New("target not found")

// Repository persists targets, replanning history and allocations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new target repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new target.
func (r *Repository) Create(ctx context.Context, target *Target) error {
	if err := r.db.WithContext(ctx).Create(target).Error; err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	return nil
}

// GetByID loads a target by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Target, error) {
	var target Target
	err := r.db.WithContext(ctx).First(&target, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to load target: %w", err)
	}
	return &target, nil
}

// List returns the targets matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter TargetFilter) ([]Target, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ?", filter.OrganizationID).
		Order("created_at DESC")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Domain != nil {
		query = query.Where("domain = ?", *filter.Domain)
	}
	if filter.TargetType != nil {
		query = query.Where("target_type = ?", *filter.TargetType)
	}

	var targets []Target
	if err := query.Find(&targets).Error; err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	return targets, nil
}

// GetActive returns the newest active target of an organization for a
// domain.
func (r *Repository) GetActive(ctx context.Context, organizationID uuid.UUID, domain string) (*Target, error) {
	var target Target
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND domain = ? AND status = ?", organizationID, domain, TargetStatusActive).
		Order("created_at DESC").
		First(&target).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to load active target: %w", err)
	}
	return &target, nil
}

// Update saves changed target fields.
func (r *Repository) Update(ctx context.Context, target *Target) error {
	if err := r.db.WithContext(ctx).Save(target).Error; err != nil {
		return fmt.Errorf("failed to update target: %w", err)
	}
	return nil
}

// ApplyReplan updates the target, records the replanning history entry
// and replaces the metric allocations in a single transaction. Either
// everything lands or nothing does. It returns the history entry id.
func (r *Repository) ApplyReplan(ctx context.Context, target *Target, history *ReplanningHistory, allocations []MetricAllocation) (uuid.UUID, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target.UpdatedAt = time.Now().UTC()
		if err := tx.Save(target).Error; err != nil {
			return fmt.Errorf("failed to update target: %w", err)
		}

		history.TargetID = target.ID
		history.OrganizationID = target.OrganizationID
		if history.AppliedAt.IsZero() {
			history.AppliedAt = time.Now().UTC()
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record replanning history: %w", err)
		}

		if err := tx.Where("target_id = ?", target.ID).Delete(&MetricAllocation{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous allocations: %w", err)
		}
		for i := range allocations {
			allocations[i].TargetID = target.ID
			allocations[i].ReplanningID = history.ID
		}
		if len(allocations) > 0 {
			if err := tx.Create(&allocations).Error; err != nil {
				return fmt.Errorf("failed to store allocations: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return history.ID, nil
}

// ListHistory returns the replanning history of a target, newest first.
func (r *Repository) ListHistory(ctx context.Context, targetID uuid.UUID) ([]ReplanningHistory, error) {
	var history []ReplanningHistory
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("applied_at DESC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list replanning history: %w", err)
	}
	return history, nil
}

// ListAllocations returns the current metric allocations of a target.
func (r *Repository) ListAllocations(ctx context.Context, targetID uuid.UUID) ([]MetricAllocation, error) {
	var allocations []MetricAllocation
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("reduction_tonnes DESC").
		Find(&allocations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	return allocations, nil
}
