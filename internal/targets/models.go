package targets

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TargetType classifies the time horizon of a reduction target.
type TargetType string

const (
	TargetTypeNearTerm TargetType = "near-term"
	TargetTypeLongTerm TargetType = "long-term"
	TargetTypeNetZero  TargetType = "net-zero"
)

// TargetStatus tracks the lifecycle of a target.
type TargetStatus string

const (
	TargetStatusDraft     TargetStatus = "draft"
	TargetStatusActive    TargetStatus = "active"
	TargetStatusReplanned TargetStatus = "replanned"
	TargetStatusAchieved  TargetStatus = "achieved"
	TargetStatusArchived  TargetStatus = "archived"
)

// Target is a linear emissions reduction commitment. BaselineValue and
// TargetValue are annual figures in the domain unit (tonnes CO2e for
// emissions). The reduction is spread evenly across the years between
// baseline and target year.
type Target struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name                  string         `gorm:"type:varchar(255);not null" json:"name"`
	TargetType            TargetType     `gorm:"type:varchar(50);not null;default:'near-term'" json:"target_type"`
	Domain                string         `gorm:"type:varchar(50);not null;default:'emissions'" json:"domain"`
	Status                TargetStatus   `gorm:"type:varchar(50);not null;default:'draft'" json:"status"`
	BaselineYear          int            `gorm:"not null" json:"baseline_year"`
	BaselineValue         float64        `gorm:"type:decimal(15,2);not null" json:"baseline_value"`
	TargetYear            int            `gorm:"not null" json:"target_year"`
	TargetValue           float64        `gorm:"type:decimal(15,2);not null" json:"target_value"`
	TotalReductionPercent float64        `gorm:"type:decimal(6,2);not null" json:"total_reduction_percent"`
	SBTiValidated         bool           `gorm:"default:false" json:"sbti_validated"`
	SBTiScenario          *string        `gorm:"type:varchar(50)" json:"sbti_scenario,omitempty"`
	Metadata              datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name.
func (Target) TableName() string {
	return "sustainability_targets"
}

// AnnualReductionPercent is the evenly spread yearly reduction implied
// by the target, as a percent of the baseline.
func (t *Target) AnnualReductionPercent() float64 {
	span := t.TargetYear - t.BaselineYear
	if span <= 0 {
		return 0
	}
	return t.TotalReductionPercent / float64(span)
}

// TrajectoryPoint is one month of a replanned reduction path. Month is
// formatted as YYYY-MM.
type TrajectoryPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// TargetMetadata is the JSON blob attached to a target. A replan writes
// the expected monthly trajectory here; projections read it back.
type TargetMetadata struct {
	Trajectory   []TrajectoryPoint `json:"trajectory,omitempty"`
	ReplannedAt  *time.Time        `json:"replanned_at,omitempty"`
	LastReplanID *uuid.UUID        `json:"last_replan_id,omitempty"`
}

// ParseMetadata decodes the target's metadata blob. An absent blob
// yields an empty metadata value.
func (t *Target) ParseMetadata() (*TargetMetadata, error) {
	meta := &TargetMetadata{}
	if len(t.Metadata) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(t.Metadata, meta); err != nil {
		return nil, fmt.Errorf("failed to parse target metadata: %w", err)
	}
	return meta, nil
}

// SetMetadata encodes and attaches a metadata value.
func (t *Target) SetMetadata(meta *TargetMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode target metadata: %w", err)
	}
	t.Metadata = datatypes.JSON(raw)
	return nil
}

// ReplanningHistory records one applied replan of a target. Previous
// and new state are stored whole so a replan can be audited or rolled
// back by hand.
type ReplanningHistory struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TargetID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"target_id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	TriggeredBy    string         `gorm:"type:varchar(255)" json:"triggered_by"`
	Reason         string         `gorm:"type:text" json:"reason"`
	Strategy       string         `gorm:"type:varchar(50);not null" json:"strategy"`
	PreviousState  datatypes.JSON `gorm:"type:jsonb" json:"previous_state"`
	NewState       datatypes.JSON `gorm:"type:jsonb" json:"new_state"`
	AppliedAt      time.Time      `json:"applied_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName overrides the table name.
func (ReplanningHistory) TableName() string {
	return "target_replanning_history"
}

// MetricAllocation is the per-metric share of a replanned target. One
// row per metric per applied replan.
type MetricAllocation struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TargetID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"target_id"`
	ReplanningID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"replanning_id"`
	MetricID             uuid.UUID      `gorm:"type:uuid;not null" json:"metric_id"`
	MetricName           string         `gorm:"type:varchar(255)" json:"metric_name"`
	Category             string         `gorm:"type:varchar(100)" json:"category"`
	AnnualEmissions      float64        `gorm:"type:decimal(15,2)" json:"annual_emissions"`
	ReductionPercent     float64        `gorm:"type:decimal(6,2)" json:"reduction_percent"`
	ReductionTonnes      float64        `gorm:"type:decimal(15,2)" json:"reduction_tonnes"`
	EstimatedCost        float64        `gorm:"type:decimal(15,2)" json:"estimated_cost"`
	ImplementationMonths int            `json:"implementation_months"`
	Initiatives          datatypes.JSON `gorm:"type:jsonb" json:"initiatives,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// TableName overrides the table name.
func (MetricAllocation) TableName() string {
	return "metric_target_allocations"
}

// TargetFilter narrows target listings. Nil fields are ignored.
type TargetFilter struct {
	OrganizationID uuid.UUID
	Status         *TargetStatus
	Domain         *string
	TargetType     *TargetType
}
