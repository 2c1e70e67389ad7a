package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/replanning"
	"blipee/sustainability-engine/internal/targets"
)

const (
	sheetAllocations = "Allocations"
	sheetTrajectory  = "Trajectory"
	sheetInitiatives = "Initiatives"
	sheetHistory     = "History"
)

// PlanStore is the target access the plan builder needs. The targets
// repository satisfies it.
type PlanStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*targets.Target, error)
	ListAllocations(ctx context.Context, targetID uuid.UUID) ([]targets.MetricAllocation, error)
	ListHistory(ctx context.Context, targetID uuid.UUID) ([]targets.ReplanningHistory, error)
}

// PlanReport is the exportable state of a reduction target: the target
// itself, its replanned monthly trajectory, the per-metric allocations
// and the replan audit trail. Allocation and trajectory sections are
// empty for a target that was never replanned.
type PlanReport struct {
	Target      *targets.Target             `json:"target"`
	Trajectory  []targets.TrajectoryPoint   `json:"trajectory"`
	Allocations []targets.MetricAllocation  `json:"allocations"`
	History     []targets.ReplanningHistory `json:"history"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

// Filename returns the attachment name for the plan workbook.
func (r *PlanReport) Filename() string {
	return fmt.Sprintf("reduction-plan-%d.xlsx", r.Target.TargetYear)
}

// Unit is the reporting unit of the target's domain.
func (r *PlanReport) Unit() string {
	return metrics.Domain(r.Target.Domain).Unit()
}

// PlanBuilder assembles plan reports from the target store.
type PlanBuilder struct {
	store PlanStore
	now   func() time.Time
}

// NewPlanBuilder creates a plan builder.
func NewPlanBuilder(store PlanStore) *PlanBuilder {
	return &PlanBuilder{store: store, now: time.Now}
}

// Plan gathers everything known about one target.
func (b *PlanBuilder) Plan(ctx context.Context, targetID uuid.UUID) (*PlanReport, error) {
	target, err := b.store.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	meta, err := target.ParseMetadata()
	if err != nil {
		return nil, err
	}

	allocations, err := b.store.ListAllocations(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}
	history, err := b.store.ListHistory(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load replan history: %w", err)
	}

	return &PlanReport{
		Target:      target,
		Trajectory:  meta.Trajectory,
		Allocations: allocations,
		History:     history,
		GeneratedAt: b.now().UTC(),
	}, nil
}

// ===== Workbook =====

// WritePlan renders the plan and writes the workbook to w.
func (e *ExcelExporter) WritePlan(plan *PlanReport, w io.Writer) error {
	file, err := e.ExportPlan(plan)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write plan workbook: %w", err)
	}
	return nil
}

// ExportPlan renders the plan into a workbook. The caller owns the
// file and must close it.
func (e *ExcelExporter) ExportPlan(plan *PlanReport) (*excelize.File, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}

	styles, err := e.buildStyles(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	e.writePlanSummary(file, plan, styles)

	tables := []struct {
		name  string
		table sheetTable
	}{
		{sheetAllocations, allocationTable(plan)},
		{sheetTrajectory, trajectoryTable(plan)},
		{sheetInitiatives, initiativeTable(plan)},
		{sheetHistory, historyTable(plan)},
	}
	for _, t := range tables {
		if err := e.writeTable(file, t.name, t.table, styles); err != nil {
			file.Close()
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	return file, nil
}

func (e *ExcelExporter) writePlanSummary(file *excelize.File, plan *PlanReport, styles excelStyles) {
	target := plan.Target
	unit := plan.Unit()

	file.SetCellValue(sheetSummary, "A1", fmt.Sprintf("Reduction Plan %d", target.TargetYear))
	file.SetCellStyle(sheetSummary, "A1", "A1", styles.title)

	row := 3
	writePair := func(label string, value interface{}, numeric bool) {
		labelCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		file.SetCellValue(sheetSummary, labelCell, label)
		file.SetCellStyle(sheetSummary, labelCell, labelCell, styles.label)
		file.SetCellValue(sheetSummary, valueCell, value)
		if numeric {
			file.SetCellStyle(sheetSummary, valueCell, valueCell, styles.number)
		}
		row++
	}

	writePair("Target", target.Name, false)
	writePair("Organization", target.OrganizationID.String(), false)
	writePair("Domain", target.Domain, false)
	writePair("Type", string(target.TargetType), false)
	writePair("Status", string(target.Status), false)
	writePair("Baseline year", target.BaselineYear, false)
	writePair(fmt.Sprintf("Baseline (%s)", unit), target.BaselineValue, true)
	writePair("Target year", target.TargetYear, false)
	writePair(fmt.Sprintf("Target (%s)", unit), target.TargetValue, true)
	writePair("Total reduction (%)", target.TotalReductionPercent, true)
	writePair("Annual reduction (%)", target.AnnualReductionPercent(), true)
	if target.SBTiValidated {
		writePair("SBTi validated", "yes", false)
	}
	if target.SBTiScenario != nil {
		writePair("SBTi scenario", *target.SBTiScenario, false)
	}

	if meta, err := target.ParseMetadata(); err == nil && meta.ReplannedAt != nil {
		writePair("Replanned at", meta.ReplannedAt.Format("2006-01-02 15:04 UTC"), false)
	}

	row++
	writePair("Generated at", plan.GeneratedAt.Format("2006-01-02 15:04 UTC"), false)

	file.SetColWidth(sheetSummary, "A", "A", 24)
	file.SetColWidth(sheetSummary, "B", "B", 38)
}

// ===== Plan sheets =====

func allocationTable(plan *PlanReport) sheetTable {
	unit := plan.Unit()
	table := sheetTable{
		headers: []string{
			"Metric", "Category",
			fmt.Sprintf("Annual (%s)", unit),
			"Reduction (%)",
			fmt.Sprintf("Reduction (%s)", unit),
			"Estimated cost", "Months",
		},
		numeric: []bool{false, false, true, true, true, true, false},
	}
	for _, allocation := range plan.Allocations {
		table.rows = append(table.rows, []interface{}{
			allocation.MetricName,
			allocation.Category,
			allocation.AnnualEmissions,
			allocation.ReductionPercent,
			allocation.ReductionTonnes,
			allocation.EstimatedCost,
			allocation.ImplementationMonths,
		})
	}
	return table
}

func trajectoryTable(plan *PlanReport) sheetTable {
	table := sheetTable{
		headers: []string{"Month", fmt.Sprintf("Planned (%s)", plan.Unit())},
		numeric: []bool{false, true},
	}
	for _, point := range plan.Trajectory {
		table.rows = append(table.rows, []interface{}{point.Month, point.Value})
	}
	return table
}

func initiativeTable(plan *PlanReport) sheetTable {
	table := sheetTable{
		headers: []string{"Metric", "Initiative", "Type", "Risk", "ROI (years)"},
		numeric: []bool{false, false, false, false, true},
	}
	for _, allocation := range plan.Allocations {
		if len(allocation.Initiatives) == 0 {
			continue
		}
		var initiatives []replanning.Initiative
		if err := json.Unmarshal(allocation.Initiatives, &initiatives); err != nil {
			continue
		}
		for _, initiative := range initiatives {
			table.rows = append(table.rows, []interface{}{
				allocation.MetricName,
				initiative.Name,
				initiative.Type,
				initiative.RiskLevel,
				initiative.ROIYears,
			})
		}
	}
	return table
}

func historyTable(plan *PlanReport) sheetTable {
	table := sheetTable{
		headers: []string{"Applied at", "Strategy", "Triggered by", "Reason"},
		numeric: []bool{false, false, false, false},
	}
	for _, entry := range plan.History {
		table.rows = append(table.rows, []interface{}{
			entry.AppliedAt.Format("2006-01-02 15:04"),
			entry.Strategy,
			entry.TriggeredBy,
			entry.Reason,
		})
	}
	return table
}
