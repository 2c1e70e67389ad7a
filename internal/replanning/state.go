package replanning

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"blipee/sustainability-engine/internal/catalog"
	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/pkg/units"
)

// stateBuilder derives the per-metric annual emissions picture from raw
// activity records.
type stateBuilder struct {
	records metrics.Store
	catalog *catalog.Catalog
}

// build reads the trailing twelve complete months and sums emissions
// per metric. Metrics without CO2e figures are left out; a reduction
// plan can only move what is measured.
func (b *stateBuilder) build(ctx context.Context, organizationID uuid.UUID, now time.Time) (*CurrentState, error) {
	windowEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowStart := windowEnd.AddDate(-1, 0, 0)
	lastIncluded := windowEnd.AddDate(0, 0, -1)

	records, err := b.records.FetchAll(ctx, metrics.RecordFilter{
		OrganizationID: organizationID,
		PeriodStart:    &windowStart,
		PeriodEnd:      &lastIncluded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load trailing year records: %w", err)
	}

	type accumulator struct {
		def   catalog.MetricDefinition
		total float64
	}
	byMetric := map[uuid.UUID]*accumulator{}
	seen := map[string]bool{}

	for _, record := range records {
		if record.CO2eEmissions == nil || record.PeriodStart.Before(windowStart) || !record.PeriodStart.Before(windowEnd) {
			continue
		}
		def, ok := b.catalog.ByID(record.MetricID)
		if !ok {
			continue
		}

		month := record.PeriodStart.UTC().Format("2006-01")
		site := "none"
		if record.SiteID != nil {
			site = record.SiteID.String()
		}
		key := record.MetricID.String() + "|" + site + "|" + month
		if seen[key] {
			continue
		}
		seen[key] = true

		acc := byMetric[record.MetricID]
		if acc == nil {
			acc = &accumulator{def: def}
			byMetric[record.MetricID] = acc
		}
		acc.total += units.KgToTonnes(*record.CO2eEmissions)
	}

	state := &CurrentState{
		OrganizationID: organizationID,
		WindowStart:    windowStart,
		WindowEnd:      lastIncluded,
	}
	for metricID, acc := range byMetric {
		annual := round2(acc.total)
		if annual <= 0 {
			continue
		}
		assumption := b.catalog.Assumption(acc.def.Category)
		state.Metrics = append(state.Metrics, MetricState{
			MetricID:             metricID,
			MetricName:           acc.def.Name,
			Category:             acc.def.Category,
			AnnualEmissions:      annual,
			CostPerTonne:         assumption.CostPerTonne,
			ImplementationMonths: assumption.ImplementationMonths,
		})
		state.TotalAnnual += annual
	}
	state.TotalAnnual = round2(state.TotalAnnual)

	// Largest emitters first; ties settle on the id for stable output.
	sort.Slice(state.Metrics, func(i, j int) bool {
		if state.Metrics[i].AnnualEmissions != state.Metrics[j].AnnualEmissions {
			return state.Metrics[i].AnnualEmissions > state.Metrics[j].AnnualEmissions
		}
		return state.Metrics[i].MetricID.String() < state.Metrics[j].MetricID.String()
	})
	return state, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
