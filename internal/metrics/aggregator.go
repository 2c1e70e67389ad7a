package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"blipee/sustainability-engine/internal/catalog"
	"blipee/sustainability-engine/pkg/units"
)

// Store is the record access the aggregator needs.
type Store interface {
	FetchAll(ctx context.Context, filter RecordFilter) ([]ActivityRecord, error)
	SiteNames(ctx context.Context, organizationID uuid.UUID) (map[uuid.UUID]string, error)
}

// Aggregator computes domain totals, monthly series and breakdowns from
// raw activity records.
type Aggregator struct {
	store   Store
	catalog *catalog.Catalog
	logger  *zap.Logger
	now     func() time.Time
}

// NewAggregator creates a new aggregator.
func NewAggregator(store Store, cat *catalog.Catalog, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:   store,
		catalog: cat,
		logger:  logger,
		now:     time.Now,
	}
}

// ===== Fetching =====

// domainMetricIDs resolves the catalog metrics belonging to a domain.
// A nil result means no metric filter applies (emissions covers all).
func (a *Aggregator) domainMetricIDs(domain Domain) []uuid.UUID {
	if domain == DomainEmissions {
		return nil
	}
	ids := []uuid.UUID{}
	for _, def := range a.catalog.Definitions() {
		if domain.Matches(def) {
			ids = append(ids, def.ID)
		}
	}
	return ids
}

// fetchDomainRecords reads every record of a domain in the period,
// already stripped of future months.
func (a *Aggregator) fetchDomainRecords(ctx context.Context, organizationID uuid.UUID, domain Domain, start, end time.Time) ([]ActivityRecord, error) {
	metricIDs := a.domainMetricIDs(domain)
	if domain != DomainEmissions && len(metricIDs) == 0 {
		return nil, nil
	}

	records, err := a.store.FetchAll(ctx, RecordFilter{
		OrganizationID: organizationID,
		MetricIDs:      metricIDs,
		PeriodStart:    &start,
		PeriodEnd:      &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", domain, err)
	}

	cutoff := firstOfNextMonth(a.now().UTC())
	kept := records[:0]
	for _, record := range records {
		if record.PeriodStart.Before(cutoff) {
			kept = append(kept, record)
		}
	}
	return kept, nil
}

// recordValue converts one record to its domain figure. Emissions come
// back in tonnes CO2e; the second return is false when the record
// carries nothing for the domain.
func recordValue(domain Domain, record ActivityRecord) (float64, bool) {
	if domain == DomainEmissions {
		if record.CO2eEmissions == nil {
			return 0, false
		}
		return units.KgToTonnes(*record.CO2eEmissions), true
	}
	return record.Value, true
}

// ===== Totals =====

// PeriodTotal aggregates one domain over a period. Emission subtotals
// are rounded per scope to one decimal in tonnes before the scope sums
// are added and rounded again, so the reported total always equals the
// sum of its reported parts.
func (a *Aggregator) PeriodTotal(ctx context.Context, organizationID uuid.UUID, domain Domain, start, end time.Time) (DomainTotal, error) {
	total := DomainTotal{
		Domain:      domain,
		Unit:        domain.Unit(),
		PeriodStart: start,
		PeriodEnd:   end,
	}

	records, err := a.fetchDomainRecords(ctx, organizationID, domain, start, end)
	if err != nil {
		return DomainTotal{}, err
	}

	if domain == DomainEmissions {
		scopeSums := map[catalog.Scope]float64{}
		for _, record := range records {
			value, ok := recordValue(domain, record)
			if !ok {
				continue
			}
			def, found := a.catalog.ByID(record.MetricID)
			if !found {
				a.logger.Warn("Record references uncatalogued metric",
					zap.String("record_id", record.ID.String()),
					zap.String("metric_id", record.MetricID.String()))
				continue
			}
			scopeSums[def.Scope] += value
			total.RecordCount++
		}

		total.ScopeTotals = make(map[catalog.Scope]float64, len(scopeSums))
		sum := 0.0
		for _, scope := range []catalog.Scope{catalog.Scope1, catalog.Scope2, catalog.Scope3} {
			rounded := round1(scopeSums[scope])
			total.ScopeTotals[scope] = rounded
			sum += rounded
		}
		total.Total = round1(sum)
		return total, nil
	}

	sum := 0.0
	for _, record := range records {
		value, ok := recordValue(domain, record)
		if !ok {
			continue
		}
		sum += value
		total.RecordCount++
	}
	total.Total = roundDomain(domain, sum)
	return total, nil
}

// ===== Monthly series =====

// MonthlySeries buckets a domain into calendar months between the first
// and last month carrying data, zero-filling gaps. Months duplicated by
// re-submitted records count the newest record per metric, site and
// month only.
func (a *Aggregator) MonthlySeries(ctx context.Context, organizationID uuid.UUID, domain Domain, start, end time.Time) ([]MonthlyPoint, error) {
	records, err := a.fetchDomainRecords(ctx, organizationID, domain, start, end)
	if err != nil {
		return nil, err
	}
	return a.bucketMonthly(domain, records), nil
}

func (a *Aggregator) bucketMonthly(domain Domain, records []ActivityRecord) []MonthlyPoint {
	sums := map[time.Time]float64{}
	seen := map[string]bool{}
	var first, last time.Time

	for _, record := range records {
		value, ok := recordValue(domain, record)
		if !ok {
			continue
		}
		month := monthOf(record.PeriodStart)

		// Records arrive newest-first within a month, so the first
		// occurrence of a key is the latest submission.
		key := dedupKey(record, month)
		if seen[key] {
			continue
		}
		seen[key] = true

		sums[month] += value
		if first.IsZero() || month.Before(first) {
			first = month
		}
		if last.IsZero() || month.After(last) {
			last = month
		}
	}

	if first.IsZero() {
		return []MonthlyPoint{}
	}

	series := []MonthlyPoint{}
	for month := first; !month.After(last); month = month.AddDate(0, 1, 0) {
		series = append(series, MonthlyPoint{Month: month, Value: roundDomain(domain, sums[month])})
	}
	return series
}

func dedupKey(record ActivityRecord, month time.Time) string {
	site := "none"
	if record.SiteID != nil {
		site = record.SiteID.String()
	}
	return record.MetricID.String() + "|" + site + "|" + month.Format("2006-01")
}

// EnergyMixSeries splits the energy domain into renewable and fossil
// monthly series from one record fetch. Either series may be empty when
// the organization has no consumption of that kind.
func (a *Aggregator) EnergyMixSeries(ctx context.Context, organizationID uuid.UUID, start, end time.Time) (renewable, fossil []MonthlyPoint, err error) {
	records, err := a.fetchDomainRecords(ctx, organizationID, DomainEnergy, start, end)
	if err != nil {
		return nil, nil, err
	}

	var renewableRecords, fossilRecords []ActivityRecord
	for _, record := range records {
		def, found := a.catalog.ByID(record.MetricID)
		if !found {
			continue
		}
		if def.IsRenewable {
			renewableRecords = append(renewableRecords, record)
		} else {
			fossilRecords = append(fossilRecords, record)
		}
	}

	return a.bucketMonthly(DomainEnergy, renewableRecords), a.bucketMonthly(DomainEnergy, fossilRecords), nil
}

// ===== Breakdowns =====

// CategoryBreakdown splits a domain total across catalog categories,
// largest first.
func (a *Aggregator) CategoryBreakdown(ctx context.Context, organizationID uuid.UUID, domain Domain, start, end time.Time) ([]CategoryTotal, error) {
	records, err := a.fetchDomainRecords(ctx, organizationID, domain, start, end)
	if err != nil {
		return nil, err
	}

	sums := map[string]float64{}
	for _, record := range records {
		value, ok := recordValue(domain, record)
		if !ok {
			continue
		}
		def, found := a.catalog.ByID(record.MetricID)
		if !found {
			continue
		}
		sums[def.Category] += value
	}

	// Round parts first, then total the rounded parts, so percentages
	// are shares of the figure the caller actually sees.
	total := 0.0
	rounded := make(map[string]float64, len(sums))
	for category, value := range sums {
		rounded[category] = roundDomain(domain, value)
		total += rounded[category]
	}

	breakdown := make([]CategoryTotal, 0, len(rounded))
	for category, value := range rounded {
		entry := CategoryTotal{Category: category, Value: value}
		if total > 0 {
			entry.Percentage = round1(value / total * 100)
		}
		breakdown = append(breakdown, entry)
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Value > breakdown[j].Value })
	return breakdown, nil
}

// SiteBreakdown splits a domain total across sites, largest first.
// Records without a site land in an "Unassigned" bucket. Missing site
// names are tolerated; the id stands in.
func (a *Aggregator) SiteBreakdown(ctx context.Context, organizationID uuid.UUID, domain Domain, start, end time.Time) ([]SiteTotal, error) {
	records, err := a.fetchDomainRecords(ctx, organizationID, domain, start, end)
	if err != nil {
		return nil, err
	}

	names, err := a.store.SiteNames(ctx, organizationID)
	if err != nil {
		a.logger.Warn("Failed to load site names", zap.Error(err))
		names = map[uuid.UUID]string{}
	}

	sums := map[uuid.UUID]float64{}
	for _, record := range records {
		value, ok := recordValue(domain, record)
		if !ok {
			continue
		}
		var site uuid.UUID
		if record.SiteID != nil {
			site = *record.SiteID
		}
		sums[site] += value
	}

	total := 0.0
	rounded := make(map[uuid.UUID]float64, len(sums))
	for site, value := range sums {
		rounded[site] = roundDomain(domain, value)
		total += rounded[site]
	}

	breakdown := make([]SiteTotal, 0, len(rounded))
	for site, value := range rounded {
		name := names[site]
		if name == "" {
			if site == uuid.Nil {
				name = "Unassigned"
			} else {
				name = site.String()
			}
		}
		entry := SiteTotal{SiteID: site, SiteName: name, Value: value}
		if total > 0 {
			entry.Percentage = round1(value / total * 100)
		}
		breakdown = append(breakdown, entry)
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Value > breakdown[j].Value })
	return breakdown, nil
}

// ===== Snapshot =====

// SnapshotAll computes the totals of every reporting domain for the
// period concurrently.
func (a *Aggregator) SnapshotAll(ctx context.Context, organizationID uuid.UUID, start, end time.Time) (*Snapshot, error) {
	snapshot := &Snapshot{
		OrganizationID: organizationID,
		PeriodStart:    start,
		PeriodEnd:      end,
		Domains:        make(map[Domain]DomainTotal, len(AllDomains())),
		GeneratedAt:    a.now().UTC(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, domain := range AllDomains() {
		g.Go(func() error {
			total, err := a.PeriodTotal(gctx, organizationID, domain, start, end)
			if err != nil {
				return err
			}
			mu.Lock()
			snapshot.Domains[domain] = total
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// ===== Helpers =====

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// roundDomain applies a domain's reporting precision. Water and waste
// report whole units; everything else one decimal.
func roundDomain(domain Domain, v float64) float64 {
	if domain == DomainWater || domain == DomainWaste {
		return math.Round(v)
	}
	return round1(v)
}

func monthOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func firstOfNextMonth(t time.Time) time.Time {
	return monthOf(t).AddDate(0, 1, 0)
}
