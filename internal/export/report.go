package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"blipee/sustainability-engine/internal/calculator"
	"blipee/sustainability-engine/internal/catalog"
	"blipee/sustainability-engine/internal/forecast"
	"blipee/sustainability-engine/internal/metrics"
	"blipee/sustainability-engine/internal/targets"
)

// SeriesSource yields the aggregated figures a report is built from.
// The metrics aggregator satisfies it.
type SeriesSource interface {
	PeriodTotal(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, start, end time.Time) (metrics.DomainTotal, error)
	MonthlySeries(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, start, end time.Time) ([]metrics.MonthlyPoint, error)
	CategoryBreakdown(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, start, end time.Time) ([]metrics.CategoryTotal, error)
	SiteBreakdown(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, start, end time.Time) ([]metrics.SiteTotal, error)
}

// ProgressSource yields the target standing attached to current-year
// reports. The calculator satisfies it.
type ProgressSource interface {
	Progress(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain) (*calculator.ProgressResult, error)
}

// AnnualReport carries everything the exporters render for one
// organization, domain and calendar year. Progress is nil when the
// domain has no active target or the year is not the current one.
type AnnualReport struct {
	OrganizationID uuid.UUID                  `json:"organization_id"`
	Domain         metrics.Domain             `json:"domain"`
	Year           int                        `json:"year"`
	Unit           string                     `json:"unit"`
	Total          float64                    `json:"total"`
	RecordCount    int                        `json:"record_count"`
	ScopeTotals    map[catalog.Scope]float64  `json:"scope_totals,omitempty"`
	Monthly        []metrics.MonthlyPoint     `json:"monthly"`
	Categories     []metrics.CategoryTotal    `json:"categories"`
	Sites          []metrics.SiteTotal        `json:"sites"`
	Progress       *calculator.ProgressResult `json:"progress,omitempty"`
	GeneratedAt    time.Time                  `json:"generated_at"`
}

// Filename returns the attachment name for the report in the given
// format extension.
func (r *AnnualReport) Filename(ext string) string {
	return fmt.Sprintf("%s-report-%d.%s", r.Domain, r.Year, ext)
}

// Builder assembles annual reports from the aggregation and calculator
// layers.
type Builder struct {
	series   SeriesSource
	progress ProgressSource

	now func() time.Time
}

// NewBuilder creates a report builder.
func NewBuilder(series SeriesSource, progress ProgressSource) *Builder {
	return &Builder{
		series:   series,
		progress: progress,
		now:      time.Now,
	}
}

// Annual gathers the figures of one calendar year. A non-positive year
// means the current one. The four aggregates are fetched concurrently.
func (b *Builder) Annual(ctx context.Context, organizationID uuid.UUID, domain metrics.Domain, year int) (*AnnualReport, error) {
	now := b.now().UTC()
	if year <= 0 {
		year = now.Year()
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	report := &AnnualReport{
		OrganizationID: organizationID,
		Domain:         domain,
		Year:           year,
		Unit:           domain.Unit(),
		GeneratedAt:    now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := b.series.PeriodTotal(gctx, organizationID, domain, start, end)
		if err != nil {
			return fmt.Errorf("failed to total year: %w", err)
		}
		report.Total = total.Total
		report.RecordCount = total.RecordCount
		report.ScopeTotals = total.ScopeTotals
		return nil
	})
	g.Go(func() error {
		monthly, err := b.series.MonthlySeries(gctx, organizationID, domain, start, end)
		if err != nil {
			return fmt.Errorf("failed to build monthly series: %w", err)
		}
		report.Monthly = monthly
		return nil
	})
	g.Go(func() error {
		categories, err := b.series.CategoryBreakdown(gctx, organizationID, domain, start, end)
		if err != nil {
			return fmt.Errorf("failed to break down categories: %w", err)
		}
		report.Categories = categories
		return nil
	})
	g.Go(func() error {
		sites, err := b.series.SiteBreakdown(gctx, organizationID, domain, start, end)
		if err != nil {
			return fmt.Errorf("failed to break down sites: %w", err)
		}
		report.Sites = sites
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A report for a past year has nothing to project against, and an
	// organization without a target or enough history still gets its
	// raw figures.
	if year == now.Year() {
		progress, err := b.progress.Progress(ctx, organizationID, domain)
		switch {
		case err == nil:
			report.Progress = progress
		case errors.Is(err, targets.ErrTargetNotFound):
		case errors.Is(err, forecast.ErrInsufficientHistory):
		default:
			return nil, fmt.Errorf("failed to compute progress: %w", err)
		}
	}

	return report, nil
}
