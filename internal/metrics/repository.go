package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// fetchPageSize bounds every read of activity data. Full reads walk
// pages of this size until a short page arrives, so no query depends on
// the store returning an unbounded result set.
const fetchPageSize = 1000

// Repository provides read access to activity records.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new metrics repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func buildRecordWhere(filter RecordFilter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("organization_id = $%d", argIdx))
	args = append(args, filter.OrganizationID)
	argIdx++

	if filter.SiteID != nil {
		conditions = append(conditions, fmt.Sprintf("site_id = $%d", argIdx))
		args = append(args, *filter.SiteID)
		argIdx++
	}

	if len(filter.MetricIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("metric_id = ANY($%d)", argIdx))
		args = append(args, pq.Array(filter.MetricIDs))
		argIdx++
	}

	if filter.PeriodStart != nil {
		conditions = append(conditions, fmt.Sprintf("period_start >= $%d", argIdx))
		args = append(args, *filter.PeriodStart)
		argIdx++
	}

	if filter.PeriodEnd != nil {
		conditions = append(conditions, fmt.Sprintf("period_start <= $%d", argIdx))
		args = append(args, *filter.PeriodEnd)
		argIdx++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// Count returns the number of records matching the filter.
func (r *Repository) Count(ctx context.Context, filter RecordFilter) (int, error) {
	where, args := buildRecordWhere(filter)
	query := "SELECT COUNT(*) FROM metrics_data " + where

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count activity records: %w", err)
	}
	return count, nil
}

// ListPage returns one page of records matching the filter, ordered by
// period start ascending and creation time descending so the newest
// record of a duplicated month comes first.
func (r *Repository) ListPage(ctx context.Context, filter RecordFilter) ([]ActivityRecord, error) {
	where, args := buildRecordWhere(filter)

	limit := filter.Limit
	if limit <= 0 || limit > fetchPageSize {
		limit = fetchPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT id, organization_id, metric_id, site_id, period_start, period_end,
		       value, unit, co2e_emissions, data_quality, verification_status,
		       created_at, updated_at
		FROM metrics_data
		%s
		ORDER BY period_start ASC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	records := []ActivityRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list activity records: %w", err)
	}
	return records, nil
}

// FetchAll reads every record matching the filter by walking fixed-size
// pages. The caller's Limit and Offset are ignored.
func (r *Repository) FetchAll(ctx context.Context, filter RecordFilter) ([]ActivityRecord, error) {
	all := []ActivityRecord{}
	page := filter
	page.Limit = fetchPageSize
	page.Offset = 0

	for {
		records, err := r.ListPage(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) < fetchPageSize {
			return all, nil
		}
		page.Offset += fetchPageSize
	}
}

// SiteNames returns the display names of an organization's sites keyed
// by site id.
func (r *Repository) SiteNames(ctx context.Context, organizationID uuid.UUID) (map[uuid.UUID]string, error) {
	query := `SELECT id, name FROM sites WHERE organization_id = $1`

	rows := []struct {
		ID   uuid.UUID `db:"id"`
		Name string    `db:"name"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, organizationID); err != nil {
		return nil, fmt.Errorf("failed to load site names: %w", err)
	}

	names := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}
