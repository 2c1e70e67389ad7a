package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ResultType labels what a cached payload holds.
type ResultType string

const (
	ResultTypeBaseline    ResultType = "baseline"
	ResultTypeForecast    ResultType = "forecast"
	ResultTypeAggregation ResultType = "aggregation"
	ResultTypeTrend       ResultType = "trend"
)

// AllResultTypes returns the known result types.
func AllResultTypes() []ResultType {
	return []ResultType{ResultTypeBaseline, ResultTypeForecast, ResultTypeAggregation, ResultTypeTrend}
}

// StoredResult is one row of the computed_results table.
type StoredResult struct {
	CacheKey       string     `db:"cache_key"`
	OrganizationID uuid.UUID  `db:"organization_id"`
	ResultType     ResultType `db:"result_type"`
	Payload        []byte     `db:"payload"`
	ComputedAt     time.Time  `db:"computed_at"`
	ExpiresAt      time.Time  `db:"expires_at"`
}

// Store persists computed results so warm data survives restarts and is
// shared between instances.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new persistent result store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Get returns the stored result for a key, or nil when the key is
// absent or past its expiry. Expired rows are never returned.
func (s *Store) Get(ctx context.Context, key string) (*StoredResult, error) {
	query := `
		SELECT cache_key, organization_id, result_type, payload, computed_at, expires_at
		FROM computed_results
		WHERE cache_key = $1 AND expires_at > NOW()
	`

	var result StoredResult
	if err := s.db.GetContext(ctx, &result, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached result: %w", err)
	}
	return &result, nil
}

// Upsert writes or replaces a stored result.
func (s *Store) Upsert(ctx context.Context, result StoredResult) error {
	query := `
		INSERT INTO computed_results (cache_key, organization_id, result_type, payload, computed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cache_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			computed_at = EXCLUDED.computed_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		result.CacheKey, result.OrganizationID, result.ResultType,
		result.Payload, result.ComputedAt, result.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to store cached result: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every row whose key starts with prefix and
// returns the number removed.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	query := `DELETE FROM computed_results WHERE cache_key LIKE $1 || '%'`

	res, err := s.db.ExecContext(ctx, query, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cached results: %w", err)
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

// DeleteExpired removes rows past their expiry and returns the number
// removed. The cache worker runs this on a schedule.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM computed_results WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired results: %w", err)
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

// ActiveOrganizations returns the distinct organizations holding live
// cache rows, used by the worker to decide what to keep warm.
func (s *Store) ActiveOrganizations(ctx context.Context, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT organization_id
		FROM computed_results
		WHERE expires_at > NOW()
		ORDER BY organization_id
		LIMIT $1
	`

	ids := []uuid.UUID{}
	if err := s.db.SelectContext(ctx, &ids, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list active organizations: %w", err)
	}
	return ids, nil
}
