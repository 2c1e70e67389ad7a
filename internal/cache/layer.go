package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blipee/sustainability-engine/internal/config"
)

// Meta describes where a cache hit came from and when the payload was
// computed.
type Meta struct {
	Source     string    `json:"source"`
	ComputedAt time.Time `json:"computed_at"`
}

// Layer combines the in-process memory cache with the persistent store.
// Reads check memory first, then the store, refilling memory on a store
// hit. Every cache failure is logged and swallowed; callers recompute
// instead of failing.
type Layer struct {
	memory *Memory
	store  *Store
	cfg    config.CacheConfig
	logger *zap.Logger
}

// NewLayer creates the combined cache layer.
func NewLayer(memory *Memory, store *Store, cfg config.CacheConfig, logger *zap.Logger) *Layer {
	return &Layer{
		memory: memory,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Key builds a cache key as type:organization:part:part...
func Key(resultType ResultType, organizationID uuid.UUID, parts ...string) string {
	segments := append([]string{string(resultType), organizationID.String()}, parts...)
	return strings.Join(segments, ":")
}

// orgPrefix is the key prefix covering one organization within a type.
func orgPrefix(resultType ResultType, organizationID uuid.UUID) string {
	return string(resultType) + ":" + organizationID.String() + ":"
}

// GetJSON looks up key and unmarshals the payload into dest. The second
// return is false on a miss; lookup errors count as misses.
func (l *Layer) GetJSON(ctx context.Context, key string, dest interface{}) (Meta, bool) {
	if value, ok := l.memory.Get(key); ok {
		if cached, valid := value.(StoredResult); valid {
			if err := json.Unmarshal(cached.Payload, dest); err == nil {
				return Meta{Source: "memory", ComputedAt: cached.ComputedAt}, true
			}
			l.memory.Delete(key)
		}
	}

	stored, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("Cache store read failed", zap.String("key", key), zap.Error(err))
		return Meta{}, false
	}
	if stored == nil {
		return Meta{}, false
	}
	if err := json.Unmarshal(stored.Payload, dest); err != nil {
		l.logger.Warn("Cached payload is unreadable", zap.String("key", key), zap.Error(err))
		return Meta{}, false
	}

	// Refill memory without outliving the stored expiry.
	ttl := time.Until(stored.ExpiresAt)
	if ttl > l.cfg.MemoryTTL {
		ttl = l.cfg.MemoryTTL
	}
	if ttl > 0 {
		l.memory.SetWithTTL(key, *stored, ttl)
	}
	return Meta{Source: "store", ComputedAt: stored.ComputedAt}, true
}

// SetJSON writes a computed value under key to both tiers. Failures are
// logged and swallowed.
func (l *Layer) SetJSON(ctx context.Context, organizationID uuid.UUID, resultType ResultType, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		l.logger.Warn("Failed to marshal cache payload", zap.String("key", key), zap.Error(err))
		return
	}

	now := time.Now().UTC()
	result := StoredResult{
		CacheKey:       key,
		OrganizationID: organizationID,
		ResultType:     resultType,
		Payload:        payload,
		ComputedAt:     now,
		ExpiresAt:      now.Add(l.ttlFor(resultType)),
	}

	memoryTTL := l.cfg.MemoryTTL
	if storeTTL := l.ttlFor(resultType); storeTTL < memoryTTL {
		memoryTTL = storeTTL
	}
	l.memory.SetWithTTL(key, result, memoryTTL)

	if err := l.store.Upsert(ctx, result); err != nil {
		l.logger.Warn("Cache store write failed", zap.String("key", key), zap.Error(err))
	}
}

func (l *Layer) ttlFor(resultType ResultType) time.Duration {
	switch resultType {
	case ResultTypeBaseline:
		return l.cfg.BaselineTTL
	case ResultTypeForecast, ResultTypeAggregation, ResultTypeTrend:
		return l.cfg.ForecastTTL
	}
	return l.cfg.MemoryTTL
}

// Invalidate drops an organization's cached results, optionally limited
// to one result type. It returns the number of persistent rows removed.
func (l *Layer) Invalidate(ctx context.Context, organizationID uuid.UUID, resultType *ResultType) (int64, error) {
	types := AllResultTypes()
	if resultType != nil {
		types = []ResultType{*resultType}
	}

	var removed int64
	for _, t := range types {
		prefix := orgPrefix(t, organizationID)
		l.memory.DeleteByPrefix(prefix)
		n, err := l.store.DeleteByPrefix(ctx, prefix)
		if err != nil {
			return removed, fmt.Errorf("failed to invalidate %s cache: %w", t, err)
		}
		removed += n
	}

	l.logger.Info("Cache invalidated",
		zap.String("organization_id", organizationID.String()),
		zap.Int64("removed", removed))
	return removed, nil
}

// Entries reports the current in-memory entry count.
func (l *Layer) Entries() int {
	return l.memory.Len()
}
