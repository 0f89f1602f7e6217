// Package cache is the short-TTL result cache for query results. Keys are a
// canonical form of the query (shape + source scope + parameter hash);
// invalidation is coarse by source. An unreachable cache store degrades to
// miss behavior: the pipeline keeps working uncached.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

const keyPrefix = "jobs"

// SourceAll scopes a query key to all sources; such keys are invalidated by
// every committed write.
const SourceAll = "all"

// Store is a key-value store with expiry and pattern deletes. Get returns
// (nil, nil) on a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Noop is a Store that misses every read and drops every write, used when
// the cache backend is unreachable at startup.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error)              { return nil, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) DeleteByPattern(context.Context, string) error            { return nil }

// ResultCache caches computed query results with a TTL per query shape.
type ResultCache struct {
	store      Store
	defaultTTL time.Duration
	ttls       map[string]time.Duration
	logger     *slog.Logger
}

func New(store Store, defaultTTL time.Duration, ttls map[string]time.Duration, logger *slog.Logger) *ResultCache {
	return &ResultCache{store: store, defaultTTL: defaultTTL, ttls: ttls, logger: logger}
}

// Key builds the canonical cache key. Parameters are sorted so equivalent
// queries share an entry; the source scope is embedded so invalidation can
// target one source without touching the rest.
func Key(shape, sourceID string, params map[string]string) string {
	if sourceID == "" {
		sourceID = SourceAll
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
		sb.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(sb.String()))

	return fmt.Sprintf("%s:%s:src=%s:%s", keyPrefix, shape, sourceID, hex.EncodeToString(sum[:8]))
}

// GetOrCompute returns the cached value for the query, computing and storing
// it on a miss. Store errors are logged and treated as misses.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	shape, sourceID string,
	params map[string]string,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	key := Key(shape, sourceID, params)

	cached, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, computing uncached", "key", key, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, value, c.ttlFor(shape)); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}

	return value, nil
}

// InvalidateSource drops every entry scoped to sourceID and every
// cross-source entry. Called after any committed insert or update.
func (c *ResultCache) InvalidateSource(ctx context.Context, sourceID string) {
	for _, pattern := range []string{
		fmt.Sprintf("%s:*:src=%s:*", keyPrefix, sourceID),
		fmt.Sprintf("%s:*:src=%s:*", keyPrefix, SourceAll),
	} {
		if err := c.store.DeleteByPattern(ctx, pattern); err != nil {
			c.logger.Warn("cache invalidation failed", "pattern", pattern, "error", err)
		}
	}
}

func (c *ResultCache) ttlFor(shape string) time.Duration {
	if ttl, ok := c.ttls[shape]; ok {
		return ttl
	}
	return c.defaultTTL
}
