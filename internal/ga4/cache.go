package ga4

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
	"github.com/ignite/ga-deep-dive/internal/telemetry"
)

const cacheKeyPrefix = "ga-report:cache:"

// CachedRunner keeps successful runReport responses in Redis for a TTL.
// Redis failures are logged and treated as misses. Realtime calls are
// never cached.
type CachedRunner struct {
	next    Runner
	rdb     *redis.Client
	ttl     time.Duration
	metrics *telemetry.Metrics
}

// NewCachedRunner wraps next. A zero ttl disables caching.
func NewCachedRunner(next Runner, rdb *redis.Client, ttl time.Duration, metrics *telemetry.Metrics) *CachedRunner {
	return &CachedRunner{next: next, rdb: rdb, ttl: ttl, metrics: metrics}
}

func (c *CachedRunner) RunReport(ctx context.Context, propertyID string, q Query) (*Result, error) {
	if c.rdb == nil || c.ttl <= 0 {
		return c.next.RunReport(ctx, propertyID, q)
	}

	key := cacheKey(propertyID, q)
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var res Result
		if jerr := json.Unmarshal(data, &res); jerr == nil {
			c.metrics.Cache(true)
			return &res, nil
		}
		logger.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn("cache read failed", "err", err)
	}
	c.metrics.Cache(false)

	res, err := c.next.RunReport(ctx, propertyID, q)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(res); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Warn("cache write failed", "err", err)
		}
	}
	return res, nil
}

func (c *CachedRunner) RunRealtimeReport(ctx context.Context, propertyID string, q Query) (*Result, error) {
	return c.next.RunRealtimeReport(ctx, propertyID, q)
}

func cacheKey(propertyID string, q Query) string {
	data, _ := json.Marshal(struct {
		Property string
		Query    Query
	}{propertyID, q})
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + propertyID + ":" + hex.EncodeToString(sum[:16])
}
