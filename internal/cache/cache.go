// Package cache memoizes finished reports outside the core pipeline. The
// core stays unaware of caching; keys are derived from the data source
// modification signature plus the filter parameters, so a changed CSV can
// never serve a stale join.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian/commerce-insights/internal/config"
	"github.com/meridian/commerce-insights/internal/metrics"
	"github.com/meridian/commerce-insights/internal/pkg/logger"
)

// ReportCache is a Redis-backed memoization layer for comprehensive reports.
// When disabled, or when Redis is unreachable at startup, every lookup
// misses and every store is a no-op; callers need no fallback branches.
type ReportCache struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
}

// New probes Redis once at initialization. An unreachable Redis downgrades
// the cache to the documented no-cache fallback instead of failing startup.
func New(ctx context.Context, cfg config.CacheConfig) *ReportCache {
	if !cfg.Enabled {
		return &ReportCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(probeCtx).Err(); err != nil {
		logger.Warn("redis unreachable, running without report cache",
			"addr", cfg.RedisAddr, "error", err)
		client.Close()
		return &ReportCache{}
	}

	logger.Info("report cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.TTL())
	return &ReportCache{client: client, ttl: cfg.TTL(), enabled: true}
}

// Enabled reports whether lookups can hit.
func (c *ReportCache) Enabled() bool { return c.enabled }

// Close releases the Redis connection if one exists.
func (c *ReportCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Key builds the cache key for a report: source signature + analysis window.
func Key(signature string, year int, month *int, comparisonYear *int) string {
	m := 0
	if month != nil {
		m = *month
	}
	cy := 0
	if comparisonYear != nil {
		cy = *comparisonYear
	}
	return fmt.Sprintf("report:%s:%d:%d:%d", signature, year, m, cy)
}

// GetReport returns a cached report, or (nil, false) on miss or any error.
// Cache errors are logged and treated as misses.
func (c *ReportCache) GetReport(ctx context.Context, key string) (*metrics.Report, bool) {
	if !c.enabled {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("report cache get failed", "key", key, "error", err)
		return nil, false
	}

	var report metrics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		logger.Warn("report cache held malformed entry", "key", key, "error", err)
		return nil, false
	}
	return &report, true
}

// SetReport stores a report under key with the configured TTL. Failures are
// logged and absorbed.
func (c *ReportCache) SetReport(ctx context.Context, key string, report *metrics.Report) {
	if !c.enabled {
		return
	}

	data, err := json.Marshal(report)
	if err != nil {
		logger.Warn("report cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("report cache set failed", "key", key, "error", err)
	}
}
