package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"medinauts/internal/platform/config"
)

// poolCounters maps the cumulative pool statistics exported as counters.
var poolCounters = []struct {
	name, help string
	value      func(*redis.PoolStats) uint32
}{
	{"hits_total", "Connections found in the pool", func(s *redis.PoolStats) uint32 { return s.Hits }},
	{"misses_total", "Connections not found in the pool", func(s *redis.PoolStats) uint32 { return s.Misses }},
	{"timeouts_total", "Connections not obtained because of a pool timeout", func(s *redis.PoolStats) uint32 { return s.Timeouts }},
	{"stale_conns_total", "Stale connections removed from the pool", func(s *redis.PoolStats) uint32 { return s.StaleConns }},
}

type poolMetrics struct {
	counters   []prometheus.Counter
	totalConns prometheus.Gauge
	idleConns  prometheus.Gauge
}

func newPoolMetrics(reg prometheus.Registerer) *poolMetrics {
	factory := promauto.With(reg)
	m := &poolMetrics{
		totalConns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medinauts_redis_pool_total_conns",
			Help: "Connections currently in the session store pool",
		}),
		idleConns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medinauts_redis_pool_idle_conns",
			Help: "Idle connections in the session store pool",
		}),
	}
	for _, c := range poolCounters {
		m.counters = append(m.counters, factory.NewCounter(prometheus.CounterOpts{
			Name: "medinauts_redis_pool_" + c.name,
			Help: c.help,
		}))
	}
	return m
}

// Client wraps the go-redis client backing the intake session store.
type Client struct {
	*redis.Client
	metrics   *poolMetrics
	lastStats *redis.PoolStats
}

// Option configures a Client.
type Option func(*Client)

// WithRegisterer registers the pool metrics on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = newPoolMetrics(reg)
	}
}

// New creates a new Redis client from the provided configuration.
// Returns nil if the URL is empty (Redis not configured).
func New(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	redisOpts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	redisOpts.PoolSize = cfg.PoolSize
	redisOpts.MinIdleConns = cfg.MinIdleConns
	redisOpts.DialTimeout = cfg.DialTimeout
	redisOpts.ReadTimeout = cfg.ReadTimeout
	redisOpts.WriteTimeout = cfg.WriteTimeout

	c := &Client{Client: redis.NewClient(redisOpts)}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newPoolMetrics(prometheus.DefaultRegisterer)
	}

	if err := c.Ping(ctx).Err(); err != nil {
		c.Client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return c, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}

// RecordPoolStats exports the current pool statistics. Counters advance by
// the delta since the previous call.
func (c *Client) RecordPoolStats() {
	stats := c.PoolStats()
	c.metrics.totalConns.Set(float64(stats.TotalConns))
	c.metrics.idleConns.Set(float64(stats.IdleConns))

	for i, pc := range poolCounters {
		cur, prev := pc.value(stats), uint32(0)
		if c.lastStats != nil {
			prev = pc.value(c.lastStats)
		}
		if cur > prev {
			c.metrics.counters[i].Add(float64(cur - prev))
		}
	}
	c.lastStats = stats
}

// ReportPoolStats records pool statistics every interval until ctx is done.
func (c *Client) ReportPoolStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		c.RecordPoolStats()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
