// Package redis opens the go-redis client used by the redis cache driver and
// exports its connection pool statistics.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Config holds the connection settings.
type Config struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PoolMetrics mirrors go-redis pool statistics into Prometheus.
type PoolMetrics struct {
	Hits       prometheus.Counter
	Misses     prometheus.Counter
	Timeouts   prometheus.Counter
	StaleConns prometheus.Counter
	TotalConns prometheus.Gauge
	IdleConns  prometheus.Gauge
}

// NewPoolMetrics registers the pool metrics on reg. A nil reg uses a private registry.
func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &PoolMetrics{
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbname_redis_pool_hits_total",
			Help: "Number of times a connection was found in the pool",
		}),
		Misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbname_redis_pool_misses_total",
			Help: "Number of times a connection was not found in the pool",
		}),
		Timeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbname_redis_pool_timeouts_total",
			Help: "Number of times a connection was not obtained due to timeout",
		}),
		StaleConns: factory.NewCounter(prometheus.CounterOpts{
			Name: "sbname_redis_pool_stale_conns_total",
			Help: "Number of stale connections removed from the pool",
		}),
		TotalConns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sbname_redis_pool_total_conns",
			Help: "Number of total connections in the pool",
		}),
		IdleConns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sbname_redis_pool_idle_conns",
			Help: "Number of idle connections in the pool",
		}),
	}
}

// Client wraps the go-redis client with health checking.
type Client struct {
	*redis.Client
	metrics   *PoolMetrics
	lastStats *redis.PoolStats
}

// New connects to redis and pings it. metrics may be nil.
func New(ctx context.Context, cfg Config, metrics *PoolMetrics) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client, metrics: metrics}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// RecordPoolStats copies the current pool statistics into the metrics.
func (c *Client) RecordPoolStats() {
	if c.metrics != nil {
		c.lastStats = c.metrics.observe(c.PoolStats(), c.lastStats)
	}
}

// WatchPoolStats records pool statistics every interval until ctx is done.
func (c *Client) WatchPoolStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RecordPoolStats()
		}
	}
}

// observe applies stats, counting deltas since last, and returns stats.
func (m *PoolMetrics) observe(stats, last *redis.PoolStats) *redis.PoolStats {
	m.TotalConns.Set(float64(stats.TotalConns))
	m.IdleConns.Set(float64(stats.IdleConns))

	if last == nil {
		last = &redis.PoolStats{}
	}
	if stats.Hits > last.Hits {
		m.Hits.Add(float64(stats.Hits - last.Hits))
	}
	if stats.Misses > last.Misses {
		m.Misses.Add(float64(stats.Misses - last.Misses))
	}
	if stats.Timeouts > last.Timeouts {
		m.Timeouts.Add(float64(stats.Timeouts - last.Timeouts))
	}
	if stats.StaleConns > last.StaleConns {
		m.StaleConns.Add(float64(stats.StaleConns - last.StaleConns))
	}
	return stats
}
