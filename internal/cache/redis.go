// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connection settings for the shared recommendation cache.
const (
	redisDialTimeout = 5 * time.Second
	redisIOTimeout   = 3 * time.Second
	redisPoolSize    = 10
	redisScanBatch   = 100
)

// DefaultPrefix namespaces keys when Config.Prefix is empty.
const DefaultPrefix = "soil:"

// RedisCache stores entries in Redis under a key prefix so several
// instances share recommendation lists and invalidate them together.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	closed     atomic.Bool
	counters
}

// counters tracks hit statistics for backends that cannot count items.
type counters struct {
	hits, misses, sets atomic.Int64
}

func (c *counters) snapshot() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{Hits: hits, Misses: misses, Sets: c.sets.Load(), HitRate: hitRate(hits, misses)}
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
}

// NewRedisCache connects to cfg.RedisURL and verifies it with PING.
func NewRedisCache(cfg Config) (*RedisCache, error) {
	if cfg.RedisURL == "" {
		return nil, errors.New("redis URL is required")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = redisPoolSize
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = redisIOTimeout
	opts.WriteTimeout = redisIOTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	c := &RedisCache{client: client, prefix: cfg.Prefix, defaultTTL: cfg.DefaultTTL}
	if c.prefix == "" {
		c.prefix = DefaultPrefix
	}
	if c.defaultTTL <= 0 {
		c.defaultTTL = time.Hour
	}
	return c, nil
}

func (c *RedisCache) live() error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return nil
}

// Get implements Cacher.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.live(); err != nil {
		return nil, err
	}

	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		return nil, ErrCacheMiss
	case err != nil:
		return nil, err
	}
	c.hits.Add(1)
	return val, nil
}

// Set implements Cacher. A non-positive ttl uses the default.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.live(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return err
	}
	c.sets.Add(1)
	return nil
}

// Delete implements Cacher.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.live(); err != nil {
		return err
	}
	return c.client.Unlink(ctx, c.prefix+key).Err()
}

// DeleteByPrefix implements Cacher. prefix is relative to the cache prefix.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := c.live(); err != nil {
		return err
	}
	return c.unlinkMatching(ctx, c.prefix+prefix+"*")
}

// Clear implements Cacher. Keys outside the cache prefix are left alone.
func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.live(); err != nil {
		return err
	}
	return c.unlinkMatching(ctx, c.prefix+"*")
}

// unlinkMatching walks the keyspace with SCAN and frees matches with UNLINK.
func (c *RedisCache) unlinkMatching(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, redisScanBatch).Iterator()
	batch := make([]string, 0, redisScanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == redisScanBatch {
			if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Unlink(ctx, batch...).Err()
	}
	return nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.live(); err != nil {
		return err
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the connection pool. Later calls are no-ops.
func (c *RedisCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.client.Close()
	}
	return nil
}

// Stats implements StatsProvider. Items is always zero for Redis.
func (c *RedisCache) Stats() Stats { return c.snapshot() }

// ResetStats implements StatsProvider.
func (c *RedisCache) ResetStats() { c.reset() }

var (
	_ Cacher        = (*RedisCache)(nil)
	_ StatsProvider = (*RedisCache)(nil)
)
