package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
)

const (
	DefaultStaleTime    = 5 * time.Minute
	DefaultRetryBackoff = 500 * time.Millisecond
)

// FetchFunc loads the value of a cache key
type FetchFunc func(ctx context.Context) (any, error)

// Config controls freshness and retries
type Config struct {
	StaleTime    time.Duration
	Retries      uint
	RetryBackoff time.Duration
	Logger       *slog.Logger
}

// Cache holds identity scoped query results shared between the controller and views.
// Concurrent fetches of the same key share one in-flight call.
type Cache struct {
	cfg     Config
	entries map[string]*entry
	mu      sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

type entry struct {
	query  *Query
	cancel context.CancelFunc
}

// New creates a cache. Background fetches stop when Close is called.
func New(cfg Config) *Cache {
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultStaleTime
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		cfg:     cfg,
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Fetch returns the pending or fresh query for key, or starts a new fetch in the background
func (c *Cache) Fetch(key string, fn FetchFunc) *Query {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && e.query.fresh(time.Now(), c.cfg.StaleTime) {
		return e.query
	}

	ctx, cancel := context.WithCancel(c.ctx)
	q := newQuery(key)
	c.entries[key] = &entry{query: q, cancel: cancel}

	go c.run(ctx, cancel, q, fn)
	return q
}

// Peek returns the cached query for key without fetching, nil when absent
func (c *Cache) Peek(key string) *Query {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.query
	}
	return nil
}

// Invalidate marks keys stale so the next Fetch reloads them
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if e, ok := c.entries[key]; ok {
			e.query.markStale()
		}
	}
}

// Clear drops every entry and cancels in-flight fetches. Results of detached
// fetches never reach the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
}

// Len returns the number of cached keys
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close cancels all background fetches
func (c *Cache) Close() {
	c.cancel()
	c.Clear()
}

func (c *Cache) run(ctx context.Context, cancel context.CancelFunc, q *Query, fn FetchFunc) {
	defer cancel()

	var (
		data  any
		tries uint
	)
	err := retry.Retry(func(attempt uint) error {
		if tries > 0 {
			c.cfg.Logger.Debug("retrying query", "key", q.key, "attempt", tries+1)
		}
		tries++
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		data = v
		return nil
	},
		func(uint) bool { return tries <= c.cfg.Retries },
		strategy.Backoff(backoff.Exponential(c.cfg.RetryBackoff, 2)),
		func(attempt uint) bool { return ctx.Err() == nil },
	)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		c.cfg.Logger.Warn("query failed", "key", q.key, "error", err)
	}

	q.settle(data, err)
}
