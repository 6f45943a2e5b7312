package cache

import (
	"context"
	"sync/atomic"
	"time"

	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"go.uber.org/zap"
)

const defaultL1TTL = 30 * time.Second

// TieredTreeCache reads through a local L1 into a shared Redis L2.
// Invalidate clears both tiers and tells the other processes to clear
// their L1 over Pub/Sub.
type TieredTreeCache struct {
	l1          *MemoryTreeCache
	l2          *RedisTreeCache
	invalidator *RedisInvalidator
	l1TTL       time.Duration
	logger      *zap.Logger

	l1Hits int64
	l2Hits int64
	misses int64
}

// TieredTreeCacheOption is a functional option for configuring the cache
type TieredTreeCacheOption func(*TieredTreeCache)

// WithL1TTL caps how long a tree stays in the local tier
func WithL1TTL(ttl time.Duration) TieredTreeCacheOption {
	return func(c *TieredTreeCache) {
		if ttl > 0 {
			c.l1TTL = ttl
		}
	}
}

// WithTieredLogger sets the logger for the cache
func WithTieredLogger(logger *zap.Logger) TieredTreeCacheOption {
	return func(c *TieredTreeCache) {
		c.logger = logger
	}
}

// NewTieredTreeCache combines the tiers. invalidator may be nil for a single process.
func NewTieredTreeCache(l1 *MemoryTreeCache, l2 *RedisTreeCache, invalidator *RedisInvalidator, opts ...TieredTreeCacheOption) *TieredTreeCache {
	c := &TieredTreeCache{
		l1:          l1,
		l2:          l2,
		invalidator: invalidator,
		l1TTL:       defaultL1TTL,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartInvalidationSubscription blocks while listening for invalidations
// from other processes. Run it in a goroutine.
func (c *TieredTreeCache) StartInvalidationSubscription(ctx context.Context, ready chan<- struct{}) error {
	if c.invalidator == nil {
		if ready != nil {
			close(ready)
		}
		return nil
	}
	return c.invalidator.Subscribe(ctx, ready, func(msg InvalidationMessage) {
		if err := c.l1.Invalidate(context.Background()); err != nil {
			c.logger.Warn("failed to clear local tree cache", zap.Error(err))
			return
		}
		c.logger.Debug("cleared local tree cache on remote invalidation", zap.String("source", msg.Source))
	})
}

// Get checks L1 then L2, copying L2 hits into L1
func (c *TieredTreeCache) Get(ctx context.Context, key string) ([]apptaxonomy.TreeNode, bool, error) {
	if nodes, ok, _ := c.l1.Get(ctx, key); ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return nodes, true, nil
	}

	nodes, ok, err := c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}

	atomic.AddInt64(&c.l2Hits, 1)
	_ = c.l1.Set(ctx, key, nodes, c.l1TTL)
	return nodes, true, nil
}

// Set writes both tiers. L1 keeps the entry for at most the L1 TTL.
func (c *TieredTreeCache) Set(ctx context.Context, key string, nodes []apptaxonomy.TreeNode, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, nodes, ttl); err != nil {
		return err
	}
	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	return c.l1.Set(ctx, key, nodes, l1TTL)
}

// Invalidate clears both tiers and notifies the other processes
func (c *TieredTreeCache) Invalidate(ctx context.Context) error {
	_ = c.l1.Invalidate(ctx)
	if err := c.l2.Invalidate(ctx); err != nil {
		return err
	}
	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx); err != nil {
			c.logger.Warn("failed to publish tree cache invalidation", zap.Error(err))
		}
	}
	return nil
}

// Stats returns the per-tier hit counters and the miss counter
func (c *TieredTreeCache) Stats() (l1Hits, l2Hits, misses int64) {
	return atomic.LoadInt64(&c.l1Hits), atomic.LoadInt64(&c.l2Hits), atomic.LoadInt64(&c.misses)
}

// Close stops the subscription and releases both tiers
func (c *TieredTreeCache) Close() error {
	if c.invalidator != nil {
		_ = c.invalidator.Close()
	}
	_ = c.l1.Close()
	return c.l2.Close()
}

var _ apptaxonomy.TreeCache = (*TieredTreeCache)(nil)
