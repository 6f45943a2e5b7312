package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"go.uber.org/zap"
)

const (
	defaultCleanupInterval = 30 * time.Second
	defaultTreeTTL         = 10 * time.Minute
)

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryTreeCache keeps display trees in process memory.
// It serves single-instance deployments and acts as L1 in front of Redis.
type MemoryTreeCache struct {
	entries sync.Map // map[string]*cacheEntry[[]apptaxonomy.TreeNode]
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// MemoryTreeCacheOption is a functional option for configuring the cache
type MemoryTreeCacheOption func(*MemoryTreeCache)

// WithMemoryTTL sets the TTL used when Set is called with a zero ttl
func WithMemoryTTL(ttl time.Duration) MemoryTreeCacheOption {
	return func(c *MemoryTreeCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMemoryLogger sets the logger for the cache
func WithMemoryLogger(logger *zap.Logger) MemoryTreeCacheOption {
	return func(c *MemoryTreeCache) {
		c.logger = logger
	}
}

// withClock replaces time.Now, used by tests to expire entries
func withClock(now func() time.Time) MemoryTreeCacheOption {
	return func(c *MemoryTreeCache) {
		c.now = now
	}
}

// NewMemoryTreeCache creates an in-memory tree cache and starts its cleanup loop.
// Call Close to stop the loop.
func NewMemoryTreeCache(opts ...MemoryTreeCacheOption) *MemoryTreeCache {
	c := &MemoryTreeCache{
		ttl:    defaultTreeTTL,
		logger: zap.NewNop(),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()
	return c
}

// Get returns the cached tree for key
func (c *MemoryTreeCache) Get(_ context.Context, key string) ([]apptaxonomy.TreeNode, bool, error) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry[[]apptaxonomy.TreeNode])
		if !entry.isExpired(c.now()) {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, true, nil
		}
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, false, nil
}

// Set stores a tree under key. A zero ttl uses the configured default.
func (c *MemoryTreeCache) Set(_ context.Context, key string, nodes []apptaxonomy.TreeNode, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.entries.Store(key, &cacheEntry[[]apptaxonomy.TreeNode]{
		value:     nodes,
		expiresAt: c.now().Add(ttl),
	})
	c.logger.Debug("cached category tree", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// Invalidate drops every cached tree
func (c *MemoryTreeCache) Invalidate(_ context.Context) error {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	c.logger.Debug("invalidated in-memory category trees")
	return nil
}

// Close stops the cleanup loop. It is safe to call more than once.
func (c *MemoryTreeCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// Stats returns hit and miss counters
func (c *MemoryTreeCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryTreeCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *MemoryTreeCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

func (c *MemoryTreeCache) doCleanup() int {
	now := c.now()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry[[]apptaxonomy.TreeNode]).isExpired(now) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("removed expired tree cache entries", zap.Int("removed", removed))
	}
	return removed
}

var _ apptaxonomy.TreeCache = (*MemoryTreeCache)(nil)
