package cache

import (
	"context"
	"fmt"

	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Cache is a tree cache that holds resources
type Cache interface {
	apptaxonomy.TreeCache
	Close() error
}

// TreeCacheFactory builds the tree cache selected by configuration
type TreeCacheFactory struct {
	taxonomy              config.TaxonomyConfig
	redis                 config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// TreeCacheFactoryOption is a functional option for configuring the factory
type TreeCacheFactoryOption func(*TreeCacheFactory)

// WithLogger sets the logger for the factory and the caches it builds
func WithLogger(logger *zap.Logger) TreeCacheFactoryOption {
	return func(f *TreeCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory cache. Default is true.
func WithInMemoryFallback(allow bool) TreeCacheFactoryOption {
	return func(f *TreeCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewTreeCacheFactory creates a new factory
func NewTreeCacheFactory(taxonomy config.TaxonomyConfig, redis config.RedisConfig, opts ...TreeCacheFactoryOption) *TreeCacheFactory {
	f := &TreeCacheFactory{
		taxonomy:              taxonomy,
		redis:                 redis,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the configured cache, or nil when caching is disabled
func (f *TreeCacheFactory) Create(ctx context.Context) (Cache, error) {
	if !f.taxonomy.CacheEnabled {
		return nil, nil
	}

	switch f.taxonomy.CacheBackend {
	case config.CacheBackendRedis:
		c, err := f.CreateRedisCache(ctx)
		if err == nil {
			f.logger.Info("using redis tree cache", zap.String("addr", f.redis.Addr()))
			return c, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis tree cache unavailable: %w", err)
		}
		f.logger.Warn("redis unavailable, falling back to in-memory tree cache", zap.Error(err))
		return f.CreateMemoryCache(), nil
	case config.CacheBackendMemory, "":
		return f.CreateMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown tree cache backend %q", f.taxonomy.CacheBackend)
	}
}

// CreateMemoryCache creates a process-local cache
func (f *TreeCacheFactory) CreateMemoryCache() *MemoryTreeCache {
	return NewMemoryTreeCache(
		WithMemoryTTL(f.taxonomy.CacheTTL),
		WithMemoryLogger(f.logger),
	)
}

// CreateRedisCache connects to Redis and returns a tiered cache whose
// invalidations are broadcast on the configured channel
func (f *TreeCacheFactory) CreateRedisCache(ctx context.Context) (*TieredTreeCache, error) {
	l2, err := NewRedisTreeCache(ctx, f.redis,
		WithRedisTTL(f.taxonomy.CacheTTL),
		WithRedisLogger(f.logger),
	)
	if err != nil {
		return nil, err
	}
	invalidator := NewRedisInvalidator(l2.Client(),
		WithInvalidationChannel(f.taxonomy.CacheChannel),
		WithInvalidatorLogger(f.logger),
	)
	return NewTieredTreeCache(f.CreateMemoryCache(), l2, invalidator, WithTieredLogger(f.logger)), nil
}
