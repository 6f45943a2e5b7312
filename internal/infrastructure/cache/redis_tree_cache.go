package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix     = "newsdesk:taxonomy:"
	defaultScanBatchSize = 100
	defaultDialTimeout   = 5 * time.Second
)

// RedisTreeCache stores display trees as JSON in Redis so every process
// serving the taxonomy shares them.
type RedisTreeCache struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisTreeCacheOption is a functional option for configuring the cache
type RedisTreeCacheOption func(*RedisTreeCache)

// WithKeyPrefix sets the prefix of every key the cache writes
func WithKeyPrefix(prefix string) RedisTreeCacheOption {
	return func(c *RedisTreeCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithRedisTTL sets the TTL used when Set is called with a zero ttl
func WithRedisTTL(ttl time.Duration) RedisTreeCacheOption {
	return func(c *RedisTreeCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisTreeCacheOption {
	return func(c *RedisTreeCache) {
		c.logger = logger
	}
}

// NewRedisClient opens a client for cfg and verifies it with PING
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: defaultDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisTreeCache connects to Redis and returns a cache that owns the client
func NewRedisTreeCache(ctx context.Context, cfg config.RedisConfig, opts ...RedisTreeCacheOption) (*RedisTreeCache, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := NewRedisTreeCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisTreeCacheWithClient creates a cache over an existing client.
// The caller keeps ownership of the client.
func NewRedisTreeCacheWithClient(client *redis.Client, opts ...RedisTreeCacheOption) *RedisTreeCache {
	c := &RedisTreeCache{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultTreeTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisTreeCache) cacheKey(key string) string {
	return c.keyPrefix + key
}

// Get returns the cached tree for key. A corrupt entry is deleted and
// reported as an error.
func (c *RedisTreeCache) Get(ctx context.Context, key string) ([]apptaxonomy.TreeNode, bool, error) {
	cacheKey := c.cacheKey(key)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get tree from cache: %w", err)
	}

	var nodes []apptaxonomy.TreeNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		c.logger.Warn("dropping corrupt tree cache entry", zap.String("key", cacheKey), zap.Error(err))
		_ = c.client.Del(ctx, cacheKey)
		return nil, false, fmt.Errorf("failed to unmarshal cached tree: %w", err)
	}
	return nodes, true, nil
}

// Set stores a tree under key. A zero ttl uses the configured default.
func (c *RedisTreeCache) Set(ctx context.Context, key string, nodes []apptaxonomy.TreeNode, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal tree: %w", err)
	}
	if err := c.client.Set(ctx, c.cacheKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set tree in cache: %w", err)
	}
	c.logger.Debug("cached category tree",
		zap.String("key", c.cacheKey(key)),
		zap.Int("bytes", len(data)),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// Invalidate deletes every key under the prefix
func (c *RedisTreeCache) Invalidate(ctx context.Context) error {
	var (
		cursor  uint64
		deleted int64
	)
	pattern := c.keyPrefix + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan tree cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("failed to delete tree cache keys: %w", err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("invalidated redis category trees",
		zap.String("pattern", pattern),
		zap.Int64("deleted", deleted),
	)
	return nil
}

// Close closes the client when the cache created it
func (c *RedisTreeCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client
func (c *RedisTreeCache) Client() *redis.Client {
	return c.client
}

var _ apptaxonomy.TreeCache = (*RedisTreeCache)(nil)
