package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultInvalidationChannel = "newsdesk:taxonomy:invalidate"
	defaultCloseTimeout        = 5 * time.Second
)

// ErrSubscriptionRunning is returned by Subscribe when a subscription is already active
var ErrSubscriptionRunning = errors.New("cache: subscription already running")

// InvalidationMessage announces that the category forest changed
type InvalidationMessage struct {
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"`
}

// RedisInvalidator fans out tree cache invalidations over Redis Pub/Sub so
// every process can drop its local copy.
type RedisInvalidator struct {
	client   *redis.Client
	channel  string
	source   string
	logger   *zap.Logger
	cancelFn context.CancelFunc
	doneCh   chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
	running  bool
}

// RedisInvalidatorOption is a functional option for configuring the invalidator
type RedisInvalidatorOption func(*RedisInvalidator)

// WithInvalidationChannel sets the Pub/Sub channel name
func WithInvalidationChannel(channel string) RedisInvalidatorOption {
	return func(i *RedisInvalidator) {
		if channel != "" {
			i.channel = channel
		}
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) RedisInvalidatorOption {
	return func(i *RedisInvalidator) {
		i.logger = logger
	}
}

// NewRedisInvalidator creates an invalidator over an existing client.
// Each invalidator gets a random source id so it can skip its own messages.
func NewRedisInvalidator(client *redis.Client, opts ...RedisInvalidatorOption) *RedisInvalidator {
	i := &RedisInvalidator{
		client:  client,
		channel: defaultInvalidationChannel,
		source:  uuid.NewString(),
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Source returns the id stamped on messages this invalidator publishes
func (i *RedisInvalidator) Source() string {
	return i.source
}

// Publish announces an invalidation to all subscribers
func (i *RedisInvalidator) Publish(ctx context.Context) error {
	data, err := json.Marshal(InvalidationMessage{
		Source:    i.source,
		Timestamp: time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	i.logger.Debug("published tree cache invalidation", zap.String("channel", i.channel))
	return nil
}

// Subscribe blocks, invoking callback for every message published by another
// source, until ctx is cancelled or Close is called. ready, when non-nil, is
// closed once the subscription is confirmed.
func (i *RedisInvalidator) Subscribe(ctx context.Context, ready chan<- struct{}, callback func(InvalidationMessage)) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return ErrSubscriptionRunning
	}
	i.running = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
		i.markDone()
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", i.channel, err)
	}
	i.logger.Info("subscribed to tree cache invalidations", zap.String("channel", i.channel))
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("tree cache invalidation channel closed")
				return nil
			}

			var m InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				i.logger.Warn("ignoring malformed invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err),
				)
				continue
			}
			if m.Source == i.source {
				continue
			}
			i.dispatch(callback, m)
		}
	}
}

func (i *RedisInvalidator) dispatch(callback func(InvalidationMessage), m InvalidationMessage) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("panic in invalidation callback", zap.Any("panic", r))
		}
	}()
	callback(m)
}

func (i *RedisInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close stops a running subscription and waits for it to exit.
// The client is not closed; its owner does that.
func (i *RedisInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn == nil {
		return nil
	}
	cancelFn()
	select {
	case <-i.doneCh:
	case <-time.After(defaultCloseTimeout):
		i.logger.Warn("timeout waiting for invalidation subscription to stop")
	}
	return nil
}
