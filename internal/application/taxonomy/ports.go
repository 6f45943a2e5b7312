package taxonomy

import (
	"context"
	"time"

	"github.com/newsdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TreeCache stores materialized display trees between requests.
// Entries are dropped explicitly through Invalidate after a committed write.
type TreeCache interface {
	Get(ctx context.Context, key string) ([]TreeNode, bool, error)
	Set(ctx context.Context, key string, nodes []TreeNode, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Metrics receives the integrity signals emitted by the services
type Metrics interface {
	IDsDropped(ctx context.Context, side string, count int)
	CycleRejected(ctx context.Context)
	SyncCompleted(ctx context.Context, side string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) IDsDropped(context.Context, string, int)              {}
func (noopMetrics) CycleRejected(context.Context)                        {}
func (noopMetrics) SyncCompleted(context.Context, string, time.Duration) {}

// publishCommitted hands events to the publisher once the transaction that
// produced them has committed. Publish failures are logged, not returned:
// the write already happened.
func publishCommitted(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events []shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}
