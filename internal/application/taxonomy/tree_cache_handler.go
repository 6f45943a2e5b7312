package taxonomy

import (
	"context"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"go.uber.org/zap"
)

// TreeCacheInvalidationHandler drops cached display trees whenever a committed
// category change alters names, status or shape of the forest.
type TreeCacheInvalidationHandler struct {
	cache  TreeCache
	logger *zap.Logger
}

// NewTreeCacheInvalidationHandler creates a new handler for category change events
func NewTreeCacheInvalidationHandler(cache TreeCache, logger *zap.Logger) *TreeCacheInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeCacheInvalidationHandler{
		cache:  cache,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *TreeCacheInvalidationHandler) EventTypes() []string {
	return taxonomy.CategoryEventTypes
}

// Handle invalidates the tree cache
func (h *TreeCacheInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Error("failed to invalidate category tree cache",
			zap.String("event_type", event.EventType()),
			zap.Int64("category_id", event.AggregateID()),
			zap.Error(err),
		)
		return err
	}

	h.logger.Debug("category tree cache invalidated",
		zap.String("event_type", event.EventType()),
		zap.Int64("category_id", event.AggregateID()),
	)
	return nil
}

var _ shared.EventHandler = (*TreeCacheInvalidationHandler)(nil)
