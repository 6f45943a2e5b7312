package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// testHandler records what it receives
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func categoryCreated(id int64) shared.DomainEvent {
	category := &taxonomy.Category{BaseAggregateRoot: shared.NewBaseAggregateRoot(), Name: "World"}
	category.ID = id
	return taxonomy.NewCategoryCreatedEvent(category)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches by type in order", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		created := newTestHandler(taxonomy.EventTypeCategoryCreated)
		deleted := newTestHandler(taxonomy.EventTypeCategoryDeleted)
		bus.Subscribe(created)
		bus.Subscribe(deleted)

		e1 := categoryCreated(1)
		e2 := categoryCreated(2)
		require.NoError(t, bus.Publish(ctx, e1, e2))

		assert.Equal(t, []shared.DomainEvent{e1, e2}, created.getHandled())
		assert.Empty(t, deleted.getHandled())
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler(taxonomy.EventTypeCategoryDeleted)
		bus.Subscribe(handler, taxonomy.EventTypeCategoryCreated)

		require.NoError(t, bus.Publish(ctx, categoryCreated(1)))
		assert.Len(t, handler.getHandled(), 1)
	})

	t.Run("wildcard", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		wildcard := newTestHandler()
		bus.Subscribe(wildcard)

		require.NoError(t, bus.Publish(ctx,
			categoryCreated(1),
			taxonomy.NewNewsCategoriesSyncedEvent(9, []int64{1}, nil),
		))
		assert.Len(t, wildcard.getHandled(), 2)
	})

	t.Run("handler errors and panics do not stop delivery", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))

		failing := newTestHandler(taxonomy.EventTypeCategoryCreated)
		failing.err = errors.New("cache down")
		panicking := newTestHandler(taxonomy.EventTypeCategoryCreated)
		panicking.panicWith = "boom"
		healthy := newTestHandler(taxonomy.EventTypeCategoryCreated)
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, categoryCreated(1)))
		assert.Len(t, healthy.getHandled(), 1)
		assert.Equal(t, 2, logs.FilterMessage("handler failed to process event").Len())

		published, failed := bus.Stats()
		assert.Equal(t, int64(1), published)
		assert.Equal(t, int64(2), failed)
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler(taxonomy.EventTypeCategoryCreated)
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(ctx, categoryCreated(1)))
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(ctx, categoryCreated(2)))

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())
	assert.False(t, bus.Running())

	require.NoError(t, bus.Start(ctx))
	assert.True(t, bus.Running())

	require.NoError(t, bus.Stop(ctx))
	assert.False(t, bus.Running())
}
