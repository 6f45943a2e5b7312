package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
)

// EventSerializer converts domain events to JSON and back.
// Deserialization needs the concrete type registered under its event type.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]reflect.Type),
	}
}

// NewTaxonomyEventSerializer returns a serializer that knows every category and news event
func NewTaxonomyEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(taxonomy.EventTypeCategoryCreated, &taxonomy.CategoryCreatedEvent{})
	s.Register(taxonomy.EventTypeCategoryUpdated, &taxonomy.CategoryUpdatedEvent{})
	s.Register(taxonomy.EventTypeCategoryParentsChanged, &taxonomy.CategoryParentsChangedEvent{})
	s.Register(taxonomy.EventTypeCategoryStatusChanged, &taxonomy.CategoryStatusChangedEvent{})
	s.Register(taxonomy.EventTypeCategoryDeleted, &taxonomy.CategoryDeletedEvent{})
	s.Register(taxonomy.EventTypeNewsCreated, &taxonomy.NewsCreatedEvent{})
	s.Register(taxonomy.EventTypeNewsUpdated, &taxonomy.NewsUpdatedEvent{})
	s.Register(taxonomy.EventTypeNewsDeleted, &taxonomy.NewsDeletedEvent{})
	s.Register(taxonomy.EventTypeNewsCategoriesSynced, &taxonomy.NewsCategoriesSyncedEvent{})
	return s
}

// Register registers an event type for deserialization
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Serialize serializes a domain event to JSON bytes
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes data into a new instance of the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	eventPtr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", eventType, err)
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("registered type for %s does not implement DomainEvent", eventType)
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
