package taxonomy

import (
	"github.com/newsdesk/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCategory = "Category"

// Event type constants
const (
	EventTypeCategoryCreated        = "CategoryCreated"
	EventTypeCategoryUpdated        = "CategoryUpdated"
	EventTypeCategoryParentsChanged = "CategoryParentsChanged"
	EventTypeCategoryStatusChanged  = "CategoryStatusChanged"
	EventTypeCategoryDeleted        = "CategoryDeleted"
)

// CategoryEventTypes lists every event that changes the shape or labels of the tree
var CategoryEventTypes = []string{
	EventTypeCategoryCreated,
	EventTypeCategoryUpdated,
	EventTypeCategoryParentsChanged,
	EventTypeCategoryStatusChanged,
	EventTypeCategoryDeleted,
}

// CategoryCreatedEvent is published when a new category is created
type CategoryCreatedEvent struct {
	shared.BaseDomainEvent
	CategoryID int64   `json:"category_id"`
	Name       string  `json:"name"`
	ParentIDs  []int64 `json:"parent_ids"`
}

// NewCategoryCreatedEvent creates a new CategoryCreatedEvent
func NewCategoryCreatedEvent(category *Category) *CategoryCreatedEvent {
	return &CategoryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryCreated, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		Name:            category.Name,
		ParentIDs:       append([]int64(nil), category.ParentIDs...),
	}
}

// CategoryUpdatedEvent is published when a category is renamed or described
type CategoryUpdatedEvent struct {
	shared.BaseDomainEvent
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
}

// NewCategoryUpdatedEvent creates a new CategoryUpdatedEvent
func NewCategoryUpdatedEvent(category *Category) *CategoryUpdatedEvent {
	return &CategoryUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryUpdated, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		Name:            category.Name,
	}
}

// CategoryParentsChangedEvent is published when the parent list changes
type CategoryParentsChangedEvent struct {
	shared.BaseDomainEvent
	CategoryID   int64   `json:"category_id"`
	OldParentIDs []int64 `json:"old_parent_ids"`
	NewParentIDs []int64 `json:"new_parent_ids"`
}

// NewCategoryParentsChangedEvent creates a new CategoryParentsChangedEvent
func NewCategoryParentsChangedEvent(category *Category, oldParentIDs []int64) *CategoryParentsChangedEvent {
	return &CategoryParentsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryParentsChanged, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		OldParentIDs:    append([]int64(nil), oldParentIDs...),
		NewParentIDs:    append([]int64(nil), category.ParentIDs...),
	}
}

// CategoryStatusChangedEvent is published when a category's status changes
type CategoryStatusChangedEvent struct {
	shared.BaseDomainEvent
	CategoryID int64          `json:"category_id"`
	OldStatus  CategoryStatus `json:"old_status"`
	NewStatus  CategoryStatus `json:"new_status"`
}

// NewCategoryStatusChangedEvent creates a new CategoryStatusChangedEvent
func NewCategoryStatusChangedEvent(category *Category, oldStatus, newStatus CategoryStatus) *CategoryStatusChangedEvent {
	return &CategoryStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryStatusChanged, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// CategoryDeletedEvent is published when a category is deleted
type CategoryDeletedEvent struct {
	shared.BaseDomainEvent
	CategoryID int64   `json:"category_id"`
	ParentIDs  []int64 `json:"parent_ids"`
}

// NewCategoryDeletedEvent creates a new CategoryDeletedEvent
func NewCategoryDeletedEvent(category *Category) *CategoryDeletedEvent {
	return &CategoryDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryDeleted, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		ParentIDs:       append([]int64(nil), category.ParentIDs...),
	}
}
