package taxonomy

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/newsdesk/backend/internal/domain/shared"
)

// DefaultMaxDepth bounds every upward or downward walk of the category graph
const DefaultMaxDepth = 5

// MaxNameLength is the longest category name accepted
const MaxNameLength = 255

// CategoryStatus represents the status of a category
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "active"
	CategoryStatusInactive CategoryStatus = "inactive"
)

// Category is a node of the news taxonomy.
// A category may have any number of parents; the parent list is kept in
// insertion order and never holds duplicates. An empty list marks a root.
type Category struct {
	shared.BaseAggregateRoot
	Name        string
	Description string
	Status      CategoryStatus
	ParentIDs   []int64
	SortOrder   int
}

// NewCategory creates a new active category under the given parents
func NewCategory(name, description string, parentIDs []int64) (*Category, error) {
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	parents, err := normalizeParentIDs(0, parentIDs)
	if err != nil {
		return nil, err
	}

	return &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Description:       description,
		Status:            CategoryStatusActive,
		ParentIDs:         parents,
	}, nil
}

// Update updates the category's basic information
func (c *Category) Update(name, description string) error {
	if err := validateCategoryName(name); err != nil {
		return err
	}

	c.Name = strings.TrimSpace(name)
	c.Description = description
	c.UpdatedAt = time.Now()

	c.AddDomainEvent(NewCategoryUpdatedEvent(c))

	return nil
}

// SetSortOrder sets the display order of the category
func (c *Category) SetSortOrder(order int) {
	c.SortOrder = order
	c.UpdatedAt = time.Now()
}

// SetParents replaces the parent list.
// Only local invariants are checked here; cycle detection needs the graph.
func (c *Category) SetParents(parentIDs []int64) error {
	parents, err := normalizeParentIDs(c.ID, parentIDs)
	if err != nil {
		return err
	}
	if equalIDs(parents, c.ParentIDs) {
		return nil
	}

	old := c.ParentIDs
	c.ParentIDs = parents
	c.UpdatedAt = time.Now()

	c.AddDomainEvent(NewCategoryParentsChangedEvent(c, old))

	return nil
}

// AddParent appends a parent. It returns false when the parent was already present.
func (c *Category) AddParent(parentID int64) (bool, error) {
	if c.HasParent(parentID) {
		return false, nil
	}
	next := make([]int64, 0, len(c.ParentIDs)+1)
	next = append(next, c.ParentIDs...)
	next = append(next, parentID)
	if err := c.SetParents(next); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveParent drops a parent. It returns false when the parent was not present.
func (c *Category) RemoveParent(parentID int64) bool {
	if !c.HasParent(parentID) {
		return false
	}
	next := make([]int64, 0, len(c.ParentIDs))
	for _, id := range c.ParentIDs {
		if id != parentID {
			next = append(next, id)
		}
	}
	old := c.ParentIDs
	c.ParentIDs = next
	c.UpdatedAt = time.Now()

	c.AddDomainEvent(NewCategoryParentsChangedEvent(c, old))
	return true
}

// Activate activates the category
func (c *Category) Activate() error {
	if c.Status == CategoryStatusActive {
		return shared.NewDomainError(CodeAlreadyActive, "Category is already active")
	}

	c.Status = CategoryStatusActive
	c.UpdatedAt = time.Now()

	c.AddDomainEvent(NewCategoryStatusChangedEvent(c, CategoryStatusInactive, CategoryStatusActive))

	return nil
}

// Deactivate deactivates the category
func (c *Category) Deactivate() error {
	if c.Status == CategoryStatusInactive {
		return shared.NewDomainError(CodeAlreadyInactive, "Category is already inactive")
	}

	c.Status = CategoryStatusInactive
	c.UpdatedAt = time.Now()

	c.AddDomainEvent(NewCategoryStatusChangedEvent(c, CategoryStatusActive, CategoryStatusInactive))

	return nil
}

// IsActive returns true if the category is active
func (c *Category) IsActive() bool {
	return c.Status == CategoryStatusActive
}

// IsRoot returns true if the category has no parents
func (c *Category) IsRoot() bool {
	return len(c.ParentIDs) == 0
}

// HasParent reports whether id is one of the direct parents
func (c *Category) HasParent(id int64) bool {
	for _, p := range c.ParentIDs {
		if p == id {
			return true
		}
	}
	return false
}

// normalizeParentIDs drops duplicates while keeping the first occurrence order
func normalizeParentIDs(selfID int64, ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, shared.NewDomainError(CodeInvalidParent, fmt.Sprintf("Invalid parent category id %d", id))
		}
		if selfID != 0 && id == selfID {
			return nil, ErrSelfParent
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// validateCategoryName validates the category name
func validateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(CodeInvalidName, "Category name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return shared.NewDomainError(CodeInvalidName, fmt.Sprintf("Category name cannot exceed %d characters", MaxNameLength))
	}
	return nil
}
