package taxonomy

import (
	"time"

	"github.com/newsdesk/backend/internal/domain/taxonomy"
)

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=65535"`
	ParentIDs   []int64 `json:"parent_ids" validate:"omitempty,dive,gt=0"`
	SortOrder   int     `json:"sort_order"`
	Active      *bool   `json:"active"`
}

// UpdateCategoryRequest represents a request to update a category.
// Nil fields are left untouched; a non-nil ParentIDs replaces the whole parent list.
type UpdateCategoryRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=65535"`
	ParentIDs   *[]int64 `json:"parent_ids"`
	SortOrder   *int     `json:"sort_order"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	ParentIDs   []int64   `json:"parent_ids"`
	SortOrder   int       `json:"sort_order"`
	IsRoot      bool      `json:"is_root"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToCategoryResponse converts a domain Category to CategoryResponse
func ToCategoryResponse(c *taxonomy.Category) *CategoryResponse {
	parents := c.ParentIDs
	if parents == nil {
		parents = []int64{}
	}
	return &CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Status:      string(c.Status),
		ParentIDs:   parents,
		SortOrder:   c.SortOrder,
		IsRoot:      c.IsRoot(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CreateNewsRequest represents a request to create a news item
type CreateNewsRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Body        string  `json:"body" validate:"required"`
	Image       string  `json:"image" validate:"max=255"`
	Enabled     *bool   `json:"enabled"`
	CategoryIDs []int64 `json:"category_ids" validate:"omitempty,dive,gt=0"`
}

// UpdateNewsRequest represents a request to update a news item.
// A non-nil CategoryIDs replaces the full category set.
type UpdateNewsRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Body        *string  `json:"body" validate:"omitempty,min=1"`
	Image       *string  `json:"image" validate:"omitempty,max=255"`
	Enabled     *bool    `json:"enabled"`
	CategoryIDs *[]int64 `json:"category_ids"`
}

// NewsResponse represents a news item in API responses
type NewsResponse struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Status             string    `json:"status"`
	Image              string    `json:"image,omitempty"`
	CategoryIDs        []int64   `json:"category_ids"`
	DroppedCategoryIDs []int64   `json:"dropped_category_ids,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ToNewsResponse converts a domain NewsItem to NewsResponse
func ToNewsResponse(n *taxonomy.NewsItem, categoryIDs []int64) *NewsResponse {
	if categoryIDs == nil {
		categoryIDs = []int64{}
	}
	return &NewsResponse{
		ID:          n.ID,
		Title:       n.Title,
		Body:        n.Body,
		Status:      string(n.Status),
		Image:       n.Image,
		CategoryIDs: categoryIDs,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

// SyncResult reports which category ids were stored and which were dropped
// because they did not resolve.
type SyncResult struct {
	Applied []int64 `json:"applied"`
	Dropped []int64 `json:"dropped"`
}

// HasDrops reports whether any requested id was dropped
func (r SyncResult) HasDrops() bool {
	return len(r.Dropped) > 0
}

// Option is one entry of a parent picker
type Option struct {
	Value int64  `json:"value"`
	Label string `json:"label"`
}

// OptionListParams controls HierarchicalOptionList
type OptionListParams struct {
	// ExcludeID removes that category, everything below it, and every other
	// descendant of it from the list. Zero disables exclusion.
	ExcludeID  int64
	ActiveOnly bool
	WithEmpty  bool
}

// TreeNode is one category of a display tree. Level is the depth in this tree.
type TreeNode struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Level    int        `json:"level"`
	Active   bool       `json:"active"`
	Children []TreeNode `json:"children"`
}

// CategoryStats summarises one category for detail views
type CategoryStats struct {
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	Level         int                  `json:"level"`
	IsRoot        bool                 `json:"is_root"`
	Active        bool                 `json:"active"`
	ChildrenCount int                  `json:"children_count"`
	NewsCount     int64                `json:"news_count"`
	ParentIDs     []int64              `json:"parent_ids"`
	Breadcrumbs   taxonomy.Breadcrumbs `json:"breadcrumbs"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}
