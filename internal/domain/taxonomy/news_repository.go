package taxonomy

import (
	"context"

	"github.com/newsdesk/backend/internal/domain/shared"
)

// NewsFilter narrows a news listing
type NewsFilter struct {
	shared.Filter
	EnabledOnly bool
	CategoryID  int64
}

// NewsRepository defines the interface for news persistence
type NewsRepository interface {
	// FindByID finds a news item by its ID
	FindByID(ctx context.Context, id int64) (*NewsItem, error)

	// FindByIDs loads the news items that exist among ids
	FindByIDs(ctx context.Context, ids []int64) ([]NewsItem, error)

	// List returns a page of news items matching the filter
	List(ctx context.Context, filter NewsFilter) ([]NewsItem, int64, error)

	// ExistingIDs returns the subset of ids that resolve to a stored news item
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)

	// Save creates or updates a news item
	Save(ctx context.Context, item *NewsItem) error

	// Delete deletes a news item
	Delete(ctx context.Context, id int64) error
}
