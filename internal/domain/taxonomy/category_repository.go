package taxonomy

import (
	"context"
)

// CategoryReader is the read side of the category store used by graph traversals
type CategoryReader interface {
	// FindByID finds a category by its ID, returning shared.ErrNotFound when absent
	FindByID(ctx context.Context, id int64) (*Category, error)

	// FindByIDs loads the categories that exist among ids, in no particular order
	FindByIDs(ctx context.Context, ids []int64) ([]Category, error)

	// FindChildren finds all categories listing parentID among their parents
	FindChildren(ctx context.Context, parentID int64, activeOnly bool) ([]Category, error)

	// FindRoots finds all categories without parents
	FindRoots(ctx context.Context, activeOnly bool) ([]Category, error)

	// FindAll finds every category
	FindAll(ctx context.Context, activeOnly bool) ([]Category, error)
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	CategoryReader

	// HasChildren checks if any category lists categoryID as a parent
	HasChildren(ctx context.Context, categoryID int64) (bool, error)

	// ExistingIDs returns the subset of ids that resolve to a stored category
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error

	// Delete deletes a category
	Delete(ctx context.Context, id int64) error
}
