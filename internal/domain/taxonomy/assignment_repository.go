package taxonomy

import (
	"context"
)

// AssignmentRepository owns the news/category pivot rows.
// Both Replace methods delete every row for the owner and insert the given set.
type AssignmentRepository interface {
	ReplaceForNews(ctx context.Context, newsID int64, categoryIDs []int64) error
	ReplaceForCategory(ctx context.Context, categoryID int64, newsIDs []int64) error

	CategoryIDsForNews(ctx context.Context, newsID int64) ([]int64, error)
	NewsIDsForCategory(ctx context.Context, categoryID int64) ([]int64, error)
	CountForCategory(ctx context.Context, categoryID int64) (int64, error)

	DeleteForNews(ctx context.Context, newsID int64) error
	DeleteForCategory(ctx context.Context, categoryID int64) error
}
