package taxonomy

import "github.com/newsdesk/backend/internal/domain/shared"

// Error codes raised by the taxonomy domain
const (
	CodeInvalidName         = "INVALID_NAME"
	CodeInvalidTitle        = "INVALID_TITLE"
	CodeInvalidBody         = "INVALID_BODY"
	CodeInvalidParent       = "INVALID_PARENT"
	CodeSelfParent          = "SELF_PARENT"
	CodeCircularReference   = "CIRCULAR_REFERENCE"
	CodeCategoryHasChildren = "CATEGORY_HAS_CHILDREN"
	CodeAlreadyActive       = "ALREADY_ACTIVE"
	CodeAlreadyInactive     = "ALREADY_INACTIVE"
)

var (
	ErrSelfParent          = shared.NewDomainError(CodeSelfParent, "Category cannot be its own parent")
	ErrCircularReference   = shared.NewDomainError(CodeCircularReference, "Parent assignment would create a circular reference")
	ErrCategoryHasChildren = shared.NewDomainError(CodeCategoryHasChildren, "Category has child categories and cannot be deleted")
)

// IsConflict reports whether err is one of the taxonomy conflict errors
func IsConflict(err error) bool {
	return shared.IsConflict(err, CodeCategoryHasChildren)
}
