package persistence

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id int64) (*taxonomy.Category, error) {
	var model models.CategoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the categories that exist among ids
func (r *GormCategoryRepository) FindByIDs(ctx context.Context, ids []int64) ([]taxonomy.Category, error) {
	if len(ids) == 0 {
		return []taxonomy.Category{}, nil
	}
	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCategories(rows, 0), nil
}

// FindChildren finds all categories listing parentID among their parents.
// The LIKE patterns only narrow the scan; membership is confirmed on the decoded list.
func (r *GormCategoryRepository) FindChildren(ctx context.Context, parentID int64, activeOnly bool) ([]taxonomy.Category, error) {
	var rows []models.CategoryModel
	query := r.scoped(ctx, activeOnly).Where(parentIDsContain(parentID))
	if err := query.Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCategories(rows, parentID), nil
}

// FindRoots finds all categories without parents
func (r *GormCategoryRepository) FindRoots(ctx context.Context, activeOnly bool) ([]taxonomy.Category, error) {
	var rows []models.CategoryModel
	query := r.scoped(ctx, activeOnly).Where(parentIDsEmpty())
	if err := query.Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCategories(rows, 0), nil
}

// FindAll finds every category
func (r *GormCategoryRepository) FindAll(ctx context.Context, activeOnly bool) ([]taxonomy.Category, error) {
	var rows []models.CategoryModel
	if err := r.scoped(ctx, activeOnly).Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCategories(rows, 0), nil
}

// HasChildren checks if any category lists categoryID as a parent
func (r *GormCategoryRepository) HasChildren(ctx context.Context, categoryID int64) (bool, error) {
	children, err := r.FindChildren(ctx, categoryID, false)
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

// ExistingIDs returns the subset of ids that resolve to a stored category
func (r *GormCategoryRepository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	found := []int64{}
	if len(ids) == 0 {
		return found, nil
	}
	if err := r.db.WithContext(ctx).
		Model(&models.CategoryModel{}).
		Where("id IN ?", ids).
		Order("id ASC").
		Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// Save creates or updates a category.
// New categories receive their id and timestamps from this call.
func (r *GormCategoryRepository) Save(ctx context.Context, category *taxonomy.Category) error {
	now := time.Now()
	model := models.CategoryModelFromDomain(category)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	db := r.db.WithContext(ctx)
	var err error
	if category.IsNew() {
		err = db.Create(model).Error
	} else {
		err = db.Save(model).Error
	}
	if err != nil {
		return err
	}

	category.ID = model.ID
	category.CreatedAt = model.CreatedAt
	category.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete deletes a category
func (r *GormCategoryRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.CategoryModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormCategoryRepository) scoped(ctx context.Context, activeOnly bool) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.CategoryModel{})
	if activeOnly {
		query = query.Where("status = ?", taxonomy.CategoryStatusActive)
	}
	return query
}

// compactParentIDs is parent_ids with JSON whitespace removed, so `[1, 2]` and
// `[1,2]` match the same patterns. Its placeholders take jsonWhitespace.
const compactParentIDs = "REPLACE(REPLACE(REPLACE(REPLACE(parent_ids, ?, ''), ?, ''), ?, ''), ?, '')"

var jsonWhitespace = []any{" ", "\t", "\n", "\r"}

// parentIDsContain matches every encoding of a list holding id
func parentIDsContain(id int64) clause.Expr {
	s := strconv.FormatInt(id, 10)
	var vars []any
	for _, pattern := range []string{"[" + s + "]", "[" + s + ",%", "%," + s + ",%", "%," + s + "]"} {
		vars = append(vars, jsonWhitespace...)
		vars = append(vars, pattern)
	}
	return clause.Expr{
		SQL: "(" + compactParentIDs + " LIKE ? OR " + compactParentIDs + " LIKE ? OR " +
			compactParentIDs + " LIKE ? OR " + compactParentIDs + " LIKE ?)",
		Vars: vars,
	}
}

// parentIDsEmpty matches the encodings of an empty list
func parentIDsEmpty() clause.Expr {
	vars := append([]any{}, jsonWhitespace...)
	vars = append(vars, []string{"[]", "null", ""})
	return clause.Expr{
		SQL:  "(parent_ids IS NULL OR " + compactParentIDs + " IN ?)",
		Vars: vars,
	}
}

// toDomainCategories converts rows; a non-zero parentID keeps only its true children
func toDomainCategories(rows []models.CategoryModel, parentID int64) []taxonomy.Category {
	out := make([]taxonomy.Category, 0, len(rows))
	for i := range rows {
		c := rows[i].ToDomain()
		if parentID != 0 && !c.HasParent(parentID) {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// Ensure GormCategoryRepository implements CategoryRepository
var _ taxonomy.CategoryRepository = (*GormCategoryRepository)(nil)
