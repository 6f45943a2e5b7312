package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormNewsRepository implements NewsRepository using GORM
type GormNewsRepository struct {
	db *gorm.DB
}

// NewGormNewsRepository creates a new GormNewsRepository
func NewGormNewsRepository(db *gorm.DB) *GormNewsRepository {
	return &GormNewsRepository{db: db}
}

// FindByID finds a news item by its ID
func (r *GormNewsRepository) FindByID(ctx context.Context, id int64) (*taxonomy.NewsItem, error) {
	var model models.NewsModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads the news items that exist among ids
func (r *GormNewsRepository) FindByIDs(ctx context.Context, ids []int64) ([]taxonomy.NewsItem, error) {
	if len(ids) == 0 {
		return []taxonomy.NewsItem{}, nil
	}
	var rows []models.NewsModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainNews(rows), nil
}

// List returns a page of news items matching the filter and the total match count
func (r *GormNewsRepository) List(ctx context.Context, filter taxonomy.NewsFilter) ([]taxonomy.NewsItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.NewsModel{})

	if filter.EnabledOnly {
		query = query.Where("status = ?", taxonomy.NewsStatusEnabled)
	}
	if filter.CategoryID != 0 {
		members := r.db.WithContext(ctx).
			Model(&models.AssignmentModel{}).
			Select("news_id").
			Where("category_id = ?", filter.CategoryID)
		query = query.Where("id IN (?)", members)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	// shared by the count and the page query
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, NewsSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.NewsModel
	if err := query.
		Order(orderBy + " " + orderDir).
		Order("id " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainNews(rows), total, nil
}

// ExistingIDs returns the subset of ids that resolve to a stored news item
func (r *GormNewsRepository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	found := []int64{}
	if len(ids) == 0 {
		return found, nil
	}
	if err := r.db.WithContext(ctx).
		Model(&models.NewsModel{}).
		Where("id IN ?", ids).
		Order("id ASC").
		Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// Save creates or updates a news item
func (r *GormNewsRepository) Save(ctx context.Context, item *taxonomy.NewsItem) error {
	now := time.Now()
	model := models.NewsModelFromDomain(item)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	db := r.db.WithContext(ctx)
	var err error
	if item.IsNew() {
		err = db.Create(model).Error
	} else {
		err = db.Save(model).Error
	}
	if err != nil {
		return err
	}

	item.ID = model.ID
	item.CreatedAt = model.CreatedAt
	item.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete deletes a news item
func (r *GormNewsRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.NewsModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainNews(rows []models.NewsModel) []taxonomy.NewsItem {
	out := make([]taxonomy.NewsItem, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

// Ensure GormNewsRepository implements NewsRepository
var _ taxonomy.NewsRepository = (*GormNewsRepository)(nil)
