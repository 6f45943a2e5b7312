package persistence

import (
	"context"

	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// assignmentBatchSize bounds the rows sent in one INSERT
const assignmentBatchSize = 500

// GormAssignmentRepository implements AssignmentRepository using GORM
type GormAssignmentRepository struct {
	db *gorm.DB
}

// NewGormAssignmentRepository creates a new GormAssignmentRepository
func NewGormAssignmentRepository(db *gorm.DB) *GormAssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

// ReplaceForNews deletes every pivot row of the news item and inserts one per category id.
// Callers run it inside a transaction; on its own the delete and insert are not atomic.
func (r *GormAssignmentRepository) ReplaceForNews(ctx context.Context, newsID int64, categoryIDs []int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("news_id = ?", newsID).Delete(&models.AssignmentModel{}).Error; err != nil {
		return err
	}
	rows := make([]models.AssignmentModel, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		rows = append(rows, models.AssignmentModel{NewsID: newsID, CategoryID: id})
	}
	return r.insert(db, rows)
}

// ReplaceForCategory deletes every pivot row of the category and inserts one per news id.
func (r *GormAssignmentRepository) ReplaceForCategory(ctx context.Context, categoryID int64, newsIDs []int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("category_id = ?", categoryID).Delete(&models.AssignmentModel{}).Error; err != nil {
		return err
	}
	rows := make([]models.AssignmentModel, 0, len(newsIDs))
	for _, id := range newsIDs {
		rows = append(rows, models.AssignmentModel{NewsID: id, CategoryID: categoryID})
	}
	return r.insert(db, rows)
}

// CategoryIDsForNews returns the category ids of a news item in ascending order
func (r *GormAssignmentRepository) CategoryIDsForNews(ctx context.Context, newsID int64) ([]int64, error) {
	ids := []int64{}
	if err := r.db.WithContext(ctx).
		Model(&models.AssignmentModel{}).
		Where("news_id = ?", newsID).
		Order("category_id ASC").
		Pluck("category_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// NewsIDsForCategory returns the news ids filed under a category in ascending order
func (r *GormAssignmentRepository) NewsIDsForCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	ids := []int64{}
	if err := r.db.WithContext(ctx).
		Model(&models.AssignmentModel{}).
		Where("category_id = ?", categoryID).
		Order("news_id ASC").
		Pluck("news_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountForCategory counts the news items filed under a category
func (r *GormAssignmentRepository) CountForCategory(ctx context.Context, categoryID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AssignmentModel{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteForNews removes every pivot row of a news item
func (r *GormAssignmentRepository) DeleteForNews(ctx context.Context, newsID int64) error {
	return r.db.WithContext(ctx).Where("news_id = ?", newsID).Delete(&models.AssignmentModel{}).Error
}

// DeleteForCategory removes every pivot row of a category
func (r *GormAssignmentRepository) DeleteForCategory(ctx context.Context, categoryID int64) error {
	return r.db.WithContext(ctx).Where("category_id = ?", categoryID).Delete(&models.AssignmentModel{}).Error
}

func (r *GormAssignmentRepository) insert(db *gorm.DB, rows []models.AssignmentModel) error {
	if len(rows) == 0 {
		return nil
	}
	return db.CreateInBatches(rows, assignmentBatchSize).Error
}

// Ensure GormAssignmentRepository implements AssignmentRepository
var _ taxonomy.AssignmentRepository = (*GormAssignmentRepository)(nil)
