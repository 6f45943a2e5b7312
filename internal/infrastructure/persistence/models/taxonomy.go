package models

import (
	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"gorm.io/datatypes"
)

// CategoryModel is the persistence model for the Category domain entity.
// ParentIDs is stored as a JSON array of integers in a TEXT column; roots hold "[]".
type CategoryModel struct {
	BaseModel
	Name        string                     `gorm:"type:varchar(255);not null"`
	Description string                     `gorm:"type:text;not null;default:''"`
	Status      taxonomy.CategoryStatus    `gorm:"type:varchar(20);not null;default:'active';index"`
	ParentIDs   datatypes.JSONSlice[int64] `gorm:"column:parent_ids;type:text;not null"`
	SortOrder   int                        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "news_categories"
}

// ToDomain converts the persistence model to a domain Category entity.
func (m *CategoryModel) ToDomain() *taxonomy.Category {
	parents := make([]int64, len(m.ParentIDs))
	copy(parents, m.ParentIDs)
	return &taxonomy.Category{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		Name:              m.Name,
		Description:       m.Description,
		Status:            m.Status,
		ParentIDs:         parents,
		SortOrder:         m.SortOrder,
	}
}

// FromDomain populates the persistence model from a domain Category entity.
func (m *CategoryModel) FromDomain(c *taxonomy.Category) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.Description = c.Description
	m.Status = c.Status
	// a nil slice would serialise as "null"
	m.ParentIDs = append(datatypes.JSONSlice[int64]{}, c.ParentIDs...)
	m.SortOrder = c.SortOrder
}

// CategoryModelFromDomain creates a new persistence model from a domain Category entity.
func CategoryModelFromDomain(c *taxonomy.Category) *CategoryModel {
	m := &CategoryModel{}
	m.FromDomain(c)
	return m
}

// NewsModel is the persistence model for the NewsItem domain entity.
type NewsModel struct {
	BaseModel
	Title  string              `gorm:"type:varchar(255);not null"`
	Body   string              `gorm:"type:text;not null"`
	Status taxonomy.NewsStatus `gorm:"type:varchar(20);not null;default:'enabled';index"`
	Image  string              `gorm:"type:varchar(500);not null;default:''"`
}

// TableName returns the table name for GORM
func (NewsModel) TableName() string {
	return "news_items"
}

// ToDomain converts the persistence model to a domain NewsItem entity.
func (m *NewsModel) ToDomain() *taxonomy.NewsItem {
	return &taxonomy.NewsItem{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		Title:             m.Title,
		Body:              m.Body,
		Status:            m.Status,
		Image:             m.Image,
	}
}

// FromDomain populates the persistence model from a domain NewsItem entity.
func (m *NewsModel) FromDomain(n *taxonomy.NewsItem) {
	m.FromDomainBaseEntity(n.BaseEntity)
	m.Title = n.Title
	m.Body = n.Body
	m.Status = n.Status
	m.Image = n.Image
}

// NewsModelFromDomain creates a new persistence model from a domain NewsItem entity.
func NewsModelFromDomain(n *taxonomy.NewsItem) *NewsModel {
	m := &NewsModel{}
	m.FromDomain(n)
	return m
}

// AssignmentModel is one row of the news/category pivot.
type AssignmentModel struct {
	NewsID     int64 `gorm:"primaryKey;autoIncrement:false"`
	CategoryID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

// TableName returns the table name for GORM
func (AssignmentModel) TableName() string {
	return "news_category_assignments"
}

// TaxonomyModels lists every model backing the taxonomy tables, in creation order.
func TaxonomyModels() []any {
	return []any{&CategoryModel{}, &NewsModel{}, &AssignmentModel{}}
}
