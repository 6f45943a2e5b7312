// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel shared by every table with a surrogate id
//   - taxonomy.go: news_categories, news_items and the news_category_assignments pivot
package models
