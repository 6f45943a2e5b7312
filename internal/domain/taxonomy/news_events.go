package taxonomy

import (
	"github.com/newsdesk/backend/internal/domain/shared"
)

const AggregateTypeNews = "News"

const (
	EventTypeNewsCreated          = "NewsCreated"
	EventTypeNewsUpdated          = "NewsUpdated"
	EventTypeNewsDeleted          = "NewsDeleted"
	EventTypeNewsCategoriesSynced = "NewsCategoriesSynced"
)

// NewsCreatedEvent is published when a news item is created
type NewsCreatedEvent struct {
	shared.BaseDomainEvent
	NewsID int64  `json:"news_id"`
	Title  string `json:"title"`
}

// NewNewsCreatedEvent creates a new NewsCreatedEvent
func NewNewsCreatedEvent(item *NewsItem) *NewsCreatedEvent {
	return &NewsCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNewsCreated, AggregateTypeNews, item.ID),
		NewsID:          item.ID,
		Title:           item.Title,
	}
}

// NewsUpdatedEvent is published when a news item's fields change
type NewsUpdatedEvent struct {
	shared.BaseDomainEvent
	NewsID int64  `json:"news_id"`
	Title  string `json:"title"`
}

// NewNewsUpdatedEvent creates a new NewsUpdatedEvent
func NewNewsUpdatedEvent(item *NewsItem) *NewsUpdatedEvent {
	return &NewsUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNewsUpdated, AggregateTypeNews, item.ID),
		NewsID:          item.ID,
		Title:           item.Title,
	}
}

// NewsDeletedEvent is published when a news item is deleted
type NewsDeletedEvent struct {
	shared.BaseDomainEvent
	NewsID int64 `json:"news_id"`
}

// NewNewsDeletedEvent creates a new NewsDeletedEvent
func NewNewsDeletedEvent(item *NewsItem) *NewsDeletedEvent {
	return &NewsDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNewsDeleted, AggregateTypeNews, item.ID),
		NewsID:          item.ID,
	}
}

// NewsCategoriesSyncedEvent is published after the category set of an item was replaced
type NewsCategoriesSyncedEvent struct {
	shared.BaseDomainEvent
	NewsID      int64   `json:"news_id"`
	CategoryIDs []int64 `json:"category_ids"`
	DroppedIDs  []int64 `json:"dropped_ids,omitempty"`
}

// NewNewsCategoriesSyncedEvent creates a new NewsCategoriesSyncedEvent
func NewNewsCategoriesSyncedEvent(newsID int64, applied, dropped []int64) *NewsCategoriesSyncedEvent {
	return &NewsCategoriesSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNewsCategoriesSynced, AggregateTypeNews, newsID),
		NewsID:          newsID,
		CategoryIDs:     append([]int64(nil), applied...),
		DroppedIDs:      append([]int64(nil), dropped...),
	}
}
