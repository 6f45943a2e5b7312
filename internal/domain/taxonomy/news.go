package taxonomy

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/newsdesk/backend/internal/domain/shared"
)

// NewsStatus represents whether a news item is published
type NewsStatus string

const (
	NewsStatusEnabled  NewsStatus = "enabled"
	NewsStatusDisabled NewsStatus = "disabled"
)

// NewsItem is a piece of content that can be filed under any number of categories.
// Category membership lives in the assignment table, not on the item.
type NewsItem struct {
	shared.BaseAggregateRoot
	Title  string
	Body   string
	Status NewsStatus
	Image  string
}

// NewNewsItem creates a new enabled news item
func NewNewsItem(title, body string) (*NewsItem, error) {
	if err := validateNewsContent(title, body); err != nil {
		return nil, err
	}

	return &NewsItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             strings.TrimSpace(title),
		Body:              body,
		Status:            NewsStatusEnabled,
	}, nil
}

// Update replaces the scalar fields of the item
func (n *NewsItem) Update(title, body, image string) error {
	if err := validateNewsContent(title, body); err != nil {
		return err
	}

	n.Title = strings.TrimSpace(title)
	n.Body = body
	n.Image = image
	n.UpdatedAt = time.Now()

	n.AddDomainEvent(NewNewsUpdatedEvent(n))

	return nil
}

// SetImage sets the image path
func (n *NewsItem) SetImage(image string) {
	n.Image = image
	n.UpdatedAt = time.Now()
}

// SetEnabled toggles publication
func (n *NewsItem) SetEnabled(enabled bool) {
	status := NewsStatusDisabled
	if enabled {
		status = NewsStatusEnabled
	}
	if n.Status == status {
		return
	}
	n.Status = status
	n.UpdatedAt = time.Now()
}

// IsEnabled returns true if the news item is published
func (n *NewsItem) IsEnabled() bool {
	return n.Status == NewsStatusEnabled
}

func validateNewsContent(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return shared.NewDomainError(CodeInvalidTitle, "News title cannot be empty")
	}
	if utf8.RuneCountInString(strings.TrimSpace(title)) > MaxNameLength {
		return shared.NewDomainError(CodeInvalidTitle, "News title cannot exceed 255 characters")
	}
	if strings.TrimSpace(body) == "" {
		return shared.NewDomainError(CodeInvalidBody, "News body cannot be empty")
	}
	return nil
}
