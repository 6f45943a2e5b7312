package taxonomy

import (
	"context"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// NewsService handles news items together with their category membership.
// Scalar fields and the category set are written in one transaction.
type NewsService struct {
	newsRepo     taxonomy.NewsRepository
	associations *AssociationService
	txScope      TransactionScope
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewsServiceOption is a functional option for configuring the news service
type NewsServiceOption func(*NewsService)

// WithNewsEventPublisher sets the publisher for committed news events
func WithNewsEventPublisher(publisher shared.EventPublisher) NewsServiceOption {
	return func(s *NewsService) {
		s.publisher = publisher
	}
}

// WithNewsLogger sets the logger
func WithNewsLogger(logger *zap.Logger) NewsServiceOption {
	return func(s *NewsService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewNewsService creates a new NewsService
func NewNewsService(
	newsRepo taxonomy.NewsRepository,
	associations *AssociationService,
	txScope TransactionScope,
	opts ...NewsServiceOption,
) *NewsService {
	s := &NewsService{
		newsRepo:     newsRepo,
		associations: associations,
		txScope:      txScope,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a news item and files it under the requested categories
func (s *NewsService) Create(ctx context.Context, req CreateNewsRequest) (resp *NewsResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "news", "create")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	item, err := taxonomy.NewNewsItem(req.Title, req.Body)
	if err != nil {
		return nil, err
	}
	item.Image = req.Image
	if req.Enabled != nil {
		item.SetEnabled(*req.Enabled)
	}

	var result *SyncResult
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.NewsRepo().Save(ctx, item); err != nil {
			return err
		}
		item.AddDomainEvent(taxonomy.NewNewsCreatedEvent(item))

		var err error
		result, err = s.associations.syncInTx(ctx, repos, item.ID, req.CategoryIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrNewsID, item.ID)
	s.logger.Info("news item created",
		zap.Int64("news_id", item.ID),
		zap.Int64s("category_ids", result.Applied),
	)
	s.publish(ctx, item, result)

	return s.toResponse(item, result), nil
}

// Update updates a news item. A non-nil CategoryIDs replaces the category set.
func (s *NewsService) Update(ctx context.Context, id int64, req UpdateNewsRequest) (resp *NewsResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "news", "update", telemetry.SpanAttrNewsID, id)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var (
		item        *taxonomy.NewsItem
		result      *SyncResult
		categoryIDs []int64
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.NewsRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if req.Title != nil || req.Body != nil || req.Image != nil {
			title, body, image := item.Title, item.Body, item.Image
			if req.Title != nil {
				title = *req.Title
			}
			if req.Body != nil {
				body = *req.Body
			}
			if req.Image != nil {
				image = *req.Image
			}
			if err := item.Update(title, body, image); err != nil {
				return err
			}
		}
		if req.Enabled != nil {
			item.SetEnabled(*req.Enabled)
		}
		if err := repos.NewsRepo().Save(ctx, item); err != nil {
			return err
		}

		if req.CategoryIDs == nil {
			categoryIDs, err = repos.AssignmentRepo().CategoryIDsForNews(ctx, id)
			return err
		}
		result, err = s.associations.syncInTx(ctx, repos, id, *req.CategoryIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, item, result)
	if result == nil {
		return ToNewsResponse(item, categoryIDs), nil
	}
	return s.toResponse(item, result), nil
}

// Delete deletes a news item and its category assignments
func (s *NewsService) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "news", "delete", telemetry.SpanAttrNewsID, id)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	var item *taxonomy.NewsItem
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.NewsRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.AssignmentRepo().DeleteForNews(ctx, id); err != nil {
			return err
		}
		if err := repos.NewsRepo().Delete(ctx, id); err != nil {
			return err
		}
		item.AddDomainEvent(taxonomy.NewNewsDeletedEvent(item))
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("news item deleted", zap.Int64("news_id", id))
	publishCommitted(ctx, s.publisher, s.logger, item.PullDomainEvents())
	return nil
}

// GetByID retrieves a news item with its category ids
func (s *NewsService) GetByID(ctx context.Context, id int64) (*NewsResponse, error) {
	item, err := s.newsRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := s.associations.CategoriesForItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToNewsResponse(item, categoryIDs), nil
}

// ListByCategory returns a page of news items filed under a category.
// A zero categoryID lists every item.
func (s *NewsService) ListByCategory(ctx context.Context, categoryID int64, filter shared.Filter, enabledOnly bool) (shared.Paginated[NewsResponse], error) {
	items, total, err := s.newsRepo.List(ctx, taxonomy.NewsFilter{
		Filter:      filter,
		EnabledOnly: enabledOnly,
		CategoryID:  categoryID,
	})
	if err != nil {
		return shared.Paginated[NewsResponse]{}, err
	}

	responses := make([]NewsResponse, len(items))
	for i := range items {
		categoryIDs, err := s.associations.CategoriesForItem(ctx, items[i].ID)
		if err != nil {
			return shared.Paginated[NewsResponse]{}, err
		}
		responses[i] = *ToNewsResponse(&items[i], categoryIDs)
	}
	return shared.NewPaginated(responses, total, filter.Page, filter.Limit()), nil
}

func (s *NewsService) publish(ctx context.Context, item *taxonomy.NewsItem, result *SyncResult) {
	events := item.PullDomainEvents()
	if result != nil {
		events = append(events, taxonomy.NewNewsCategoriesSyncedEvent(item.ID, result.Applied, result.Dropped))
	}
	publishCommitted(ctx, s.publisher, s.logger, events)
}

func (s *NewsService) toResponse(item *taxonomy.NewsItem, result *SyncResult) *NewsResponse {
	resp := ToNewsResponse(item, result.Applied)
	if result.HasDrops() {
		resp.DroppedCategoryIDs = result.Dropped
	}
	return resp
}
