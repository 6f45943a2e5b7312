package taxonomy

import (
	"context"
	"fmt"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CategoryService handles category administration.
// Every parent change is validated against the graph inside the same
// transaction as the write.
type CategoryService struct {
	categoryRepo taxonomy.CategoryRepository
	txScope      TransactionScope
	graph        *taxonomy.Graph
	publisher    shared.EventPublisher
	metrics      Metrics
	logger       *zap.Logger
}

// CategoryServiceOption is a functional option for configuring the category service
type CategoryServiceOption func(*CategoryService)

// WithCategoryEventPublisher sets the publisher for committed category events
func WithCategoryEventPublisher(publisher shared.EventPublisher) CategoryServiceOption {
	return func(s *CategoryService) {
		s.publisher = publisher
	}
}

// WithCategoryMetrics sets the metrics sink
func WithCategoryMetrics(metrics Metrics) CategoryServiceOption {
	return func(s *CategoryService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithCategoryLogger sets the logger
func WithCategoryLogger(logger *zap.Logger) CategoryServiceOption {
	return func(s *CategoryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo taxonomy.CategoryRepository,
	txScope TransactionScope,
	graph *taxonomy.Graph,
	opts ...CategoryServiceOption,
) *CategoryService {
	s := &CategoryService{
		categoryRepo: categoryRepo,
		txScope:      txScope,
		graph:        graph,
		metrics:      noopMetrics{},
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (resp *CategoryResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "create")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	category, err := taxonomy.NewCategory(req.Name, req.Description, req.ParentIDs)
	if err != nil {
		return nil, err
	}
	category.SetSortOrder(req.SortOrder)
	if req.Active != nil && !*req.Active {
		category.Status = taxonomy.CategoryStatusInactive
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		repo := repos.CategoryRepo()
		if err := s.checkParents(ctx, repo, category); err != nil {
			return err
		}
		if err := repo.Save(ctx, category); err != nil {
			return err
		}
		category.AddDomainEvent(taxonomy.NewCategoryCreatedEvent(category))
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCategoryID, category.ID)
	s.logger.Info("category created",
		zap.Int64("category_id", category.ID),
		zap.Int64s("parent_ids", category.ParentIDs),
	)
	publishCommitted(ctx, s.publisher, s.logger, category.PullDomainEvents())

	return ToCategoryResponse(category), nil
}

// GetByID retrieves a category by ID
func (s *CategoryService) GetByID(ctx context.Context, id int64) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponse(category), nil
}

// List retrieves every category, ordered by the repository
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]CategoryResponse, error) {
	categories, err := s.categoryRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = *ToCategoryResponse(&categories[i])
	}
	return responses, nil
}

// Update updates an existing category
func (s *CategoryService) Update(ctx context.Context, id int64, req UpdateCategoryRequest) (*CategoryResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	return s.mutate(ctx, "update", id, func(repo taxonomy.CategoryRepository, category *taxonomy.Category) error {
		if req.Name != nil || req.Description != nil {
			name, description := category.Name, category.Description
			if req.Name != nil {
				name = *req.Name
			}
			if req.Description != nil {
				description = *req.Description
			}
			if err := category.Update(name, description); err != nil {
				return err
			}
		}
		if req.SortOrder != nil {
			category.SetSortOrder(*req.SortOrder)
		}
		if req.ParentIDs != nil {
			if err := category.SetParents(*req.ParentIDs); err != nil {
				return err
			}
			return s.checkParents(ctx, repo, category)
		}
		return nil
	})
}

// AddParent attaches one more parent to a category
func (s *CategoryService) AddParent(ctx context.Context, id, parentID int64) (*CategoryResponse, error) {
	return s.mutate(ctx, "add_parent", id, func(repo taxonomy.CategoryRepository, category *taxonomy.Category) error {
		added, err := category.AddParent(parentID)
		if err != nil || !added {
			return err
		}
		return s.checkParents(ctx, repo, category)
	})
}

// RemoveParent detaches a parent from a category. Removing the last parent makes it a root.
func (s *CategoryService) RemoveParent(ctx context.Context, id, parentID int64) (*CategoryResponse, error) {
	return s.mutate(ctx, "remove_parent", id, func(_ taxonomy.CategoryRepository, category *taxonomy.Category) error {
		category.RemoveParent(parentID)
		return nil
	})
}

// Activate activates a category
func (s *CategoryService) Activate(ctx context.Context, id int64) (*CategoryResponse, error) {
	return s.mutate(ctx, "activate", id, func(_ taxonomy.CategoryRepository, category *taxonomy.Category) error {
		return category.Activate()
	})
}

// Deactivate deactivates a category
func (s *CategoryService) Deactivate(ctx context.Context, id int64) (*CategoryResponse, error) {
	return s.mutate(ctx, "deactivate", id, func(_ taxonomy.CategoryRepository, category *taxonomy.Category) error {
		return category.Deactivate()
	})
}

// Delete deletes a category and its news associations.
// It is refused while any other category still lists it as a parent.
func (s *CategoryService) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", "delete", telemetry.SpanAttrCategoryID, id)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	var category *taxonomy.Category
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		repo := repos.CategoryRepo()

		var err error
		category, err = repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		hasChildren, err := repo.HasChildren(ctx, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return taxonomy.ErrCategoryHasChildren
		}

		if err := repos.AssignmentRepo().DeleteForCategory(ctx, id); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		category.AddDomainEvent(taxonomy.NewCategoryDeletedEvent(category))
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("category deleted", zap.Int64("category_id", id))
	publishCommitted(ctx, s.publisher, s.logger, category.PullDomainEvents())
	return nil
}

// mutate loads a category inside a transaction, applies fn, saves it and
// publishes the recorded events after commit.
func (s *CategoryService) mutate(
	ctx context.Context,
	op string,
	id int64,
	fn func(repo taxonomy.CategoryRepository, category *taxonomy.Category) error,
) (resp *CategoryResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "category", op, telemetry.SpanAttrCategoryID, id)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	var category *taxonomy.Category
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		repo := repos.CategoryRepo()

		var err error
		category, err = repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(repo, category); err != nil {
			return err
		}
		return repo.Save(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	publishCommitted(ctx, s.publisher, s.logger, category.PullDomainEvents())
	return ToCategoryResponse(category), nil
}

// checkParents verifies that every parent exists and that none of them would
// close a cycle. It reads through the transaction-bound repository so the check
// sees the same snapshot the write is based on.
func (s *CategoryService) checkParents(ctx context.Context, repo taxonomy.CategoryRepository, category *taxonomy.Category) error {
	if len(category.ParentIDs) == 0 {
		return nil
	}

	existing, err := repo.ExistingIDs(ctx, category.ParentIDs)
	if err != nil {
		return err
	}
	found := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}
	for _, pid := range category.ParentIDs {
		if _, ok := found[pid]; !ok {
			return shared.NewDomainError(taxonomy.CodeInvalidParent, fmt.Sprintf("Parent category %d not found", pid))
		}
	}

	// a category that has no id yet cannot be anyone's ancestor
	if category.IsNew() {
		return nil
	}

	graph := s.graph.WithReader(repo)
	for _, pid := range category.ParentIDs {
		check, err := graph.WouldCreateCycle(ctx, category.ID, pid)
		if err != nil {
			return err
		}
		if check.Cyclic {
			s.metrics.CycleRejected(ctx)
			s.logger.Info("parent assignment rejected",
				zap.Int64("category_id", category.ID),
				zap.Int64("parent_id", pid),
			)
			if pid == category.ID {
				return taxonomy.ErrSelfParent
			}
			return shared.NewDomainError(taxonomy.CodeCircularReference,
				fmt.Sprintf("Category %d is an ancestor of %d; assigning it as a child would create a cycle", category.ID, pid))
		}
	}
	return nil
}
