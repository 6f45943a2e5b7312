package taxonomy

import (
	"context"
	"time"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Sync sides reported to metrics
const (
	SideNews     = "news"
	SideCategory = "category"
)

// AssociationService owns the news/category pivot.
// Every write replaces the complete set for one owner; single additions and
// removals read the current set and go through the same replace.
type AssociationService struct {
	assignmentRepo taxonomy.AssignmentRepository
	txScope        TransactionScope
	publisher      shared.EventPublisher
	metrics        Metrics
	logger         *zap.Logger
}

// AssociationServiceOption is a functional option for configuring the association service
type AssociationServiceOption func(*AssociationService)

// WithAssociationEventPublisher sets the publisher for committed sync events
func WithAssociationEventPublisher(publisher shared.EventPublisher) AssociationServiceOption {
	return func(s *AssociationService) {
		s.publisher = publisher
	}
}

// WithAssociationMetrics sets the metrics sink
func WithAssociationMetrics(metrics Metrics) AssociationServiceOption {
	return func(s *AssociationService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithAssociationLogger sets the logger
func WithAssociationLogger(logger *zap.Logger) AssociationServiceOption {
	return func(s *AssociationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAssociationService creates a new AssociationService
func NewAssociationService(
	assignmentRepo taxonomy.AssignmentRepository,
	txScope TransactionScope,
	opts ...AssociationServiceOption,
) *AssociationService {
	s := &AssociationService{
		assignmentRepo: assignmentRepo,
		txScope:        txScope,
		metrics:        noopMetrics{},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync replaces the category set of a news item.
// Ids that do not resolve to a category are dropped with a warning and
// reported in the result; they never fail the call.
func (s *AssociationService) Sync(ctx context.Context, newsID int64, categoryIDs []int64) (result *SyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "association", "sync",
		telemetry.SpanAttrNewsID, newsID,
		telemetry.SpanAttrCount, len(categoryIDs),
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.NewsRepo().FindByID(ctx, newsID); err != nil {
			return err
		}
		var err error
		result, err = s.syncInTx(ctx, repos, newsID, categoryIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishSynced(ctx, newsID, result)
	return result, nil
}

// AddCategory files a news item under one more category.
// It returns true when the category is associated after the call.
func (s *AssociationService) AddCategory(ctx context.Context, newsID, categoryID int64) (bool, error) {
	var (
		result  *SyncResult
		present bool
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.NewsRepo().FindByID(ctx, newsID); err != nil {
			return err
		}
		current, err := repos.AssignmentRepo().CategoryIDsForNews(ctx, newsID)
		if err != nil {
			return err
		}
		if containsID(current, categoryID) {
			present = true
			return nil
		}
		result, err = s.syncInTx(ctx, repos, newsID, append(current, categoryID))
		return err
	})
	if err != nil {
		return false, err
	}
	if present {
		return true, nil
	}

	s.publishSynced(ctx, newsID, result)
	return containsID(result.Applied, categoryID), nil
}

// RemoveCategory takes a news item out of one category.
// It returns true when the category is no longer associated after the call.
func (s *AssociationService) RemoveCategory(ctx context.Context, newsID, categoryID int64) (bool, error) {
	var (
		result *SyncResult
		absent bool
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.NewsRepo().FindByID(ctx, newsID); err != nil {
			return err
		}
		current, err := repos.AssignmentRepo().CategoryIDsForNews(ctx, newsID)
		if err != nil {
			return err
		}
		if !containsID(current, categoryID) {
			absent = true
			return nil
		}
		next := make([]int64, 0, len(current))
		for _, id := range current {
			if id != categoryID {
				next = append(next, id)
			}
		}
		result, err = s.syncInTx(ctx, repos, newsID, next)
		return err
	})
	if err != nil {
		return false, err
	}
	if absent {
		return true, nil
	}

	s.publishSynced(ctx, newsID, result)
	return !containsID(result.Applied, categoryID), nil
}

// SyncCategory replaces the news set of a category.
// Unknown news ids are dropped the same way Sync drops unknown categories.
func (s *AssociationService) SyncCategory(ctx context.Context, categoryID int64, newsIDs []int64) (result *SyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "association", "sync_category",
		telemetry.SpanAttrCategoryID, categoryID,
		telemetry.SpanAttrCount, len(newsIDs),
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	start := time.Now()
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.CategoryRepo().FindByID(ctx, categoryID); err != nil {
			return err
		}

		requested := dedupeIDs(newsIDs)
		existing, err := repos.NewsRepo().ExistingIDs(ctx, requested)
		if err != nil {
			return err
		}
		result = partitionIDs(requested, existing)
		if result.HasDrops() {
			s.reportDrops(ctx, SideCategory, categoryID, result.Dropped)
		}
		return repos.AssignmentRepo().ReplaceForCategory(ctx, categoryID, result.Applied)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SyncCompleted(ctx, SideCategory, time.Since(start))
	return result, nil
}

// CategoriesForItem returns the category ids a news item is filed under
func (s *AssociationService) CategoriesForItem(ctx context.Context, newsID int64) ([]int64, error) {
	return s.assignmentRepo.CategoryIDsForNews(ctx, newsID)
}

// ItemsForCategory returns the news ids filed under a category
func (s *AssociationService) ItemsForCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	return s.assignmentRepo.NewsIDsForCategory(ctx, categoryID)
}

// CountForCategory returns how many news items are filed under a category
func (s *AssociationService) CountForCategory(ctx context.Context, categoryID int64) (int64, error) {
	return s.assignmentRepo.CountForCategory(ctx, categoryID)
}

// syncInTx validates and stores the category set using the transaction-bound
// repositories. The caller has already checked that the news item exists.
func (s *AssociationService) syncInTx(
	ctx context.Context,
	repos TransactionalRepositories,
	newsID int64,
	categoryIDs []int64,
) (*SyncResult, error) {
	start := time.Now()

	requested := dedupeIDs(categoryIDs)
	existing, err := repos.CategoryRepo().ExistingIDs(ctx, requested)
	if err != nil {
		return nil, err
	}
	result := partitionIDs(requested, existing)
	if result.HasDrops() {
		s.reportDrops(ctx, SideNews, newsID, result.Dropped)
	}

	if err := repos.AssignmentRepo().ReplaceForNews(ctx, newsID, result.Applied); err != nil {
		return nil, err
	}

	s.metrics.SyncCompleted(ctx, SideNews, time.Since(start))
	return result, nil
}

func (s *AssociationService) reportDrops(ctx context.Context, side string, ownerID int64, dropped []int64) {
	s.metrics.IDsDropped(ctx, side, len(dropped))
	s.logger.Warn("dropping unresolved ids from association sync",
		zap.String("side", side),
		zap.Int64("owner_id", ownerID),
		zap.Int64s("dropped_ids", dropped),
	)
}

func (s *AssociationService) publishSynced(ctx context.Context, newsID int64, result *SyncResult) {
	event := taxonomy.NewNewsCategoriesSyncedEvent(newsID, result.Applied, result.Dropped)
	publishCommitted(ctx, s.publisher, s.logger, []shared.DomainEvent{event})
}

// dedupeIDs keeps the first occurrence of every id
func dedupeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// partitionIDs splits requested into ids found in existing and the rest,
// keeping the requested order on both sides
func partitionIDs(requested, existing []int64) *SyncResult {
	found := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}
	result := &SyncResult{
		Applied: make([]int64, 0, len(requested)),
		Dropped: []int64{},
	}
	for _, id := range requested {
		if _, ok := found[id]; ok {
			result.Applied = append(result.Applied, id)
		} else {
			result.Dropped = append(result.Dropped, id)
		}
	}
	return result
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
