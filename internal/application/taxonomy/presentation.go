package taxonomy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Presentation defaults
const (
	DefaultIndentUnit    = "--"
	DefaultPathSeparator = " > "
	DefaultTreeCacheTTL  = 10 * time.Minute

	EmptyOptionLabel = "-- Select Parent Category --"

	nameIndent = "│   "
	nameBranch = "├── "
)

// PresentationService builds read-only views of the category graph.
// It never writes and never opens a transaction.
type PresentationService struct {
	categories     taxonomy.CategoryReader
	graph          *taxonomy.Graph
	assignmentRepo taxonomy.AssignmentRepository
	cache          TreeCache
	indentUnit     string
	pathSeparator  string
	cacheTTL       time.Duration
	logger         *zap.Logger
}

// PresentationOption is a functional option for configuring the presentation service
type PresentationOption func(*PresentationService)

// WithTreeCache serves TreeForDisplay from the given cache
func WithTreeCache(cache TreeCache, ttl time.Duration) PresentationOption {
	return func(s *PresentationService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithIndentUnit sets the per-level prefix used by HierarchicalOptionList
func WithIndentUnit(unit string) PresentationOption {
	return func(s *PresentationService) {
		if unit != "" {
			s.indentUnit = unit
		}
	}
}

// WithPathSeparator sets the default separator used by FormattedPaths
func WithPathSeparator(separator string) PresentationOption {
	return func(s *PresentationService) {
		if separator != "" {
			s.pathSeparator = separator
		}
	}
}

// WithPresentationLogger sets the logger
func WithPresentationLogger(logger *zap.Logger) PresentationOption {
	return func(s *PresentationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPresentationService creates a new PresentationService
func NewPresentationService(
	categories taxonomy.CategoryReader,
	graph *taxonomy.Graph,
	assignmentRepo taxonomy.AssignmentRepository,
	opts ...PresentationOption,
) *PresentationService {
	s := &PresentationService{
		categories:     categories,
		graph:          graph,
		assignmentRepo: assignmentRepo,
		indentUnit:     DefaultIndentUnit,
		pathSeparator:  DefaultPathSeparator,
		cacheTTL:       DefaultTreeCacheTTL,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HierarchicalOptionList returns a flat, indented list for parent pickers.
// Roots come first in name order, each followed by its subtree.
func (s *PresentationService) HierarchicalOptionList(ctx context.Context, params OptionListParams) (options []Option, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "presentation", "option_list",
		telemetry.SpanAttrCategoryID, params.ExcludeID,
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	excluded, err := s.excludedIDs(ctx, params.ExcludeID)
	if err != nil {
		return nil, err
	}

	options = make([]Option, 0)
	if params.WithEmpty {
		options = append(options, Option{Value: 0, Label: EmptyOptionLabel})
	}

	_, err = s.graph.Walk(ctx, params.ActiveOnly, func(step taxonomy.WalkStep) (bool, error) {
		if _, skip := excluded[step.Category.ID]; skip {
			return false, nil
		}
		options = append(options, Option{
			Value: step.Category.ID,
			Label: s.optionLabel(step.Category.Name, step.Depth),
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return options, nil
}

// TreeForDisplay materialises the forest as nested nodes
func (s *PresentationService) TreeForDisplay(ctx context.Context, activeOnly bool) (nodes []TreeNode, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "presentation", "tree_for_display")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	key := treeCacheKey(activeOnly)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("tree cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			telemetry.AddEvent(span, "tree_cache_hit")
			return cached, nil
		}
	}

	var steps []taxonomy.WalkStep
	truncated, err := s.graph.Walk(ctx, activeOnly, func(step taxonomy.WalkStep) (bool, error) {
		steps = append(steps, step)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	nodes, _ = buildTree(steps, 0, 0)
	if nodes == nil {
		nodes = []TreeNode{}
	}

	// a truncated tree is served but not cached
	if s.cache != nil && !truncated {
		if err := s.cache.Set(ctx, key, nodes, s.cacheTTL); err != nil {
			s.logger.Warn("tree cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nodes, nil
}

// FormattedPaths renders every breadcrumb path of a category as one string.
// An empty separator falls back to the configured default.
func (s *PresentationService) FormattedPaths(ctx context.Context, categoryID int64, separator string) ([]string, error) {
	if separator == "" {
		separator = s.pathSeparator
	}

	breadcrumbs, err := s.graph.BreadcrumbPaths(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(breadcrumbs.Paths))
	for _, path := range breadcrumbs.Paths {
		names := make([]string, len(path))
		for i, crumb := range path {
			names[i] = crumb.Name
		}
		paths = append(paths, strings.Join(names, separator))
	}
	return paths, nil
}

// FormattedName returns the category name prefixed with box-drawing guides for its level.
// A level cut short by the depth bound is rendered at the depth reached.
func (s *PresentationService) FormattedName(ctx context.Context, categoryID int64) (string, error) {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return "", err
	}
	level, err := s.graph.Level(ctx, categoryID)
	if err != nil {
		var te *taxonomy.TraversalError
		if !errors.As(err, &te) {
			return "", err
		}
		level = te.Partial
	}
	if level == 0 {
		return category.Name, nil
	}
	return strings.Repeat(nameIndent, level) + nameBranch + category.Name, nil
}

// Stats collects the detail view of one category
func (s *PresentationService) Stats(ctx context.Context, categoryID int64) (stats *CategoryStats, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "presentation", "stats", telemetry.SpanAttrCategoryID, categoryID)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	breadcrumbs, err := s.graph.BreadcrumbPaths(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	// every path ends with the category itself
	first := breadcrumbs.Paths[0]
	level := first[len(first)-1].Level

	childrenCount, err := s.graph.ChildrenCount(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	newsCount, err := s.assignmentRepo.CountForCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	parentIDs := make([]int64, len(category.ParentIDs))
	copy(parentIDs, category.ParentIDs)

	return &CategoryStats{
		ID:            category.ID,
		Name:          category.Name,
		Level:         level,
		IsRoot:        category.IsRoot(),
		Active:        category.IsActive(),
		ChildrenCount: childrenCount,
		NewsCount:     newsCount,
		ParentIDs:     parentIDs,
		Breadcrumbs:   breadcrumbs,
		CreatedAt:     category.CreatedAt,
		UpdatedAt:     category.UpdatedAt,
	}, nil
}

// excludedIDs returns the category and everything below it.
// A truncated descendant walk still excludes what it reached.
func (s *PresentationService) excludedIDs(ctx context.Context, excludeID int64) (map[int64]struct{}, error) {
	excluded := make(map[int64]struct{})
	if excludeID <= 0 {
		return excluded, nil
	}
	excluded[excludeID] = struct{}{}

	descendants, err := s.graph.DescendantsOf(ctx, excludeID)
	if errors.Is(err, shared.ErrNotFound) {
		return excluded, nil
	}
	if err != nil {
		return nil, err
	}
	if descendants.Truncated {
		s.logger.Warn("option list exclusion is incomplete",
			zap.Int64("exclude_id", excludeID),
			zap.Int("reached", len(descendants.IDs)),
		)
	}
	for _, id := range descendants.IDs {
		excluded[id] = struct{}{}
	}
	return excluded, nil
}

func (s *PresentationService) optionLabel(name string, depth int) string {
	if depth == 0 {
		return name
	}
	return strings.Repeat(s.indentUnit, depth) + " " + name
}

func treeCacheKey(activeOnly bool) string {
	if activeOnly {
		return "tree:active"
	}
	return "tree:all"
}

// buildTree folds a preorder walk into nested nodes. It consumes steps from i
// while they sit at depth and returns the index of the first step it did not use.
func buildTree(steps []taxonomy.WalkStep, i, depth int) ([]TreeNode, int) {
	var nodes []TreeNode
	for i < len(steps) && steps[i].Depth == depth {
		c := steps[i].Category
		node := TreeNode{
			ID:     c.ID,
			Name:   c.Name,
			Level:  depth,
			Active: c.IsActive(),
		}
		node.Children, i = buildTree(steps, i+1, depth+1)
		if node.Children == nil {
			node.Children = []TreeNode{}
		}
		nodes = append(nodes, node)
	}
	return nodes, i
}
