package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/newsdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrDepthExceeded is matched by every TraversalError
var ErrDepthExceeded = shared.NewDomainError(shared.CodeDepthExceeded, "Category hierarchy exceeds the maximum depth")

// TraversalError reports a walk that ran past the configured depth bound.
// Partial holds the value computed up to the point the walk stopped.
type TraversalError struct {
	Op         string
	CategoryID int64
	MaxDepth   int
	Partial    int
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("%s: category %d exceeds max depth %d", e.Op, e.CategoryID, e.MaxDepth)
}

// Unwrap makes errors.Is(err, ErrDepthExceeded) hold
func (e *TraversalError) Unwrap() error {
	return ErrDepthExceeded
}

// TraversalObserver is told about every walk cut short by the depth bound
type TraversalObserver interface {
	TraversalTruncated(ctx context.Context, op string, categoryID int64)
}

// CycleCheck is the outcome of WouldCreateCycle.
// Truncated means the walk hit the depth bound before it could prove anything;
// in that case Cyclic is false.
type CycleCheck struct {
	Cyclic    bool `json:"cyclic"`
	Truncated bool `json:"truncated"`
}

// Crumb is one entry of a breadcrumb path
type Crumb struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// Breadcrumbs holds one root-to-self path per resolvable direct parent
type Breadcrumbs struct {
	Paths     [][]Crumb `json:"paths"`
	Truncated bool      `json:"truncated"`
}

// Descendants is the downward transitive closure of a category
type Descendants struct {
	IDs       []int64 `json:"ids"`
	Truncated bool    `json:"truncated"`
}

// Contains reports whether id is among the descendants
func (d Descendants) Contains(id int64) bool {
	for _, v := range d.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// WalkStep is handed to the Walk visitor for every category reached
type WalkStep struct {
	Category *Category
	Depth    int
	// Path holds the ids from the root down to the parent of Category
	Path []int64
}

// Graph answers structural questions about the category DAG.
// It keeps no state between calls: every method loads what it needs through
// the reader and memoises lookups only for the duration of that call.
type Graph struct {
	reader   CategoryReader
	maxDepth int
	logger   *zap.Logger
	observer TraversalObserver
}

// GraphOption is a functional option for configuring the graph
type GraphOption func(*Graph)

// WithMaxDepth sets the depth bound for every walk. Values below 1 are ignored.
func WithMaxDepth(depth int) GraphOption {
	return func(g *Graph) {
		if depth > 0 {
			g.maxDepth = depth
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) GraphOption {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTraversalObserver sets the observer notified on truncated walks
func WithTraversalObserver(observer TraversalObserver) GraphOption {
	return func(g *Graph) {
		g.observer = observer
	}
}

// NewGraph creates a new category graph over the given reader
func NewGraph(reader CategoryReader, opts ...GraphOption) *Graph {
	g := &Graph{
		reader:   reader,
		maxDepth: DefaultMaxDepth,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxDepth returns the configured depth bound
func (g *Graph) MaxDepth() int {
	return g.maxDepth
}

// WithReader returns a copy of the graph reading through another reader.
// Services use it to run checks against a transaction-bound repository.
func (g *Graph) WithReader(reader CategoryReader) *Graph {
	clone := *g
	clone.reader = reader
	return &clone
}

// WouldCreateCycle reports whether making candidateParentID a parent of
// categoryID would close a cycle.
func (g *Graph) WouldCreateCycle(ctx context.Context, categoryID, candidateParentID int64) (CycleCheck, error) {
	if categoryID == candidateParentID {
		return CycleCheck{Cyclic: true}, nil
	}

	found, truncated, err := g.reachableUpward(ctx, candidateParentID, categoryID)
	if err != nil {
		return CycleCheck{}, err
	}
	if found {
		return CycleCheck{Cyclic: true}, nil
	}
	if truncated {
		g.truncated(ctx, "would_create_cycle", categoryID,
			zap.Int64("candidate_parent_id", candidateParentID))
		return CycleCheck{Truncated: true}, nil
	}
	return CycleCheck{}, nil
}

// IsAncestorOf reports whether ancestorID is reachable upward from categoryID
func (g *Graph) IsAncestorOf(ctx context.Context, ancestorID, categoryID int64) (bool, error) {
	if ancestorID == categoryID {
		return false, nil
	}
	found, truncated, err := g.reachableUpward(ctx, categoryID, ancestorID)
	if err != nil {
		return false, err
	}
	if truncated && !found {
		g.truncated(ctx, "is_ancestor_of", categoryID, zap.Int64("ancestor_id", ancestorID))
	}
	return found, nil
}

// IsRoot reports whether the category has no parents
func (g *Graph) IsRoot(ctx context.Context, categoryID int64) (bool, error) {
	category, err := g.reader.FindByID(ctx, categoryID)
	if err != nil {
		return false, err
	}
	return category.IsRoot(), nil
}

// Children returns the direct children of a category ordered by name
func (g *Graph) Children(ctx context.Context, categoryID int64, activeOnly bool) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	children, err := g.reader.FindChildren(ctx, categoryID, activeOnly)
	if err != nil {
		return nil, err
	}
	sortByName(children)
	return children, nil
}

// ChildrenCount returns the number of direct children, active or not
func (g *Graph) ChildrenCount(ctx context.Context, categoryID int64) (int, error) {
	children, err := g.reader.FindChildren(ctx, categoryID, false)
	if err != nil {
		return 0, err
	}
	return len(children), nil
}

// Parents returns the resolvable direct parents in parent-list order
func (g *Graph) Parents(ctx context.Context, categoryID int64) ([]Category, error) {
	s := g.newSnapshot()
	category, err := s.require(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.prefetch(ctx, category.ParentIDs); err != nil {
		return nil, err
	}

	parents := make([]Category, 0, len(category.ParentIDs))
	for _, id := range category.ParentIDs {
		parent, ok, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			parents = append(parents, *parent)
		}
	}
	return parents, nil
}

// RootCategories returns all categories without parents ordered by name
func (g *Graph) RootCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	roots, err := g.reader.FindRoots(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	sortByName(roots)
	return roots, nil
}

// Level returns the length of the longest resolvable parent chain above the category.
// A chain longer than the depth bound yields a *TraversalError.
func (g *Graph) Level(ctx context.Context, categoryID int64) (int, error) {
	s := g.newSnapshot()
	if _, err := s.require(ctx, categoryID); err != nil {
		return 0, err
	}
	level, err := g.level(ctx, s, categoryID)
	if err != nil {
		var te *TraversalError
		if errors.As(err, &te) {
			g.truncated(ctx, "level", categoryID)
		}
		return level, err
	}
	return level, nil
}

// BreadcrumbPaths returns one path per resolvable direct parent. Each path is
// built by following the first resolvable parent upward until a root, and ends
// with the category itself. A category without resolvable parents gets a single
// path holding only itself.
func (g *Graph) BreadcrumbPaths(ctx context.Context, categoryID int64) (Breadcrumbs, error) {
	s := g.newSnapshot()
	self, err := s.require(ctx, categoryID)
	if err != nil {
		return Breadcrumbs{}, err
	}
	if err := s.prefetch(ctx, self.ParentIDs); err != nil {
		return Breadcrumbs{}, err
	}

	var result Breadcrumbs
	crumb := func(c *Category) (Crumb, error) {
		level, err := g.level(ctx, s, c.ID)
		if err != nil {
			var te *TraversalError
			if !errors.As(err, &te) {
				return Crumb{}, err
			}
			result.Truncated = true
			level = te.Partial
		}
		return Crumb{ID: c.ID, Name: c.Name, Level: level}, nil
	}

	selfCrumb, err := crumb(self)
	if err != nil {
		return Breadcrumbs{}, err
	}

	for _, parentID := range self.ParentIDs {
		current, ok, err := s.get(ctx, parentID)
		if err != nil {
			return Breadcrumbs{}, err
		}
		if !ok {
			continue
		}

		chain := make([]Crumb, 0, g.maxDepth+1)
		seen := map[int64]struct{}{self.ID: {}}
		for depth := 0; current != nil; depth++ {
			if depth >= g.maxDepth {
				result.Truncated = true
				break
			}
			if _, loop := seen[current.ID]; loop {
				result.Truncated = true
				break
			}
			seen[current.ID] = struct{}{}

			c, err := crumb(current)
			if err != nil {
				return Breadcrumbs{}, err
			}
			chain = append(chain, c)

			current, err = s.firstParent(ctx, current)
			if err != nil {
				return Breadcrumbs{}, err
			}
		}

		path := make([]Crumb, 0, len(chain)+1)
		for i := len(chain) - 1; i >= 0; i-- {
			path = append(path, chain[i])
		}
		result.Paths = append(result.Paths, append(path, selfCrumb))
	}

	if len(result.Paths) == 0 {
		result.Paths = [][]Crumb{{selfCrumb}}
	}
	if result.Truncated {
		g.truncated(ctx, "breadcrumb_paths", categoryID)
	}
	return result, nil
}

// RootOf follows the first resolvable parent until it reaches a category
// without resolvable parents.
func (g *Graph) RootOf(ctx context.Context, categoryID int64) (*Category, error) {
	s := g.newSnapshot()
	current, err := s.require(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	for depth := 0; ; depth++ {
		parent, err := s.firstParent(ctx, current)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return current, nil
		}
		if depth >= g.maxDepth {
			g.truncated(ctx, "root_of", categoryID)
			return nil, &TraversalError{Op: "root_of", CategoryID: categoryID, MaxDepth: g.maxDepth, Partial: depth}
		}
		current = parent
	}
}

// DescendantsOf returns every category reachable downward, in breadth-first order.
// The walk stops after maxDepth layers and flags the result as truncated when
// the last layer still has children.
func (g *Graph) DescendantsOf(ctx context.Context, categoryID int64) (Descendants, error) {
	s := g.newSnapshot()
	if _, err := s.require(ctx, categoryID); err != nil {
		return Descendants{}, err
	}

	visited := map[int64]struct{}{categoryID: {}}
	result := Descendants{IDs: make([]int64, 0)}
	frontier := []int64{categoryID}

	for depth := 1; len(frontier) > 0; depth++ {
		var next []int64
		for _, id := range frontier {
			children, err := s.children(ctx, id)
			if err != nil {
				return Descendants{}, err
			}
			for _, child := range children {
				if _, ok := visited[child.ID]; ok {
					continue
				}
				if depth > g.maxDepth {
					result.Truncated = true
					break
				}
				visited[child.ID] = struct{}{}
				result.IDs = append(result.IDs, child.ID)
				next = append(next, child.ID)
			}
			if result.Truncated {
				break
			}
		}
		if result.Truncated {
			break
		}
		frontier = next
	}

	if result.Truncated {
		g.truncated(ctx, "descendants_of", categoryID)
	}
	return result, nil
}

// Walk visits the forest depth-first starting from the roots, children in name
// order. A category with several parents is visited once under each of them;
// one whose parents are all dangling is visited as a root.
// The visitor returns false to skip the subtree below the current category.
// Walk reports whether any branch was cut by the depth bound or a loop.
func (g *Graph) Walk(ctx context.Context, activeOnly bool, visit func(step WalkStep) (bool, error)) (bool, error) {
	all, err := g.reader.FindAll(ctx, activeOnly)
	if err != nil {
		return false, err
	}
	// inactive parents still exist, so their children stay hidden rather than becoming roots
	existing := make(map[int64]struct{}, len(all))
	known := all
	if activeOnly {
		if known, err = g.reader.FindAll(ctx, false); err != nil {
			return false, err
		}
	}
	for _, c := range known {
		existing[c.ID] = struct{}{}
	}

	byParent := make(map[int64][]*Category)
	var roots []*Category
	for i := range all {
		c := &all[i]
		if !hasResolvableParent(c, existing) {
			roots = append(roots, c)
			continue
		}
		for _, pid := range c.ParentIDs {
			byParent[pid] = append(byParent[pid], c)
		}
	}
	sortPtrsByName(roots)
	for pid := range byParent {
		sortPtrsByName(byParent[pid])
	}

	truncated := false
	onPath := make(map[int64]struct{})
	var dfs func(c *Category, depth int, path []int64) error
	dfs = func(c *Category, depth int, path []int64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		descend, err := visit(WalkStep{Category: c, Depth: depth, Path: path})
		if err != nil || !descend {
			return err
		}
		kids := byParent[c.ID]
		if len(kids) == 0 {
			return nil
		}
		if depth >= g.maxDepth {
			truncated = true
			return nil
		}

		onPath[c.ID] = struct{}{}
		defer delete(onPath, c.ID)
		childPath := append(append(make([]int64, 0, len(path)+1), path...), c.ID)
		for _, child := range kids {
			if _, loop := onPath[child.ID]; loop {
				truncated = true
				continue
			}
			if err := dfs(child, depth+1, childPath); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := dfs(root, 0, nil); err != nil {
			return truncated, err
		}
	}
	if truncated {
		g.truncated(ctx, "walk", 0)
	}
	return truncated, nil
}

// reachableUpward walks parent edges breadth-first from start looking for target.
// It explores at most maxDepth+1 layers of parents.
func (g *Graph) reachableUpward(ctx context.Context, start, target int64) (found, truncated bool, err error) {
	s := g.newSnapshot()
	visited := map[int64]struct{}{start: {}}
	frontier := []int64{start}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth > g.maxDepth {
			return false, true, nil
		}
		if err := s.prefetch(ctx, frontier); err != nil {
			return false, false, err
		}

		var next []int64
		for _, id := range frontier {
			c, ok, err := s.get(ctx, id)
			if err != nil {
				return false, false, err
			}
			if !ok {
				continue
			}
			for _, pid := range c.ParentIDs {
				if pid == target {
					return true, false, nil
				}
				if _, seen := visited[pid]; seen {
					continue
				}
				visited[pid] = struct{}{}
				next = append(next, pid)
			}
		}
		frontier = next
	}
	return false, false, nil
}

// level computes the longest chain above id with an explicit depth counter
func (g *Graph) level(ctx context.Context, s *snapshot, id int64) (int, error) {
	var visit func(id int64, depth int) (int, error)
	visit = func(id int64, depth int) (int, error) {
		if lvl, ok := s.levels[id]; ok {
			if depth+lvl > g.maxDepth {
				return 0, &TraversalError{Op: "level", CategoryID: id, MaxDepth: g.maxDepth, Partial: depth + lvl}
			}
			return lvl, nil
		}
		c, ok, err := s.get(ctx, id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return -1, nil
		}
		if depth > g.maxDepth {
			return 0, &TraversalError{Op: "level", CategoryID: id, MaxDepth: g.maxDepth, Partial: depth}
		}

		best := 0
		for _, pid := range c.ParentIDs {
			pl, err := visit(pid, depth+1)
			if err != nil {
				return 0, err
			}
			if pl >= 0 && pl+1 > best {
				best = pl + 1
			}
		}
		s.levels[id] = best
		return best, nil
	}

	level, err := visit(id, 0)
	if err != nil {
		var te *TraversalError
		if errors.As(err, &te) {
			// report the error against the category that was asked about
			return te.Partial, &TraversalError{Op: te.Op, CategoryID: id, MaxDepth: te.MaxDepth, Partial: te.Partial}
		}
		return 0, err
	}
	if level < 0 {
		return 0, nil
	}
	return level, nil
}

func (g *Graph) truncated(ctx context.Context, op string, categoryID int64, fields ...zap.Field) {
	g.logger.Warn("category traversal truncated at max depth",
		append([]zap.Field{
			zap.String("op", op),
			zap.Int64("category_id", categoryID),
			zap.Int("max_depth", g.maxDepth),
		}, fields...)...)
	if g.observer != nil {
		g.observer.TraversalTruncated(ctx, op, categoryID)
	}
}

// hasResolvableParent reports whether any of c's parents exists. A category
// whose parents are all dangling is treated as a root, as Level and
// BreadcrumbPaths do.
func hasResolvableParent(c *Category, existing map[int64]struct{}) bool {
	for _, pid := range c.ParentIDs {
		if _, ok := existing[pid]; ok {
			return true
		}
	}
	return false
}

func (g *Graph) newSnapshot() *snapshot {
	return &snapshot{
		reader:       g.reader,
		byID:         make(map[int64]*Category),
		missing:      make(map[int64]struct{}),
		levels:       make(map[int64]int),
		childrenByID: make(map[int64][]Category),
	}
}

// snapshot memoises reader lookups for one graph call
type snapshot struct {
	reader       CategoryReader
	byID         map[int64]*Category
	missing      map[int64]struct{}
	levels       map[int64]int
	childrenByID map[int64][]Category
}

func (s *snapshot) require(ctx context.Context, id int64) (*Category, error) {
	c, ok, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (s *snapshot) get(ctx context.Context, id int64) (*Category, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if c, ok := s.byID[id]; ok {
		return c, true, nil
	}
	if _, ok := s.missing[id]; ok {
		return nil, false, nil
	}
	c, err := s.reader.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.missing[id] = struct{}{}
			return nil, false, nil
		}
		return nil, false, err
	}
	s.byID[id] = c
	return c, true, nil
}

// prefetch loads every unknown id in one query and marks the rest as missing
func (s *snapshot) prefetch(ctx context.Context, ids []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var unknown []int64
	for _, id := range ids {
		if _, ok := s.byID[id]; ok {
			continue
		}
		if _, ok := s.missing[id]; ok {
			continue
		}
		unknown = append(unknown, id)
	}
	if len(unknown) == 0 {
		return nil
	}

	found, err := s.reader.FindByIDs(ctx, unknown)
	if err != nil {
		return err
	}
	for i := range found {
		c := found[i]
		s.byID[c.ID] = &c
	}
	for _, id := range unknown {
		if _, ok := s.byID[id]; !ok {
			s.missing[id] = struct{}{}
		}
	}
	return nil
}

// firstParent returns the first parent that resolves, or nil for a root
func (s *snapshot) firstParent(ctx context.Context, c *Category) (*Category, error) {
	for _, pid := range c.ParentIDs {
		parent, ok, err := s.get(ctx, pid)
		if err != nil {
			return nil, err
		}
		if ok {
			return parent, nil
		}
	}
	return nil, nil
}

func (s *snapshot) children(ctx context.Context, id int64) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kids, ok := s.childrenByID[id]; ok {
		return kids, nil
	}
	kids, err := s.reader.FindChildren(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.childrenByID[id] = kids
	return kids, nil
}

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase)
}

func sortByName(categories []Category) {
	cl := newCollator()
	sort.SliceStable(categories, func(i, j int) bool {
		if c := cl.CompareString(categories[i].Name, categories[j].Name); c != 0 {
			return c < 0
		}
		return categories[i].ID < categories[j].ID
	})
}

func sortPtrsByName(categories []*Category) {
	cl := newCollator()
	sort.SliceStable(categories, func(i, j int) bool {
		if c := cl.CompareString(categories[i].Name, categories[j].Name); c != 0 {
			return c < 0
		}
		return categories[i].ID < categories[j].ID
	})
}
