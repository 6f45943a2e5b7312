package taxonomy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/stretchr/testify/mock"
)

// memStore backs the three in-memory repositories used by the service tests.
// Stored aggregates are copies; callers never share memory with the store.
type memStore struct {
	mu         sync.Mutex
	categories map[int64]taxonomy.Category
	news       map[int64]taxonomy.NewsItem
	pivot      map[int64][]int64
	nextCat    int64
	nextNews   int64
}

func newMemStore() *memStore {
	return &memStore{
		categories: make(map[int64]taxonomy.Category),
		news:       make(map[int64]taxonomy.NewsItem),
		pivot:      make(map[int64][]int64),
	}
}

func (s *memStore) categoryRepo() *memCategoryRepo     { return &memCategoryRepo{s: s} }
func (s *memStore) newsRepo() *memNewsRepo             { return &memNewsRepo{s: s} }
func (s *memStore) assignmentRepo() *memAssignmentRepo { return &memAssignmentRepo{s: s} }

func (s *memStore) txScope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(s.categoryRepo(), s.newsRepo(), s.assignmentRepo())
}

func cloneCategory(c taxonomy.Category) taxonomy.Category {
	c.ClearDomainEvents()
	c.ParentIDs = append([]int64(nil), c.ParentIDs...)
	return c
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type memCategoryRepo struct {
	s *memStore
}

func (r *memCategoryRepo) FindByID(_ context.Context, id int64) (*taxonomy.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := cloneCategory(c)
	return &out, nil
}

func (r *memCategoryRepo) FindByIDs(_ context.Context, ids []int64) ([]taxonomy.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]taxonomy.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			out = append(out, cloneCategory(c))
		}
	}
	return out, nil
}

func (r *memCategoryRepo) find(activeOnly bool, match func(c taxonomy.Category) bool) []taxonomy.Category {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]taxonomy.Category, 0)
	for _, id := range sortedKeys(r.s.categories) {
		c := r.s.categories[id]
		if activeOnly && !c.IsActive() {
			continue
		}
		if match(c) {
			out = append(out, cloneCategory(c))
		}
	}
	return out
}

func (r *memCategoryRepo) FindChildren(_ context.Context, parentID int64, activeOnly bool) ([]taxonomy.Category, error) {
	return r.find(activeOnly, func(c taxonomy.Category) bool { return c.HasParent(parentID) }), nil
}

func (r *memCategoryRepo) FindRoots(_ context.Context, activeOnly bool) ([]taxonomy.Category, error) {
	return r.find(activeOnly, func(c taxonomy.Category) bool { return c.IsRoot() }), nil
}

func (r *memCategoryRepo) FindAll(_ context.Context, activeOnly bool) ([]taxonomy.Category, error) {
	return r.find(activeOnly, func(taxonomy.Category) bool { return true }), nil
}

func (r *memCategoryRepo) HasChildren(ctx context.Context, categoryID int64) (bool, error) {
	children, _ := r.FindChildren(ctx, categoryID, false)
	return len(children) > 0, nil
}

func (r *memCategoryRepo) ExistingIDs(_ context.Context, ids []int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.s.categories[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memCategoryRepo) Save(_ context.Context, category *taxonomy.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if category.IsNew() {
		r.s.nextCat++
		category.ID = r.s.nextCat
	} else if _, ok := r.s.categories[category.ID]; !ok {
		return shared.ErrNotFound
	}
	r.s.categories[category.ID] = cloneCategory(*category)
	return nil
}

func (r *memCategoryRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}

type memNewsRepo struct {
	s *memStore
}

func (r *memNewsRepo) FindByID(_ context.Context, id int64) (*taxonomy.NewsItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.news[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	n.ClearDomainEvents()
	return &n, nil
}

func (r *memNewsRepo) FindByIDs(_ context.Context, ids []int64) ([]taxonomy.NewsItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]taxonomy.NewsItem, 0, len(ids))
	for _, id := range ids {
		if n, ok := r.s.news[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNewsRepo) List(_ context.Context, filter taxonomy.NewsFilter) ([]taxonomy.NewsItem, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []taxonomy.NewsItem
	for _, id := range sortedKeys(r.s.news) {
		n := r.s.news[id]
		if filter.EnabledOnly && !n.IsEnabled() {
			continue
		}
		if filter.CategoryID != 0 && !containsID(r.s.pivot[id], filter.CategoryID) {
			continue
		}
		matched = append(matched, n)
	}
	total := int64(len(matched))
	start := filter.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memNewsRepo) ExistingIDs(_ context.Context, ids []int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.s.news[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memNewsRepo) Save(_ context.Context, item *taxonomy.NewsItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item.IsNew() {
		r.s.nextNews++
		item.ID = r.s.nextNews
	}
	stored := *item
	stored.ClearDomainEvents()
	r.s.news[item.ID] = stored
	return nil
}

func (r *memNewsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.news[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.s.news, id)
	return nil
}

type memAssignmentRepo struct {
	s *memStore
}

func (r *memAssignmentRepo) ReplaceForNews(_ context.Context, newsID int64, categoryIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(categoryIDs) == 0 {
		delete(r.s.pivot, newsID)
		return nil
	}
	r.s.pivot[newsID] = append([]int64(nil), categoryIDs...)
	return nil
}

func (r *memAssignmentRepo) ReplaceForCategory(_ context.Context, categoryID int64, newsIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for newsID, cats := range r.s.pivot {
		next := make([]int64, 0, len(cats))
		for _, c := range cats {
			if c != categoryID {
				next = append(next, c)
			}
		}
		r.s.pivot[newsID] = next
	}
	for _, newsID := range newsIDs {
		r.s.pivot[newsID] = append(r.s.pivot[newsID], categoryID)
	}
	return nil
}

func (r *memAssignmentRepo) CategoryIDsForNews(_ context.Context, newsID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]int64{}, r.s.pivot[newsID]...), nil
}

func (r *memAssignmentRepo) NewsIDsForCategory(_ context.Context, categoryID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]int64, 0)
	for _, newsID := range sortedKeys(r.s.pivot) {
		if containsID(r.s.pivot[newsID], categoryID) {
			out = append(out, newsID)
		}
	}
	return out, nil
}

func (r *memAssignmentRepo) CountForCategory(ctx context.Context, categoryID int64) (int64, error) {
	ids, _ := r.NewsIDsForCategory(ctx, categoryID)
	return int64(len(ids)), nil
}

func (r *memAssignmentRepo) DeleteForNews(_ context.Context, newsID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.pivot, newsID)
	return nil
}

func (r *memAssignmentRepo) DeleteForCategory(_ context.Context, categoryID int64) error {
	return r.ReplaceForCategory(context.Background(), categoryID, nil)
}

var (
	_ taxonomy.CategoryRepository   = (*memCategoryRepo)(nil)
	_ taxonomy.NewsRepository       = (*memNewsRepo)(nil)
	_ taxonomy.AssignmentRepository = (*memAssignmentRepo)(nil)
)

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// recordingMetrics counts the signals reported by the services
type recordingMetrics struct {
	mu      sync.Mutex
	dropped map[string]int
	cycles  int
	syncs   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{dropped: map[string]int{}, syncs: map[string]int{}}
}

func (m *recordingMetrics) IDsDropped(_ context.Context, side string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[side] += count
}

func (m *recordingMetrics) CycleRejected(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
}

func (m *recordingMetrics) SyncCompleted(_ context.Context, side string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs[side]++
}

// mapTreeCache is a TreeCache that counts hits
type mapTreeCache struct {
	mu          sync.Mutex
	entries     map[string][]TreeNode
	hits        int
	invalidated int
	failGet     error
}

func newMapTreeCache() *mapTreeCache {
	return &mapTreeCache{entries: map[string][]TreeNode{}}
}

func (c *mapTreeCache) Get(_ context.Context, key string) ([]TreeNode, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return nil, false, c.failGet
	}
	nodes, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return nodes, ok, nil
}

func (c *mapTreeCache) Set(_ context.Context, key string, nodes []TreeNode, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = nodes
	return nil
}

func (c *mapTreeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]TreeNode{}
	c.invalidated++
	return nil
}

// seedCategory stores a category directly, bypassing the service
func seedCategory(s *memStore, name string, active bool, parents ...int64) int64 {
	c, err := taxonomy.NewCategory(name, "", parents)
	if err != nil {
		panic(err)
	}
	if !active {
		c.Status = taxonomy.CategoryStatusInactive
	}
	if err := s.categoryRepo().Save(context.Background(), c); err != nil {
		panic(err)
	}
	return c.ID
}

// seedNews stores a news item directly, bypassing the service
func seedNews(s *memStore, title string) int64 {
	n, err := taxonomy.NewNewsItem(title, "body of "+title)
	if err != nil {
		panic(err)
	}
	if err := s.newsRepo().Save(context.Background(), n); err != nil {
		panic(err)
	}
	return n.ID
}

// seedABC stores A(root), B(parent A) and C(parents A, B)
func seedABC(s *memStore) (a, b, c int64) {
	a = seedCategory(s, "A", true)
	b = seedCategory(s, "B", true, a)
	c = seedCategory(s, "C", true, a, b)
	return a, b, c
}
