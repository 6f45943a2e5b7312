package taxonomy

import (
	"context"
	"errors"
	"testing"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPresentation(store *memStore, opts ...PresentationOption) *PresentationService {
	graph := taxonomy.NewGraph(store.categoryRepo())
	return NewPresentationService(store.categoryRepo(), graph, store.assignmentRepo(), opts...)
}

func optionLabels(options []Option) []string {
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label
	}
	return labels
}

func TestPresentationService_HierarchicalOptionList(t *testing.T) {
	ctx := context.Background()

	t.Run("multi parent category appears under each parent", func(t *testing.T) {
		store := newMemStore()
		a, b, c := seedABC(store)

		options, err := newPresentation(store).HierarchicalOptionList(ctx, OptionListParams{})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "-- B", "---- C", "-- C"}, optionLabels(options))
		assert.Equal(t, []int64{a, b, c, c}, []int64{options[0].Value, options[1].Value, options[2].Value, options[3].Value})
	})

	t.Run("exclude removes subtree and every other path to it", func(t *testing.T) {
		store := newMemStore()
		_, b, _ := seedABC(store)

		options, err := newPresentation(store).HierarchicalOptionList(ctx, OptionListParams{ExcludeID: b})
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, optionLabels(options))
	})

	t.Run("unknown exclude id is ignored", func(t *testing.T) {
		store := newMemStore()
		seedABC(store)

		options, err := newPresentation(store).HierarchicalOptionList(ctx, OptionListParams{ExcludeID: 99})
		require.NoError(t, err)
		assert.Len(t, options, 4)
	})

	t.Run("empty option and custom indent", func(t *testing.T) {
		store := newMemStore()
		a := seedCategory(store, "news", true)
		seedCategory(store, "Sport", true, a)
		seedCategory(store, "arts", true, a)

		options, err := newPresentation(store, WithIndentUnit("..")).HierarchicalOptionList(ctx, OptionListParams{WithEmpty: true})
		require.NoError(t, err)
		assert.Equal(t, []string{EmptyOptionLabel, "news", ".. arts", ".. Sport"}, optionLabels(options))
		assert.Zero(t, options[0].Value)
	})

	t.Run("active only", func(t *testing.T) {
		store := newMemStore()
		a := seedCategory(store, "A", true)
		seedCategory(store, "Off", false, a)
		seedCategory(store, "On", true, a)

		options, err := newPresentation(store).HierarchicalOptionList(ctx, OptionListParams{ActiveOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "-- On"}, optionLabels(options))
	})
}

func TestPresentationService_TreeForDisplay(t *testing.T) {
	ctx := context.Background()

	t.Run("nested", func(t *testing.T) {
		store := newMemStore()
		a, b, c := seedABC(store)
		z := seedCategory(store, "Z", true)

		tree, err := newPresentation(store).TreeForDisplay(ctx, false)
		require.NoError(t, err)
		require.Len(t, tree, 2)

		root := tree[0]
		assert.Equal(t, a, root.ID)
		assert.Equal(t, 0, root.Level)
		require.Len(t, root.Children, 2)
		assert.Equal(t, b, root.Children[0].ID)
		assert.Equal(t, c, root.Children[1].ID)
		require.Len(t, root.Children[0].Children, 1)
		assert.Equal(t, c, root.Children[0].Children[0].ID)
		assert.Equal(t, 2, root.Children[0].Children[0].Level)
		assert.Empty(t, root.Children[1].Children)

		assert.Equal(t, z, tree[1].ID)
		assert.NotNil(t, tree[1].Children)
	})

	t.Run("empty forest", func(t *testing.T) {
		tree, err := newPresentation(newMemStore()).TreeForDisplay(ctx, true)
		require.NoError(t, err)
		assert.NotNil(t, tree)
		assert.Empty(t, tree)
	})

	t.Run("served from cache until invalidated", func(t *testing.T) {
		store := newMemStore()
		seedABC(store)
		cache := newMapTreeCache()
		service := newPresentation(store, WithTreeCache(cache, 0))

		first, err := service.TreeForDisplay(ctx, true)
		require.NoError(t, err)
		assert.Zero(t, cache.hits)

		seedCategory(store, "Late", true)
		second, err := service.TreeForDisplay(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 1, cache.hits)
		assert.Equal(t, first, second)

		handler := NewTreeCacheInvalidationHandler(cache, nil)
		require.NoError(t, handler.Handle(ctx, taxonomy.NewCategoryCreatedEvent(&taxonomy.Category{Name: "Late"})))

		third, err := service.TreeForDisplay(ctx, true)
		require.NoError(t, err)
		assert.Len(t, third, 2)
	})

	t.Run("cache read failure falls back to the graph", func(t *testing.T) {
		store := newMemStore()
		seedABC(store)
		cache := newMapTreeCache()
		cache.failGet = errors.New("redis down")

		tree, err := newPresentation(store, WithTreeCache(cache, 0)).TreeForDisplay(ctx, false)
		require.NoError(t, err)
		assert.Len(t, tree, 1)
	})
}

func TestPresentationService_FormattedPaths(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a, _, c := seedABC(store)
	service := newPresentation(store)

	paths, err := service.FormattedPaths(ctx, c, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A > C", "A > B > C"}, paths)

	paths, err = service.FormattedPaths(ctx, c, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"A/C", "A/B/C"}, paths)

	paths, err = service.FormattedPaths(ctx, a, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, paths)

	_, err = service.FormattedPaths(ctx, 404, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPresentationService_FormattedName(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a, b, c := seedABC(store)
	service := newPresentation(store)

	name, err := service.FormattedName(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "A", name)

	name, err = service.FormattedName(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "│   ├── B", name)

	name, err = service.FormattedName(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "│   │   ├── C", name)
}

func TestPresentationService_Stats(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a, b, c := seedABC(store)
	n := seedNews(store, "story")
	require.NoError(t, store.assignmentRepo().ReplaceForNews(ctx, n, []int64{c}))

	stats, err := newPresentation(store).Stats(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, c, stats.ID)
	assert.Equal(t, 2, stats.Level)
	assert.False(t, stats.IsRoot)
	assert.True(t, stats.Active)
	assert.Zero(t, stats.ChildrenCount)
	assert.Equal(t, int64(1), stats.NewsCount)
	assert.Equal(t, []int64{a, b}, stats.ParentIDs)
	assert.Len(t, stats.Breadcrumbs.Paths, 2)

	stats, err = newPresentation(store).Stats(ctx, a)
	require.NoError(t, err)
	assert.True(t, stats.IsRoot)
	assert.Equal(t, 2, stats.ChildrenCount)
	assert.Zero(t, stats.NewsCount)
}

func TestTreeCacheInvalidationHandler(t *testing.T) {
	cache := newMapTreeCache()
	handler := NewTreeCacheInvalidationHandler(cache, nil)

	assert.ElementsMatch(t, taxonomy.CategoryEventTypes, handler.EventTypes())
	require.NoError(t, handler.Handle(context.Background(), taxonomy.NewCategoryDeletedEvent(&taxonomy.Category{})))
	assert.Equal(t, 1, cache.invalidated)
}
