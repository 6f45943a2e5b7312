package persistence

import (
	"context"
	"testing"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveNews(t *testing.T, repo *GormNewsRepository, title string, enabled bool) *taxonomy.NewsItem {
	t.Helper()
	item, err := taxonomy.NewNewsItem(title, "body of "+title)
	require.NoError(t, err)
	item.SetEnabled(enabled)
	require.NoError(t, repo.Save(context.Background(), item))
	return item
}

func newsIDs(items []taxonomy.NewsItem) []int64 {
	ids := make([]int64, len(items))
	for i, n := range items {
		ids[i] = n.ID
	}
	return ids
}

func TestGormNewsRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewGormNewsRepository(newTestDatabase(t).DB)

	item := saveNews(t, repo, "Launch day", true)
	assert.NotZero(t, item.ID)

	found, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch day", found.Title)
	assert.Equal(t, "body of Launch day", found.Body)
	assert.True(t, found.IsEnabled())

	require.NoError(t, found.Update("Launch night", "new body", "img/launch.png"))
	require.NoError(t, repo.Save(ctx, found))

	found, err = repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch night", found.Title)
	assert.Equal(t, "img/launch.png", found.Image)

	existing, err := repo.ExistingIDs(ctx, []int64{item.ID, 777})
	require.NoError(t, err)
	assert.Equal(t, []int64{item.ID}, existing)

	byIDs, err := repo.FindByIDs(ctx, []int64{777, item.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{item.ID}, newsIDs(byIDs))

	require.NoError(t, repo.Delete(ctx, item.ID))
	_, err = repo.FindByID(ctx, item.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, item.ID), shared.ErrNotFound)
}

func TestGormNewsRepository_List(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormNewsRepository(db.DB)
	assignments := NewGormAssignmentRepository(db.DB)

	alpha := saveNews(t, repo, "Alpha report", true)
	beta := saveNews(t, repo, "Beta report", true)
	gamma := saveNews(t, repo, "Gamma draft", false)
	delta := saveNews(t, repo, "Delta report", true)

	require.NoError(t, assignments.ReplaceForCategory(ctx, 5, []int64{alpha.ID, gamma.ID, delta.ID}))

	t.Run("category and enabled filters", func(t *testing.T) {
		items, total, err := repo.List(ctx, taxonomy.NewsFilter{
			Filter:      shared.Filter{Page: 1, PageSize: 10, OrderBy: "id", OrderDir: "asc"},
			CategoryID:  5,
			EnabledOnly: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, []int64{alpha.ID, delta.ID}, newsIDs(items))
	})

	t.Run("pagination keeps the full count", func(t *testing.T) {
		items, total, err := repo.List(ctx, taxonomy.NewsFilter{
			Filter: shared.Filter{Page: 2, PageSize: 3, OrderBy: "id", OrderDir: "asc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Equal(t, []int64{delta.ID}, newsIDs(items))
	})

	t.Run("search and title ordering", func(t *testing.T) {
		items, total, err := repo.List(ctx, taxonomy.NewsFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "title", OrderDir: "desc", Search: "REPORT"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []int64{delta.ID, beta.ID, alpha.ID}, newsIDs(items))
	})

	t.Run("unknown order column falls back", func(t *testing.T) {
		_, total, err := repo.List(ctx, taxonomy.NewsFilter{
			Filter: shared.Filter{OrderBy: "body; DROP TABLE news_items"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})
}
