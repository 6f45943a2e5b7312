package taxonomy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memReader is an in-memory CategoryReader for graph tests
type memReader struct {
	categories map[int64]*Category
	calls      int
}

func newMemReader() *memReader {
	return &memReader{categories: make(map[int64]*Category)}
}

func (r *memReader) add(id int64, name string, parents ...int64) *Category {
	c := &Category{Name: name, Status: CategoryStatusActive, ParentIDs: parents}
	c.ID = id
	r.categories[id] = c
	return c
}

func (r *memReader) FindByID(ctx context.Context, id int64) (*Category, error) {
	r.calls++
	c, ok := r.categories[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memReader) FindByIDs(ctx context.Context, ids []int64) ([]Category, error) {
	r.calls++
	var out []Category
	for _, id := range ids {
		if c, ok := r.categories[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memReader) FindChildren(ctx context.Context, parentID int64, activeOnly bool) ([]Category, error) {
	r.calls++
	var out []Category
	for _, c := range r.categories {
		if activeOnly && !c.IsActive() {
			continue
		}
		if c.HasParent(parentID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memReader) FindRoots(ctx context.Context, activeOnly bool) ([]Category, error) {
	r.calls++
	var out []Category
	for _, c := range r.categories {
		if activeOnly && !c.IsActive() {
			continue
		}
		if c.IsRoot() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memReader) FindAll(ctx context.Context, activeOnly bool) ([]Category, error) {
	r.calls++
	var out []Category
	for _, c := range r.categories {
		if activeOnly && !c.IsActive() {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

type recordingObserver struct {
	ops []string
}

func (o *recordingObserver) TraversalTruncated(ctx context.Context, op string, categoryID int64) {
	o.ops = append(o.ops, op)
}

// abc builds A(root), B(parent A), C(parents A, B)
func abc() *memReader {
	r := newMemReader()
	r.add(1, "A")
	r.add(2, "B", 1)
	r.add(3, "C", 1, 2)
	return r
}

// chain builds 1 <- 2 <- ... <- n, each node the only child of the previous
func chain(n int) *memReader {
	r := newMemReader()
	r.add(1, "n1")
	for i := 2; i <= n; i++ {
		r.add(int64(i), "n"+strings.Repeat("x", i), int64(i-1))
	}
	return r
}

func TestGraph_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	g := NewGraph(abc())

	t.Run("levels take the longest path", func(t *testing.T) {
		for id, want := range map[int64]int{1: 0, 2: 1, 3: 2} {
			got, err := g.Level(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, got, "level of %d", id)
		}
	})

	t.Run("breadcrumbs have one path per parent", func(t *testing.T) {
		bc, err := g.BreadcrumbPaths(ctx, 3)
		require.NoError(t, err)
		assert.False(t, bc.Truncated)
		require.Len(t, bc.Paths, 2)

		assert.Equal(t, []Crumb{{ID: 1, Name: "A", Level: 0}, {ID: 3, Name: "C", Level: 2}}, bc.Paths[0])
		assert.Equal(t, []Crumb{{ID: 1, Name: "A", Level: 0}, {ID: 2, Name: "B", Level: 1}, {ID: 3, Name: "C", Level: 2}}, bc.Paths[1])
	})

	t.Run("A under C is cyclic", func(t *testing.T) {
		check, err := g.WouldCreateCycle(ctx, 1, 3)
		require.NoError(t, err)
		assert.True(t, check.Cyclic)
		assert.False(t, check.Truncated)
	})

	t.Run("C under B is fine", func(t *testing.T) {
		check, err := g.WouldCreateCycle(ctx, 3, 2)
		require.NoError(t, err)
		assert.False(t, check.Cyclic)
	})
}

func TestGraph_WouldCreateCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("self parent is always cyclic", func(t *testing.T) {
		g := NewGraph(newMemReader())
		for _, id := range []int64{1, 42, 999} {
			check, err := g.WouldCreateCycle(ctx, id, id)
			require.NoError(t, err)
			assert.True(t, check.Cyclic)
		}
	})

	t.Run("unrelated categories are not cyclic", func(t *testing.T) {
		r := abc()
		r.add(10, "Other")
		g := NewGraph(r)
		check, err := g.WouldCreateCycle(ctx, 10, 3)
		require.NoError(t, err)
		assert.False(t, check.Cyclic)
	})

	t.Run("fails open when the walk is truncated", func(t *testing.T) {
		r := chain(10)
		obs := &recordingObserver{}
		g := NewGraph(r, WithMaxDepth(3), WithTraversalObserver(obs))

		// 1 is the top of the chain, 9 levels above 10
		check, err := g.WouldCreateCycle(ctx, 1, 10)
		require.NoError(t, err)
		assert.False(t, check.Cyclic)
		assert.True(t, check.Truncated)
		assert.Equal(t, []string{"would_create_cycle"}, obs.ops)
	})

	t.Run("detects ancestors within the bound", func(t *testing.T) {
		g := NewGraph(chain(5))
		check, err := g.WouldCreateCycle(ctx, 1, 5)
		require.NoError(t, err)
		assert.True(t, check.Cyclic)
	})

	t.Run("terminates on corrupt cyclic data", func(t *testing.T) {
		r := newMemReader()
		r.add(1, "a", 2)
		r.add(2, "b", 1)
		r.add(3, "c")
		g := NewGraph(r)
		check, err := g.WouldCreateCycle(ctx, 3, 1)
		require.NoError(t, err)
		assert.False(t, check.Cyclic)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		g := NewGraph(abc())
		_, err := g.WouldCreateCycle(cctx, 1, 3)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGraph_Level(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		g := NewGraph(newMemReader())
		_, err := g.Level(ctx, 7)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("dangling parents are ignored", func(t *testing.T) {
		r := abc()
		r.add(4, "D", 999, 2)
		g := NewGraph(r)
		level, err := g.Level(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 2, level)
	})

	t.Run("only dangling parents gives level zero", func(t *testing.T) {
		r := newMemReader()
		r.add(4, "D", 999)
		g := NewGraph(r)
		level, err := g.Level(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 0, level)
	})

	t.Run("exceeding max depth is an error with partial level", func(t *testing.T) {
		g := NewGraph(chain(8), WithMaxDepth(3))
		level, err := g.Level(ctx, 8)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDepthExceeded))

		var te *TraversalError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, int64(8), te.CategoryID)
		assert.Equal(t, 3, te.MaxDepth)
		assert.Equal(t, level, te.Partial)
		assert.Greater(t, level, 3)
	})

	t.Run("chain exactly at max depth is fine", func(t *testing.T) {
		g := NewGraph(chain(4), WithMaxDepth(3))
		level, err := g.Level(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 3, level)
	})

	t.Run("monotonic along every edge", func(t *testing.T) {
		r := abc()
		r.add(4, "D", 3)
		r.add(5, "E", 1, 4)
		g := NewGraph(r)
		for id, c := range r.categories {
			child, err := g.Level(ctx, id)
			require.NoError(t, err)
			for _, pid := range c.ParentIDs {
				parent, err := g.Level(ctx, pid)
				require.NoError(t, err)
				assert.Greater(t, child, parent)
			}
		}
	})
}

func TestGraph_BreadcrumbPaths(t *testing.T) {
	ctx := context.Background()

	t.Run("root yields itself", func(t *testing.T) {
		g := NewGraph(abc())
		bc, err := g.BreadcrumbPaths(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, [][]Crumb{{{ID: 1, Name: "A", Level: 0}}}, bc.Paths)
	})

	t.Run("dangling direct parent is skipped", func(t *testing.T) {
		r := abc()
		r.add(4, "D", 999, 2)
		g := NewGraph(r)
		bc, err := g.BreadcrumbPaths(ctx, 4)
		require.NoError(t, err)
		require.Len(t, bc.Paths, 1)
		assert.Equal(t, []int64{1, 2, 4}, crumbIDs(bc.Paths[0]))
	})

	t.Run("all parents dangling yields itself", func(t *testing.T) {
		r := newMemReader()
		r.add(4, "D", 998, 999)
		g := NewGraph(r)
		bc, err := g.BreadcrumbPaths(ctx, 4)
		require.NoError(t, err)
		require.Len(t, bc.Paths, 1)
		assert.Equal(t, []int64{4}, crumbIDs(bc.Paths[0]))
	})

	t.Run("walks first parent only above the direct parent", func(t *testing.T) {
		r := newMemReader()
		r.add(1, "R1")
		r.add(2, "R2")
		r.add(3, "Mid", 1, 2)
		r.add(4, "Leaf", 3)
		g := NewGraph(r)
		bc, err := g.BreadcrumbPaths(ctx, 4)
		require.NoError(t, err)
		require.Len(t, bc.Paths, 1)
		assert.Equal(t, []int64{1, 3, 4}, crumbIDs(bc.Paths[0]))
	})

	t.Run("long chains are truncated and flagged", func(t *testing.T) {
		g := NewGraph(chain(10), WithMaxDepth(3))
		bc, err := g.BreadcrumbPaths(ctx, 10)
		require.NoError(t, err)
		assert.True(t, bc.Truncated)
		require.Len(t, bc.Paths, 1)
		assert.Equal(t, []int64{7, 8, 9, 10}, crumbIDs(bc.Paths[0]))
	})
}

func TestGraph_ChildrenAndRoots(t *testing.T) {
	ctx := context.Background()
	r := newMemReader()
	r.add(1, "root")
	r.add(2, "zeta", 1)
	r.add(3, "Alpha", 1)
	r.add(4, "beta", 1).Status = CategoryStatusInactive
	r.add(5, "Another root")
	g := NewGraph(r)

	t.Run("children ordered by name ignoring case", func(t *testing.T) {
		children, err := g.Children(ctx, 1, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "beta", "zeta"}, names(children))
	})

	t.Run("active only", func(t *testing.T) {
		children, err := g.Children(ctx, 1, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "zeta"}, names(children))
	})

	t.Run("roots ordered by name", func(t *testing.T) {
		roots, err := g.RootCategories(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Another root", "root"}, names(roots))
	})

	t.Run("is root", func(t *testing.T) {
		isRoot, err := g.IsRoot(ctx, 5)
		require.NoError(t, err)
		assert.True(t, isRoot)

		isRoot, err = g.IsRoot(ctx, 2)
		require.NoError(t, err)
		assert.False(t, isRoot)
	})

	t.Run("children count includes inactive", func(t *testing.T) {
		count, err := g.ChildrenCount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestGraph_Parents(t *testing.T) {
	r := abc()
	r.add(4, "D", 2, 999, 1)
	g := NewGraph(r)

	parents, err := g.Parents(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, names(parents))
}

func TestGraph_DescendantsOf(t *testing.T) {
	ctx := context.Background()

	t.Run("multi parent nodes appear once", func(t *testing.T) {
		g := NewGraph(abc())
		d, err := g.DescendantsOf(ctx, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{2, 3}, d.IDs)
		assert.False(t, d.Truncated)
		assert.True(t, d.Contains(3))
		assert.False(t, d.Contains(1))
	})

	t.Run("bounded by max depth", func(t *testing.T) {
		g := NewGraph(chain(10), WithMaxDepth(3))
		d, err := g.DescendantsOf(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3, 4}, d.IDs)
		assert.True(t, d.Truncated)
	})

	t.Run("leaf has none", func(t *testing.T) {
		g := NewGraph(abc())
		d, err := g.DescendantsOf(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, d.IDs)
	})
}

func TestGraph_RootOfAndAncestry(t *testing.T) {
	ctx := context.Background()
	g := NewGraph(abc())

	root, err := g.RootOf(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), root.ID)

	ok, err := g.IsAncestorOf(ctx, 1, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.IsAncestorOf(ctx, 3, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewGraph(chain(9), WithMaxDepth(2)).RootOf(ctx, 9)
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

func TestGraph_Walk(t *testing.T) {
	ctx := context.Background()

	t.Run("visits multi parent nodes under each parent", func(t *testing.T) {
		g := NewGraph(abc())
		var visited []string
		truncated, err := g.Walk(ctx, false, func(step WalkStep) (bool, error) {
			visited = append(visited, strings.Repeat("-", step.Depth)+step.Category.Name)
			return true, nil
		})
		require.NoError(t, err)
		assert.False(t, truncated)
		assert.Equal(t, []string{"A", "-B", "--C", "-C"}, visited)
	})

	t.Run("skip subtree", func(t *testing.T) {
		g := NewGraph(abc())
		var visited []int64
		_, err := g.Walk(ctx, false, func(step WalkStep) (bool, error) {
			if step.Category.ID == 2 {
				return false, nil
			}
			visited = append(visited, step.Category.ID)
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, visited)
	})

	t.Run("category with only dangling parents is visited as a root", func(t *testing.T) {
		r := abc()
		r.add(4, "D", 999)
		r.add(5, "E", 4)
		g := NewGraph(r)
		var visited []string
		_, err := g.Walk(ctx, false, func(step WalkStep) (bool, error) {
			visited = append(visited, strings.Repeat("-", step.Depth)+step.Category.Name)
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "-B", "--C", "-C", "D", "-E"}, visited)
	})

	t.Run("children of inactive parents stay hidden", func(t *testing.T) {
		r := newMemReader()
		r.add(1, "A")
		r.add(2, "Off", 1).Status = CategoryStatusInactive
		r.add(3, "Under off", 2)
		g := NewGraph(r)
		var visited []int64
		_, err := g.Walk(ctx, true, func(step WalkStep) (bool, error) {
			visited = append(visited, step.Category.ID)
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, visited)
	})

	t.Run("depth bound", func(t *testing.T) {
		g := NewGraph(chain(6), WithMaxDepth(2))
		count := 0
		truncated, err := g.Walk(ctx, false, func(step WalkStep) (bool, error) {
			count++
			return true, nil
		})
		require.NoError(t, err)
		assert.True(t, truncated)
		assert.Equal(t, 3, count)
	})
}

func TestGraph_MemoisesPerCallOnly(t *testing.T) {
	r := abc()
	g := NewGraph(r)
	ctx := context.Background()

	_, err := g.Level(ctx, 3)
	require.NoError(t, err)
	first := r.calls

	// a fresh call must observe a rename done in between
	r.categories[1].Name = "A2"
	bc, err := g.BreadcrumbPaths(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "A2", bc.Paths[0][0].Name)
	assert.Greater(t, r.calls, first)
}

func crumbIDs(path []Crumb) []int64 {
	ids := make([]int64, len(path))
	for i, c := range path {
		ids[i] = c.ID
	}
	return ids
}

func names(categories []Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.Name
	}
	return out
}
