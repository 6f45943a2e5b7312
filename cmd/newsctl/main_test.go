package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t        *testing.T
	config   string
	eventLog string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "newsdesk.toml")
	content := `
[log]
level = "error"

[database]
driver = "sqlite"
sqlite_path = "` + filepath.ToSlash(filepath.Join(dir, "news.db")) + `"

[taxonomy]
max_depth = 5
cache_enabled = true
cache_backend = "memory"
`
	require.NoError(t, os.WriteFile(config, []byte(content), 0o600))
	return &cli{t: t, config: config, eventLog: filepath.Join(dir, "events.jsonl")}
}

func (c *cli) run(args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", c.config, "--event-log", c.eventLog}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustJSON(v any, args ...string) {
	c.t.Helper()
	out, err := c.run(append(args, "-o", "json")...)
	require.NoError(c.t, err, strings.Join(args, " "))
	require.NoError(c.t, json.Unmarshal([]byte(out), v), out)
}

func (c *cli) createCategory(name string, parents ...int64) int64 {
	c.t.Helper()
	args := []string{"category", "create", "--name", name}
	for _, p := range parents {
		args = append(args, "--parent", strconv.FormatInt(p, 10))
	}
	var resp apptaxonomy.CategoryResponse
	c.mustJSON(&resp, args...)
	return resp.ID
}

func TestNewsctl_EndToEnd(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("migrate", "up")
	require.NoError(t, err)

	world := c.createCategory("World")
	europe := c.createCategory("Europe", world)
	politics := c.createCategory("Politics", world, europe)

	t.Run("cycle is refused", func(t *testing.T) {
		_, err := c.run("category", "add-parent", strconv.FormatInt(world, 10), strconv.FormatInt(politics, 10))
		require.Error(t, err)
		assert.ErrorIs(t, err, taxonomy.ErrCircularReference)

		var check taxonomy.CycleCheck
		c.mustJSON(&check, "category", "check-cycle", strconv.FormatInt(world, 10), strconv.FormatInt(politics, 10))
		assert.True(t, check.Cyclic)
	})

	t.Run("tree and options", func(t *testing.T) {
		out, err := c.run("category", "tree")
		require.NoError(t, err)
		assert.Equal(t, "World [1]\n  Europe [2]\n    Politics [3]\n  Politics [3]\n", out)

		var options []apptaxonomy.Option
		c.mustJSON(&options, "category", "options", "--exclude", strconv.FormatInt(europe, 10))
		require.Len(t, options, 1)
		assert.Equal(t, "World", options[0].Label)
	})

	t.Run("paths and level", func(t *testing.T) {
		out, err := c.run("category", "paths", strconv.FormatInt(politics, 10), "--separator", "/")
		require.NoError(t, err)
		assert.Equal(t, "World/Politics\nWorld/Europe/Politics\n", out)

		out, err = c.run("category", "level", strconv.FormatInt(politics, 10))
		require.NoError(t, err)
		assert.Equal(t, "2\n", out)
	})

	t.Run("news filing drops unknown ids", func(t *testing.T) {
		var item apptaxonomy.NewsResponse
		c.mustJSON(&item, "news", "create", "--title", "Summit", "--body", "Leaders meet",
			"--category", strconv.FormatInt(politics, 10), "--category", "999")
		assert.Equal(t, []int64{politics}, item.CategoryIDs)
		assert.Equal(t, []int64{999}, item.DroppedCategoryIDs)

		var result apptaxonomy.SyncResult
		c.mustJSON(&result, "news", "sync", strconv.FormatInt(item.ID, 10),
			strconv.FormatInt(europe, 10), strconv.FormatInt(world, 10))
		assert.Equal(t, []int64{europe, world}, result.Applied)

		var stats apptaxonomy.CategoryStats
		c.mustJSON(&stats, "category", "show", strconv.FormatInt(world, 10))
		assert.Equal(t, int64(1), stats.NewsCount)
		assert.Equal(t, 2, stats.ChildrenCount)
	})

	t.Run("delete with children is refused", func(t *testing.T) {
		_, err := c.run("category", "delete", strconv.FormatInt(europe, 10))
		assert.ErrorIs(t, err, taxonomy.ErrCategoryHasChildren)
	})

	t.Run("events were logged", func(t *testing.T) {
		f, err := os.Open(c.eventLog)
		require.NoError(t, err)
		defer f.Close()

		events, err := event.ReadEventLog(f, event.NewTaxonomyEventSerializer())
		require.NoError(t, err)

		var types []string
		for _, e := range events {
			types = append(types, e.EventType())
		}
		assert.Equal(t, []string{
			taxonomy.EventTypeCategoryCreated,
			taxonomy.EventTypeCategoryCreated,
			taxonomy.EventTypeCategoryCreated,
			taxonomy.EventTypeNewsCreated,
			taxonomy.EventTypeNewsCategoriesSynced,
			taxonomy.EventTypeNewsCategoriesSynced,
		}, types)
	})
}

func TestNewsctl_MigrateCreateAndList(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()

	out, err := c.run("migrate", "create", "--path", dir, "add news slug")
	require.NoError(t, err)
	assert.Contains(t, out, "000001_add_news_slug.up.sql")

	var names []string
	c.mustJSON(&names, "migrate", "list", "--path", dir)
	assert.Len(t, names, 1)

	_, err = c.run("migrate", "down")
	assert.ErrorContains(t, err, "not supported")
}

func TestNewsctl_ArgumentErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("category", "level", "abc")
	assert.ErrorContains(t, err, "invalid id")

	_, err = c.run("category", "list", "-o", "yaml")
	assert.ErrorContains(t, err, "--output")

	_, err = c.run("news", "create", "--title", "no body")
	assert.Error(t, err)
}

func TestNewApp_TieredCacheListensForInvalidations(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	config := filepath.Join(dir, "newsdesk.toml")
	content := `
[log]
level = "error"

[database]
driver = "sqlite"
sqlite_path = "` + filepath.ToSlash(filepath.Join(dir, "news.db")) + `"

[redis]
host = "` + mr.Host() + `"
port = ` + mr.Port() + `

[taxonomy]
cache_enabled = true
cache_backend = "redis"
cache_channel = "test:invalidate"
`
	require.NoError(t, os.WriteFile(config, []byte(content), 0o600))

	ctx, a, err := newApp(context.Background(), &globalOptions{configPath: config}, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, mr.PubSubNumSub("test:invalidate")["test:invalidate"])

	a.close(ctx)
	assert.Eventually(t, func() bool {
		return mr.PubSubNumSub("test:invalidate")["test:invalidate"] == 0
	}, time.Second, 10*time.Millisecond)
}
