package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
	"dailynews/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "data.json")

	require.NoError(t, WriteJSONAtomic(path, map[string]int{"a": 1}))

	var got map[string]int
	readFile(t, path, &got)
	assert.Equal(t, map[string]int{"a": 1}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteJSONAtomicCrashBeforeRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.json")
	require.NoError(t, WriteJSONAtomic(path, map[string]string{"v": "old"}))

	rename = func(oldpath, newpath string) error {
		return errors.New("simulated crash")
	}
	t.Cleanup(func() { rename = os.Rename })

	err := WriteJSONAtomic(path, map[string]string{"v": "new"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrStorage)

	var got map[string]string
	readFile(t, path, &got)
	assert.Equal(t, "old", got["v"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteJSONAtomicUnencodable(t *testing.T) {
	dir := t.TempDir()
	err := WriteJSONAtomic(filepath.Join(dir, "bad.json"), map[string]interface{}{"c": make(chan int)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrStorage)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestReadJSONErrors(t *testing.T) {
	dir := t.TempDir()
	var v map[string]int

	err := ReadJSON(filepath.Join(dir, "missing.json"), &v)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, errs.ErrParsing)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	err = ReadJSON(bad, &v)
	assert.ErrorIs(t, err, errs.ErrParsing)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
}

func TestLinkStoreDiff(t *testing.T) {
	dir := t.TempDir()
	store := NewLinkStore(dir, logger.NewNopLogger())
	store.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }

	first, err := store.Save(models.Snapshot{"A": {"u1", "u2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewCount)

	diff, err := store.Save(models.Snapshot{"A": {"u2", "u3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, diff.NewURLs)
	assert.Equal(t, []string{"u1"}, diff.RemovedURLs)
	assert.Equal(t, 2, diff.Total)

	assert.Equal(t, models.Snapshot{"A": {"u2", "u3"}}, store.Today())
	assert.Equal(t, models.Snapshot{"A": {"u2", "u3"}}, store.Previous())

	var meta models.LinksMeta
	readFile(t, filepath.Join(dir, LinksMetaFile), &meta)
	assert.Equal(t, 2, meta.TotalLinks)
	assert.Equal(t, "2024-05-01T08:00:00Z", meta.SavedAtISO)
	assert.InDelta(t, 1714550400, meta.SavedAt, 1)
}

func TestLinksMetaCountsDistinctURLs(t *testing.T) {
	dir := t.TempDir()
	store := NewLinkStore(dir, logger.NewNopLogger())

	_, err := store.Save(models.Snapshot{"national": {"u1"}, "world": {"u1", "u2"}})
	require.NoError(t, err)

	var meta models.LinksMeta
	readFile(t, filepath.Join(dir, LinksMetaFile), &meta)
	assert.Equal(t, 2, meta.TotalLinks)
}

func TestLinkStoreCorruptPreviousDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PreviousLinksFile), []byte("{not json"), 0644))

	tl := logger.NewTestLogger()
	store := NewLinkStore(dir, tl)

	diff, err := store.Save(models.Snapshot{"A": {"u1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, diff.NewURLs)
	assert.Empty(t, diff.RemovedURLs)
	assert.True(t, tl.HasMessage("Ignoring corrupt snapshot"))
}

func TestArticleStoreReplaceNotDuplicate(t *testing.T) {
	dir := t.TempDir()
	store := NewArticleStore(dir, logger.NewNopLogger())
	store.Load()

	_, err := store.Merge([]Entry{
		{Category: "national", Article: models.Article{URL: "u1", Title: "old"}},
		{Category: "national", Article: models.Article{URL: "u2", Title: "other"}},
	}, 2)
	require.NoError(t, err)

	// second run, fresh process
	again := NewArticleStore(dir, logger.NewNopLogger())
	again.Load()
	stats, err := again.Merge([]Entry{
		{Category: "national", Article: models.Article{URL: "u1", Title: "new"}},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Replaced)

	articles := again.For("national")
	require.Len(t, articles, 2)
	var u1 []models.Article
	for _, a := range articles {
		if a.URL == "u1" {
			u1 = append(u1, a)
		}
	}
	require.Len(t, u1, 1)
	assert.Equal(t, "new", u1[0].Title)

	var meta models.ArticlesMeta
	readFile(t, filepath.Join(dir, ArticlesMetaFile), &meta)
	assert.Equal(t, 1, meta.TotalFound)
	assert.Equal(t, 1, meta.Updated)
}

func TestArticleStoreSameURLTwoCategories(t *testing.T) {
	store := NewArticleStore(t.TempDir(), logger.NewNopLogger())
	a := models.Article{URL: "shared", Title: "t"}

	_, err := store.Merge([]Entry{{Category: "national", Article: a}, {Category: "business", Article: a}}, 1)
	require.NoError(t, err)

	assert.Len(t, store.For("national"), 1)
	assert.Len(t, store.For("business"), 1)
	assert.Len(t, store.CachedURLs(), 1)
	assert.Equal(t, 2, store.Count())
	assert.Equal(t, []string{"business", "national"}, store.Categories())
	assert.True(t, store.Has("shared"))
}

func TestArticleStoreLoadDegrades(t *testing.T) {
	dir := t.TempDir()
	store := NewArticleStore(dir, logger.NewNopLogger())

	store.Load()
	assert.Empty(t, store.Categories(), "missing file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ArticlesFile), []byte("[1,2"), 0644))
	store.Load()
	assert.Empty(t, store.Categories(), "corrupt file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ArticlesFile), []byte("null"), 0644))
	store.Load()
	assert.Nil(t, store.For("national"))
	_, err := store.Merge([]Entry{{Category: "world", Article: models.Article{URL: "u"}}}, 1)
	require.NoError(t, err)
}

func TestArticleFileShape(t *testing.T) {
	dir := t.TempDir()
	store := NewArticleStore(dir, logger.NewNopLogger())
	_, err := store.Merge([]Entry{{Category: "world", Article: models.Article{
		URL: "u", Title: "T", Date: "2024-05-01T08:00:00+08:00", Content: "p1\np2",
	}}}, 1)
	require.NoError(t, err)

	var raw map[string][]map[string]interface{}
	readFile(t, filepath.Join(dir, ArticlesFile), &raw)
	require.Len(t, raw["world"], 1)
	for _, key := range []string{"url", "title", "date", "content", "featured_image", "featured_caption"} {
		assert.Contains(t, raw["world"][0], key)
	}
}

func TestManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	m, err := NewManager(dir, logger.NewNopLogger())
	require.NoError(t, err)

	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, LockFile), m.LockPath())
	assert.NotNil(t, m.Links())
	assert.NotNil(t, m.Articles())
	assert.Equal(t, dir, m.DataDir())
}
