package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
	"dailynews/pkg/page"
	"dailynews/pkg/page/pagetest"
	"dailynews/pkg/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleDoc(title, date string, paras ...string) *pagetest.Doc {
	body := pagetest.El(".vc_column_inner.tdi_84")
	for _, p := range paras {
		body.WithChildren(pagetest.El("p").WithText(p))
	}
	body.WithChildren(
		pagetest.El("img").WithAttr("src", "https://img.test/"+title+".jpg"),
		pagetest.El("figcaption").WithText("  Caption for\n "+title),
	)
	return pagetest.NewDoc(
		pagetest.El(".tdb-title-text").WithText(title),
		pagetest.El("time.entry-date").WithText("May 1, 2024").WithAttr("datetime", date),
		body,
	)
}

func siteWith(urls ...string) *pagetest.Site {
	site := pagetest.NewSite()
	for _, u := range urls {
		site.Add(u, articleDoc("Title "+u, "2024-05-01T08:00:00+08:00", "First.", "Second."))
	}
	return site
}

func newFetcher(site *pagetest.Site, opts Options) *Fetcher {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Millisecond
	}
	return New(site, map[string]rules.ArticleRule{}, opts)
}

func TestExtract(t *testing.T) {
	site := pagetest.NewSite().Add("https://news.test/a/", articleDoc("Budget passes", "2024-05-01T08:00:00+08:00", "Para one.", "  ", "Para\n two."))
	client, _ := site.NewPage(context.Background())

	a, err := Extract(context.Background(), client, "https://news.test/a/", rules.DefaultArticle(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "https://news.test/a/", a.URL)
	assert.Equal(t, "Budget passes", a.Title)
	assert.Equal(t, "2024-05-01T08:00:00+08:00", a.Date)
	assert.Equal(t, "Para one.\nPara two.", a.Content)
	assert.Equal(t, "https://img.test/Budget passes.jpg", a.FeaturedImage)
	assert.Equal(t, "Caption for Budget passes", a.FeaturedCaption)
}

func TestExtractMissingOptionalFields(t *testing.T) {
	site := pagetest.NewSite().Add("u", pagetest.NewDoc(
		pagetest.El(".tdb-title-text").WithText("Bare"),
		pagetest.El("time.entry-date").WithText("1 May 2024"),
	))
	client, _ := site.NewPage(context.Background())

	a, err := Extract(context.Background(), client, "u", rules.DefaultArticle(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Bare", a.Title)
	assert.Equal(t, "1 May 2024", a.Date, "falls back to text without the attribute")
	assert.Empty(t, a.Content)
	assert.Empty(t, a.FeaturedImage)
	assert.Empty(t, a.FeaturedCaption)
}

func TestExtractReadySelectorTimeout(t *testing.T) {
	site := pagetest.NewSite().Add("u", pagetest.NewDoc(pagetest.El("p").WithText("no title")))
	client, _ := site.NewPage(context.Background())

	_, err := Extract(context.Background(), client, "u", rules.DefaultArticle(), time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeTimeout, errs.TypeOf(err))
	assert.True(t, errs.Retryable(err))
}

func TestPlan(t *testing.T) {
	pending := []Pending{
		{Category: "national", URL: "u1"},
		{Category: "business", URL: "u1"},
		{Category: "national", URL: "u1"},
		{Category: "world", URL: "u2"},
		{Category: "world", URL: "cached"},
		{Category: "national", URL: ""},
	}
	cached := map[string]struct{}{"cached": {}}

	jobs, skipped := Plan(pending, cached, false)
	assert.Equal(t, []Job{
		{URL: "u1", Categories: []string{"national", "business"}},
		{URL: "u2", Categories: []string{"world"}},
	}, jobs)
	assert.Equal(t, 1, skipped)

	jobs, skipped = Plan(pending, cached, true)
	assert.Len(t, jobs, 3)
	assert.Equal(t, 0, skipped)
}

func TestFetchIdempotentWhenCached(t *testing.T) {
	site := siteWith("u1", "u2")
	f := newFetcher(site, Options{Concurrency: 2})
	pending := []Pending{{"national", "u1"}, {"world", "u2"}}
	cached := map[string]struct{}{"u1": {}, "u2": {}}

	outcomes, stats, err := f.Fetch(context.Background(), pending, cached, false)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Equal(t, 0, site.TotalRequests())
	assert.Equal(t, 0, site.PagesOpened())
	assert.Equal(t, Stats{Considered: 2, Skipped: 2}, stats)
}

func TestFetchForceRefetches(t *testing.T) {
	site := siteWith("u1")
	f := newFetcher(site, Options{Concurrency: 2})

	outcomes, stats, err := f.Fetch(context.Background(), []Pending{{"national", "u1"}}, map[string]struct{}{"u1": {}}, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 1, site.Requests("u1"))
	assert.Equal(t, 1, stats.Fetched)
	assert.Equal(t, 0, site.OpenPages(), "worker pages closed")
}

func TestFetchRetryBudget(t *testing.T) {
	site := siteWith("ok").Fail("down", -1, page.ErrTimeout)
	tl := logger.NewTestLogger()
	f := newFetcher(site, Options{Concurrency: 2, Retries: 2, Logger: tl})

	outcomes, stats, err := f.Fetch(context.Background(), []Pending{{"national", "down"}, {"national", "ok"}}, nil, false)
	require.NoError(t, err)

	assert.Equal(t, 3, site.Requests("down"))
	assert.Equal(t, 1, site.Requests("ok"))
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Fetched)

	byURL := map[string]Outcome{}
	for _, o := range outcomes {
		byURL[o.URL] = o
	}
	require.Error(t, byURL["down"].Err)
	assert.Equal(t, 3, byURL["down"].Attempts)
	assert.ErrorIs(t, byURL["down"].Err, errs.ErrTimeout)
	assert.NoError(t, byURL["ok"].Err)
	assert.Equal(t, "Title ok", byURL["ok"].Article.Title)

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "down", warns[0].Fields["url"])
	assert.Equal(t, 3, warns[0].Fields["attempts"])
}

func TestFetchRecoversFromTransientFailure(t *testing.T) {
	site := siteWith("flaky").Fail("flaky", 1, errors.New("net::ERR_CONNECTION_RESET"))
	f := newFetcher(site, Options{Retries: 2})

	outcomes, _, err := f.Fetch(context.Background(), []Pending{{"world", "flaky"}}, nil, false)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 2, outcomes[0].Attempts)
	assert.Equal(t, 2, site.Requests("flaky"))
}

func TestFetchGroupsByURL(t *testing.T) {
	site := siteWith("shared")
	f := newFetcher(site, Options{Concurrency: 3})

	outcomes, stats, err := f.Fetch(context.Background(), []Pending{{"national", "shared"}, {"business", "shared"}}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, site.Requests("shared"))
	assert.Equal(t, 1, stats.Dispatched)
	require.Len(t, outcomes, 2)
	cats := []string{outcomes[0].Category, outcomes[1].Category}
	assert.ElementsMatch(t, []string{"national", "business"}, cats)
	assert.Equal(t, outcomes[0].Article, outcomes[1].Article)
}

func TestFetchReportsProgress(t *testing.T) {
	site := siteWith("a", "b", "c")
	var calls [][2]int
	f := newFetcher(site, Options{
		Concurrency: 2,
		OnProgress:  func(done, total int) { calls = append(calls, [2]int{done, total}) },
	})

	_, _, err := f.Fetch(context.Background(),
		[]Pending{{"national", "a"}, {"national", "b"}, {"world", "b"}, {"world", "c"}, {"world", "cached"}},
		map[string]struct{}{"cached": {}}, false)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestFetchBoundsConcurrency(t *testing.T) {
	var urls []string
	var pending []Pending
	for i := 0; i < 8; i++ {
		u := fmt.Sprintf("u%d", i)
		urls = append(urls, u)
		pending = append(pending, Pending{"national", u})
	}
	site := siteWith(urls...)

	var inFlight, peak int32
	site.Hook = func(ctx context.Context, url string) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}

	f := newFetcher(site, Options{Concurrency: 3})
	outcomes, stats, err := f.Fetch(context.Background(), pending, nil, false)
	require.NoError(t, err)
	assert.Len(t, outcomes, 8)
	assert.Equal(t, 8, stats.Fetched)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 3, site.PagesOpened())
}

func TestFetchShutdownDrains(t *testing.T) {
	site := siteWith("u1", "u2", "u3")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	site.Hook = func(_ context.Context, url string) error {
		if url == "u1" {
			once.Do(cancel)
			// still in flight after the shutdown signal
			time.Sleep(20 * time.Millisecond)
		}
		return nil
	}

	f := newFetcher(site, Options{Concurrency: 1})
	outcomes, stats, err := f.Fetch(ctx, []Pending{{"n", "u1"}, {"n", "u2"}, {"n", "u3"}}, nil, false)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	byURL := map[string]Outcome{}
	for _, o := range outcomes {
		byURL[o.URL] = o
	}
	assert.NoError(t, byURL["u1"].Err, "in-flight fetch completes")
	assert.Equal(t, "Title u1", byURL["u1"].Article.Title)
	assert.ErrorIs(t, byURL["u2"].Err, errs.ErrShutdown)
	assert.ErrorIs(t, byURL["u3"].Err, errs.ErrShutdown)
	assert.Equal(t, 0, site.Requests("u2"))
	assert.Equal(t, 0, site.Requests("u3"))
	assert.Equal(t, 1, stats.Fetched)
	assert.Equal(t, 2, stats.Failed)
}

func TestFetchShutdownCutsBackoff(t *testing.T) {
	site := pagetest.NewSite().Fail("down", -1, errors.New("reset"))
	ctx, cancel := context.WithCancel(context.Background())
	site.Hook = func(context.Context, string) error {
		cancel()
		return nil
	}

	f := newFetcher(site, Options{Retries: 5, BackoffBase: time.Hour})
	start := time.Now()
	outcomes, _, err := f.Fetch(ctx, []Pending{{"n", "down"}}, nil, false)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, errs.ErrShutdown)
	assert.Equal(t, 1, site.Requests("down"))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestFetchPoolStartFailure(t *testing.T) {
	site := siteWith("u1", "u2")
	calls := 0
	factory := page.FactoryFunc(func(ctx context.Context) (page.Client, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("browser gone")
		}
		return site.NewPage(ctx)
	})

	f := New(factory, nil, Options{Concurrency: 2, Logger: logger.NewNopLogger()})
	_, _, err := f.Fetch(context.Background(), []Pending{{"n", "u1"}, {"n", "u2"}}, nil, false)
	require.Error(t, err)
	assert.Equal(t, 0, site.OpenPages())
	assert.Equal(t, 0, site.TotalRequests())
}
