package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"dailynews/pkg/page"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<div class="listing">
  <div class="item"><h3><a href="/news/a">A</a></h3><time datetime="2024-05-01T08:00:00">2 hours ago</time></div>
  <div class="item"><h3><a href="/news/b">B</a></h3></div>
</div>
<a class="next" href="/page/2/"><i class="icon"></i></a>
<a class="stay" href="#top">stay</a>
<button class="js-next">more</button>
</body></html>`

const pageTwoHTML = `<html><body><div class="listing"><div class="item"><h3><a href="/news/c">C</a></h3></div></div></body></html>`

func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var gets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/category/", func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		assert.Equal(t, "dailynews-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, listingHTML)
	})
	mux.HandleFunc("/page/2/", func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		fmt.Fprint(w, pageTwoHTML)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &gets
}

func openPage(t *testing.T) page.Client {
	t.Helper()
	b := New(Options{UserAgent: "dailynews-test"})
	t.Cleanup(func() { b.Close() })
	p, err := b.NewPage(context.Background())
	require.NoError(t, err)
	return p
}

func TestQueryAndAttributes(t *testing.T) {
	srv, _ := newServer(t)
	p := openPage(t)
	ctx := context.Background()

	require.NoError(t, p.Navigate(ctx, srv.URL+"/category/world/"))
	assert.Equal(t, srv.URL+"/category/world/", p.URL())

	items, err := p.QueryAll(ctx, ".listing .item")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "/news/a", page.AttrOf(items[0], "h3 a", "href"))
	assert.Equal(t, "2 hours ago", page.TextOf(items[0], "time"))
	assert.Equal(t, "2024-05-01T08:00:00", page.AttrOf(items[0], "time", "datetime"))

	_, err = items[1].Query("time")
	assert.ErrorIs(t, err, page.ErrNotFound)

	_, err = p.Query(ctx, ".missing")
	assert.ErrorIs(t, err, page.ErrNotFound)
}

func TestWaitFor(t *testing.T) {
	srv, _ := newServer(t)
	p := openPage(t)
	ctx := context.Background()

	assert.Error(t, p.WaitFor(ctx, ".listing", 0), "nothing loaded yet")

	require.NoError(t, p.Navigate(ctx, srv.URL+"/category/world/"))
	assert.NoError(t, p.WaitFor(ctx, ".listing", 0))
	assert.ErrorIs(t, p.WaitFor(ctx, ".td-block", 0), page.ErrTimeout)
}

func TestClickFollowsLinks(t *testing.T) {
	srv, gets := newServer(t)
	p := openPage(t)
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, srv.URL+"/category/world/"))

	// same-page anchors and buttons do nothing
	for _, sel := range []string{"a.stay", "button.js-next"} {
		el, err := p.Query(ctx, sel)
		require.NoError(t, err)
		require.NoError(t, el.Click(ctx))
	}
	assert.EqualValues(t, 1, gets.Load())

	icon, err := p.Query(ctx, "a.next i")
	require.NoError(t, err)
	require.NoError(t, icon.Click(ctx))
	assert.EqualValues(t, 2, gets.Load())
	assert.Equal(t, srv.URL+"/page/2/", p.URL())

	items, err := p.QueryAll(ctx, ".listing .item")
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestNavigateErrors(t *testing.T) {
	srv, _ := newServer(t)
	p := openPage(t)

	err := p.Navigate(context.Background(), srv.URL+"/gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 410")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Navigate(ctx, srv.URL+"/category/world/"))
}
