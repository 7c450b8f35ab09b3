// Package static implements page.Client over plain HTTP and goquery. It
// sees only server-rendered markup, so script-driven pagination does not
// advance, but it needs no browser and is what tests and cron boxes without
// Chromium use.
package static

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"dailynews/pkg/page"

	"github.com/PuerkitoBio/goquery"
)

// Options configures the HTTP client
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// HTTPClient overrides the default client
	HTTPClient *http.Client
}

// Browser hands out independent documents sharing one HTTP client
type Browser struct {
	client    *http.Client
	userAgent string
}

// New creates a static backend
func New(opts Options) *Browser {
	c := opts.HTTPClient
	if c == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c = &http.Client{Timeout: timeout}
	}
	return &Browser{client: c, userAgent: opts.UserAgent}
}

func (b *Browser) NewPage(ctx context.Context) (page.Client, error) {
	return &Client{browser: b}, nil
}

// Close releases idle connections
func (b *Browser) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// Client holds the last document loaded
type Client struct {
	browser *Browser

	mu  sync.RWMutex
	url string
	doc *goquery.Document
}

func (c *Client) Navigate(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if c.browser.userAgent != "" {
		req.Header.Set("User-Agent", c.browser.userAgent)
	}

	resp, err := c.browser.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", target, err)
	}

	c.mu.Lock()
	c.url = resp.Request.URL.String()
	c.doc = doc
	c.mu.Unlock()
	return nil
}

func (c *Client) URL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.url
}

func (c *Client) document() (*goquery.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	return c.doc, nil
}

func (c *Client) Query(ctx context.Context, selector string) (page.Element, error) {
	doc, err := c.document()
	if err != nil {
		return nil, err
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, page.ErrNotFound
	}
	return &element{sel: sel, client: c}, nil
}

func (c *Client) QueryAll(ctx context.Context, selector string) ([]page.Element, error) {
	doc, err := c.document()
	if err != nil {
		return nil, err
	}
	return c.wrap(doc.Find(selector)), nil
}

// WaitFor reports immediately: a fetched document never changes.
func (c *Client) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	doc, err := c.document()
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return page.ErrTimeout
	}
	return nil
}

func (c *Client) Close() error { return nil }

func (c *Client) wrap(sel *goquery.Selection) []page.Element {
	out := make([]page.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{sel: s, client: c})
	})
	return out
}

type element struct {
	sel    *goquery.Selection
	client *Client
}

func (e *element) Text() (string, error) { return e.sel.Text(), nil }

func (e *element) Attr(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *element) Query(selector string) (page.Element, error) {
	s := e.sel.Find(selector).First()
	if s.Length() == 0 {
		return nil, page.ErrNotFound
	}
	return &element{sel: s, client: e.client}, nil
}

func (e *element) QueryAll(selector string) ([]page.Element, error) {
	return e.client.wrap(e.sel.Find(selector)), nil
}

// Click follows the element's href. Anything else, including links back to
// the current page, is a no-op.
func (e *element) Click(ctx context.Context) error {
	href, ok := e.sel.Attr("href")
	if !ok {
		href, ok = e.sel.Closest("a[href]").Attr("href")
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "javascript:") {
		return nil
	}

	base, err := url.Parse(e.client.URL())
	if err != nil {
		return err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	target := base.ResolveReference(ref)
	target.Fragment = ""
	current := *base
	current.Fragment = ""
	if target.String() == current.String() {
		return nil
	}
	return e.client.Navigate(ctx, target.String())
}
