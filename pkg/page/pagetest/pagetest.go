// Package pagetest is an in-memory page.Client for pipeline tests.
//
// A Site maps URLs to Docs. A Doc is a tree of Nodes; a node matches a
// selector when the selector string appears verbatim in its Match list, so
// tests describe exactly which selectors each node answers to without any
// CSS engine. Clicking a node with Target set swaps the page to that
// document, which is how "next page" controls are modelled.
package pagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dailynews/pkg/page"
)

// Node is one element of a fake document.
type Node struct {
	Match    []string
	Text     string
	Attrs    map[string]string
	Children []*Node
	// Target is the Site key loaded when the node is clicked.
	Target string
}

// El returns a node answering to the given selectors.
func El(selectors ...string) *Node {
	return &Node{Match: selectors}
}

func (n *Node) WithText(text string) *Node {
	n.Text = text
	return n
}

func (n *Node) WithAttr(name, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
	return n
}

func (n *Node) WithChildren(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func (n *Node) ClickTo(target string) *Node {
	n.Target = target
	return n
}

func (n *Node) matches(selector string) bool {
	for _, m := range n.Match {
		if m == selector {
			return true
		}
	}
	return false
}

// find collects matching descendants of n (not n itself) in document order.
func (n *Node) find(selector string, first bool, out []*Node) []*Node {
	for _, c := range n.Children {
		if c.matches(selector) {
			out = append(out, c)
			if first {
				return out
			}
		}
		before := len(out)
		out = c.find(selector, first, out)
		if first && len(out) > before {
			return out
		}
	}
	return out
}

// Doc is a fake document.
type Doc struct {
	root *Node
}

// NewDoc builds a document from top-level nodes.
func NewDoc(nodes ...*Node) *Doc {
	return &Doc{root: &Node{Children: nodes}}
}

// Site is a set of documents plus failure injection and request counters.
// It is safe for concurrent use by many pages.
type Site struct {
	mu       sync.Mutex
	docs     map[string]*Doc
	failures map[string]*failure
	requests map[string]int
	open     int
	opened   int

	// Hook runs on every navigation and click-load before the document is
	// served. Returning an error fails the load.
	Hook func(ctx context.Context, url string) error
}

type failure struct {
	remaining int // <0 means forever
	err       error
}

// NewSite creates an empty site.
func NewSite() *Site {
	return &Site{
		docs:     make(map[string]*Doc),
		failures: make(map[string]*failure),
		requests: make(map[string]int),
	}
}

// Add registers doc under url.
func (s *Site) Add(url string, doc *Doc) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[url] = doc
	return s
}

// Fail makes the next n loads of url fail with err. n < 0 fails forever.
func (s *Site) Fail(url string, n int, err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[url] = &failure{remaining: n, err: err}
	return s
}

// Requests reports how many times url was loaded, including failed loads.
func (s *Site) Requests(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[url]
}

// TotalRequests reports all loads across every url.
func (s *Site) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

// OpenPages reports pages created and not yet closed.
func (s *Site) OpenPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// PagesOpened reports how many pages were ever created.
func (s *Site) PagesOpened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// NewPage opens a page on the site. It satisfies page.Factory.
func (s *Site) NewPage(ctx context.Context) (page.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open++
	s.opened++
	return &Page{site: s}, nil
}

func (s *Site) load(ctx context.Context, url string) (*Doc, error) {
	if s.Hook != nil {
		if err := s.Hook(ctx, url); err != nil {
			s.mu.Lock()
			s.requests[url]++
			s.mu.Unlock()
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[url]++

	if f, ok := s.failures[url]; ok && f.remaining != 0 {
		if f.remaining > 0 {
			f.remaining--
		}
		return nil, f.err
	}
	doc, ok := s.docs[url]
	if !ok {
		return nil, fmt.Errorf("pagetest: no document at %s", url)
	}
	return doc, nil
}

// Page is a fake tab bound to a Site.
type Page struct {
	site   *Site
	url    string
	doc    *Doc
	closed bool
}

var _ page.Client = (*Page)(nil)

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := p.site.load(ctx, url)
	if err != nil {
		return err
	}
	p.url, p.doc = url, doc
	return nil
}

func (p *Page) URL() string { return p.url }

func (p *Page) Query(ctx context.Context, selector string) (page.Element, error) {
	if p.doc == nil {
		return nil, page.ErrNotFound
	}
	found := p.doc.root.find(selector, true, nil)
	if len(found) == 0 {
		return nil, page.ErrNotFound
	}
	return &element{node: found[0], page: p}, nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]page.Element, error) {
	if p.doc == nil {
		return nil, nil
	}
	return wrap(p, p.doc.root.find(selector, false, nil)), nil
}

// WaitFor never sleeps: the fake document is static, so the selector is
// either present now or never.
func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.Query(ctx, selector); err != nil {
		return page.ErrTimeout
	}
	return nil
}

func (p *Page) Close() error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.site.open--
	}
	return nil
}

type element struct {
	node *Node
	page *Page
}

func wrap(p *Page, nodes []*Node) []page.Element {
	out := make([]page.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{node: n, page: p})
	}
	return out
}

func (e *element) Text() (string, error) { return e.node.Text, nil }

func (e *element) Attr(name string) (string, bool, error) {
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

func (e *element) Query(selector string) (page.Element, error) {
	found := e.node.find(selector, true, nil)
	if len(found) == 0 {
		return nil, page.ErrNotFound
	}
	return &element{node: found[0], page: e.page}, nil
}

func (e *element) QueryAll(selector string) ([]page.Element, error) {
	return wrap(e.page, e.node.find(selector, false, nil)), nil
}

// Click loads Target into the owning page. A node without a target is a
// no-op click, which leaves the document unchanged.
func (e *element) Click(ctx context.Context) error {
	if e.node.Target == "" {
		return nil
	}
	doc, err := e.page.site.load(ctx, e.node.Target)
	if err != nil {
		return err
	}
	e.page.doc = doc
	return nil
}
