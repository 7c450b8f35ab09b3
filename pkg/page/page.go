// Package page defines the narrow browser capability the pipeline depends
// on. Discovery and fetching only ever talk to these interfaces, so the
// control logic runs unchanged against headless Chromium, a static HTML
// backend or the in-memory fake in pagetest.
package page

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound means a selector matched nothing. Callers treat it as
	// "no data", never as a failure of the page.
	ErrNotFound = errors.New("page: element not found")

	// ErrTimeout means WaitFor gave up before the selector appeared.
	ErrTimeout = errors.New("page: wait timed out")
)

// Client is one browser tab.
type Client interface {
	// Navigate loads url and returns once the document is ready.
	Navigate(ctx context.Context, url string) error

	// URL reports the current document location.
	URL() string

	// Query returns the first element matching selector, or ErrNotFound.
	Query(ctx context.Context, selector string) (Element, error)

	// QueryAll returns every element matching selector in document order.
	// No match is an empty slice, not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// WaitFor blocks until selector matches or timeout elapses (ErrTimeout).
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	Close() error
}

// Element is a node inside the current document. Lookups on an element are
// scoped to its subtree and never wait.
type Element interface {
	Text() (string, error)
	Attr(name string) (string, bool, error)
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	Click(ctx context.Context) error
}

// Factory opens independent clients, one per worker.
type Factory interface {
	NewPage(ctx context.Context) (Client, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (Client, error)

func (f FactoryFunc) NewPage(ctx context.Context) (Client, error) { return f(ctx) }

// TextOf returns the trimmed text of the first match of selector under el,
// or "" when there is none.
func TextOf(el Element, selector string) string {
	child, err := el.Query(selector)
	if err != nil {
		return ""
	}
	text, err := child.Text()
	if err != nil {
		return ""
	}
	return CleanText(text)
}

// AttrOf returns attribute name of the first match of selector under el,
// or "" when either is missing.
func AttrOf(el Element, selector, name string) string {
	child := el
	if selector != "" {
		var err error
		if child, err = el.Query(selector); err != nil {
			return ""
		}
	}
	v, ok, err := child.Attr(name)
	if err != nil || !ok {
		return ""
	}
	return CleanText(v)
}

// CleanText collapses runs of whitespace and trims the ends.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
