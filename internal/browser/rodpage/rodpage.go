// Package rodpage implements page.Client on headless Chromium through the
// DevTools protocol.
package rodpage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"dailynews/pkg/logger"
	"dailynews/pkg/page"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Options configures the browser
type Options struct {
	Headless bool
	// BinPath is a Chromium binary; empty lets the launcher find or download one
	BinPath string
	// ControlURL connects to an already running browser instead of launching
	ControlURL string
	// Token is appended as ?token= to ControlURL for hosted browsers
	Token     string
	UserAgent string
	// Timeout bounds each navigation
	Timeout time.Duration
	Logger  logger.Logger
}

// Browser is a connected Chromium. Every page lives in its own incognito
// context, so workers never share cookies or storage.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     Options
	log      logger.Logger
}

// Launch starts a local browser, or connects to opts.ControlURL
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	b := &Browser{opts: opts, log: log}
	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless).Leakless(true)
		if opts.BinPath != "" {
			l = l.Bin(opts.BinPath)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		b.launcher = l
		controlURL = u
	} else if opts.Token != "" {
		u, err := withToken(controlURL, opts.Token)
		if err != nil {
			return nil, err
		}
		controlURL = u
	}

	// Shutdown must not sever the connection while in-flight fetches drain;
	// each call carries its own context instead.
	browser := rod.New().ControlURL(controlURL).Context(context.WithoutCancel(ctx))
	if err := browser.Connect(); err != nil {
		if b.launcher != nil {
			b.launcher.Kill()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.browser = browser

	log.InfoWithFields("Browser connected", map[string]interface{}{
		"remote":   opts.ControlURL != "",
		"headless": opts.Headless,
	})
	return b, nil
}

func withToken(controlURL, token string) (string, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return "", fmt.Errorf("invalid control url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// NewPage opens a tab in a fresh incognito context
func (b *Browser) NewPage(ctx context.Context) (page.Client, error) {
	inc, err := b.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	p, err := inc.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		inc.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if b.opts.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.opts.UserAgent}); err != nil {
			b.log.WithError(err).Debug("Could not override user agent")
		}
	}
	return &Page{page: p, incognito: inc, timeout: b.opts.Timeout}, nil
}

// Close disconnects, and kills the browser if this process launched it
func (b *Browser) Close() error {
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return err
}

// Page is one Chromium tab
type Page struct {
	page      *rod.Page
	incognito *rod.Browser
	timeout   time.Duration
	url       string
}

func (p *Page) Navigate(ctx context.Context, u string) error {
	ctx, cancel := bounded(ctx, p.timeout)
	defer cancel()

	pg := p.page.Context(ctx)
	if err := pg.Navigate(u); err != nil {
		return err
	}
	if err := pg.WaitLoad(); err != nil {
		return err
	}
	p.url = u
	return nil
}

func (p *Page) URL() string {
	if info, err := p.page.Info(); err == nil && info.URL != "" {
		return info.URL
	}
	return p.url
}

func (p *Page) Query(ctx context.Context, selector string) (page.Element, error) {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, page.ErrNotFound
	}
	return &element{el: el}, nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]page.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	ctx, cancel := bounded(ctx, timeout)
	defer cancel()

	_, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return page.ErrTimeout
		}
		return err
	}
	return nil
}

func (p *Page) Close() error {
	err := p.page.Close()
	if cerr := p.incognito.Close(); err == nil {
		err = cerr
	}
	return err
}

// bounded derives a context that ends after d, or only with ctx when d is
// not positive. The caller must call cancel once the rod call returns.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

type element struct {
	el *rod.Element
}

func wrap(els rod.Elements) []page.Element {
	out := make([]page.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out
}

func (e *element) Text() (string, error) { return e.el.Text() }

func (e *element) Attr(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Query(selector string) (page.Element, error) {
	has, el, err := e.el.Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, page.ErrNotFound
	}
	return &element{el: el}, nil
}

func (e *element) QueryAll(selector string) ([]page.Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

// Click runs the element's own click handler in the page, which is what the
// AJAX pagination controls listen to.
func (e *element) Click(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return err
}
