// Package discovery walks category listings and collects the URLs of
// articles published today.
package discovery

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"dailynews/pkg/config"
	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
	"dailynews/pkg/models"
	"dailynews/pkg/page"
	"dailynews/pkg/retry"
	"dailynews/pkg/rules"
)

const dateLayout = "2006-01-02"

// Options tunes a Discoverer
type Options struct {
	// PageTimeout bounds navigation, the listing wait and the wait for a
	// next page to replace the current one.
	PageTimeout  time.Duration
	PollInterval time.Duration
	Logger       logger.Logger
	// Now is the clock used to decide what "today" is.
	Now func() time.Time
}

// Result is one category's discovery outcome
type Result struct {
	Category string
	URLs     []string
	Pages    int
}

// Discoverer reads listing pages through a single page client
type Discoverer struct {
	client page.Client
	opts   Options
	log    logger.Logger
}

// New creates a Discoverer driving client
func New(client page.Client, opts Options) *Discoverer {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 10 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Discoverer{
		client: client,
		opts:   opts,
		log:    log.WithField("component", "discovery"),
	}
}

// DiscoverAll runs every category in order. A failing category is reported
// in the error map and left out of the snapshot; the others still run.
// onCategory, when non-nil, is called after each category.
func (d *Discoverer) DiscoverAll(ctx context.Context, cats []config.CategoryConfig, onCategory func(Result, error)) (models.Snapshot, map[string]error) {
	snapshot := models.Snapshot{}
	failures := make(map[string]error)

	for _, cat := range cats {
		var (
			res Result
			err error
		)
		if ctx.Err() != nil {
			err = errs.New(errs.ErrorTypeShutdown, cat.URL, "discovery interrupted", ctx.Err())
			res = Result{Category: cat.Name}
		} else {
			res, err = d.Discover(ctx, cat)
		}

		logger.LogCategoryResult(d.log, cat.Name, len(res.URLs), res.Pages, err)
		if err != nil {
			failures[cat.Name] = err
		} else {
			snapshot[cat.Name] = res.URLs
		}
		if onCategory != nil {
			onCategory(res, err)
		}
	}

	return snapshot, failures
}

// Discover collects today's links for one category: the hero slot first,
// then listing pages until a page contributes nothing from today.
func (d *Discoverer) Discover(ctx context.Context, cat config.CategoryConfig) (Result, error) {
	rule := cat.ListingRule()
	res := Result{Category: cat.Name, URLs: []string{}}
	log := d.log.WithField("category", cat.Name)

	base, err := url.Parse(cat.URL)
	if err != nil {
		return res, errs.New(errs.ErrorTypeNavigation, cat.URL, "invalid category url", err)
	}
	c := &collector{base: base, seen: make(map[string]bool), urls: []string{}, today: d.opts.Now().Format(dateLayout)}

	navCtx, cancel := context.WithTimeout(ctx, d.opts.PageTimeout)
	err = d.client.Navigate(navCtx, cat.URL)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return res, errs.New(errs.ErrorTypeTimeout, cat.URL, "listing did not load", err)
		}
		return res, errs.New(errs.ErrorTypeNavigation, cat.URL, "cannot open listing", err)
	}

	hero := d.scanHero(ctx, rule, c)
	log.DebugWithFields("Hero slot scanned", map[string]interface{}{"links": hero})

	if err := d.client.WaitFor(ctx, rule.ListingContainer, d.opts.PageTimeout); err != nil {
		res.URLs = c.urls
		if errors.Is(err, page.ErrTimeout) {
			return res, errs.New(errs.ErrorTypeTimeout, cat.URL, "listing container "+rule.ListingContainer+" never appeared", err)
		}
		return res, errs.New(errs.ErrorTypeNavigation, cat.URL, "waiting for listing", err)
	}

	maxPages := rule.MaxPages
	if maxPages <= 0 {
		maxPages = rules.DefaultMaxPages
	}

	for {
		if err := ctx.Err(); err != nil {
			res.URLs = c.urls
			return res, errs.New(errs.ErrorTypeShutdown, cat.URL, "discovery interrupted", err)
		}

		res.Pages++
		matches, first := d.scanListing(ctx, rule, c)
		log.DebugWithFields("Listing page scanned", map[string]interface{}{
			"page":    res.Pages,
			"matches": matches,
		})
		if matches == 0 {
			break
		}
		if res.Pages >= maxPages {
			log.WarnWithFields("Stopping at page limit", map[string]interface{}{"max_pages": maxPages})
			break
		}

		advanced, err := d.next(ctx, rule, first)
		if err != nil {
			res.URLs = c.urls
			return res, err
		}
		if !advanced {
			log.InfoWithFields("Listing did not advance, stopping", map[string]interface{}{"page": res.Pages})
			break
		}
	}

	res.URLs = c.urls
	return res, nil
}

// scanHero adds hero links whose exact date is today. Returns the count added.
func (d *Discoverer) scanHero(ctx context.Context, rule rules.ListingRule, c *collector) int {
	if !rule.HasHero() {
		return 0
	}
	container, err := d.client.Query(ctx, rule.HeroContainer)
	if err != nil {
		return 0
	}

	items := []page.Element{container}
	if rule.HeroItem != "" {
		if found, err := container.QueryAll(rule.HeroItem); err == nil && len(found) > 0 {
			items = found
		}
	}

	added := 0
	for _, item := range items {
		href := page.AttrOf(item, rule.HeroLink, "href")
		date := page.AttrOf(item, rule.HeroDate, rule.DateAttr)
		if href == "" || !strings.HasPrefix(date, c.today) {
			continue
		}
		if c.add(href) {
			added++
		}
	}
	return added
}

// scanListing adds today's items on the current listing page. It returns
// the number of today-matches (duplicates included) and the page's first
// link, used to detect that the next page has loaded.
func (d *Discoverer) scanListing(ctx context.Context, rule rules.ListingRule, c *collector) (int, string) {
	items := d.items(ctx, rule)
	matches := 0
	first := ""
	for _, item := range items {
		href := page.AttrOf(item, rule.Link, "href")
		if href == "" {
			continue
		}
		if first == "" {
			first = href
		}
		if !d.isToday(item, rule, c.today) {
			continue
		}
		matches++
		c.add(href)
	}
	return matches, first
}

func (d *Discoverer) isToday(item page.Element, rule rules.ListingRule, today string) bool {
	if rule.Time != "" && rule.Matches(page.TextOf(item, rule.Time)) {
		return true
	}
	if rule.DateAttr != "" {
		return strings.HasPrefix(page.AttrOf(item, rule.Time, rule.DateAttr), today)
	}
	return false
}

func (d *Discoverer) items(ctx context.Context, rule rules.ListingRule) []page.Element {
	container, err := d.client.Query(ctx, rule.ListingContainer)
	if err != nil {
		return nil
	}
	items, err := container.QueryAll(rule.Item)
	if err != nil {
		return nil
	}
	return items
}

func (d *Discoverer) firstLink(ctx context.Context, rule rules.ListingRule) string {
	for _, item := range d.items(ctx, rule) {
		if href := page.AttrOf(item, rule.Link, "href"); href != "" {
			return href
		}
	}
	return ""
}

// next clicks the next control and polls until the listing's first link
// changes. It reports false when there is no control or nothing changed
// within the page timeout.
func (d *Discoverer) next(ctx context.Context, rule rules.ListingRule, prevFirst string) (bool, error) {
	if rule.NextControl == "" {
		return false, nil
	}
	control, err := d.client.Query(ctx, rule.NextControl)
	if err != nil {
		return false, nil
	}
	if err := control.Click(ctx); err != nil {
		if ctx.Err() != nil {
			return false, errs.New(errs.ErrorTypeShutdown, rule.NextControl, "discovery interrupted", ctx.Err())
		}
		return false, errs.New(errs.ErrorTypeNavigation, rule.NextControl, "next page failed", err)
	}

	deadline := time.Now().Add(d.opts.PageTimeout)
	for {
		if first := d.firstLink(ctx, rule); first != "" && first != prevFirst {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := retry.Wait(ctx, d.opts.PollInterval); err != nil {
			return false, errs.New(errs.ErrorTypeShutdown, rule.NextControl, "discovery interrupted", err)
		}
	}
}

// collector accumulates a category's URLs in first-seen order.
type collector struct {
	base  *url.URL
	seen  map[string]bool
	urls  []string
	today string
}

func (c *collector) add(href string) bool {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	abs := c.base.ResolveReference(ref)
	abs.Fragment = ""
	u := abs.String()
	if c.seen[u] {
		return false
	}
	c.seen[u] = true
	c.urls = append(c.urls, u)
	return true
}
