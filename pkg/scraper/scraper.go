package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dailynews/internal/discovery"
	"dailynews/internal/fetcher"
	"dailynews/pkg/config"
	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
	"dailynews/pkg/models"
	"dailynews/pkg/page"
	"dailynews/pkg/ratelimit"
	"dailynews/pkg/rules"
	"dailynews/pkg/storage"

	"github.com/google/uuid"
)

const progressPrefix = "[SCRAPER] "

// Deps are the collaborators a Scraper drives
type Deps struct {
	Pages page.Factory
	Store *storage.Manager
	// Lock may be nil when the caller serialises runs some other way
	Lock   Locker
	Logger logger.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Options selects what one run does
type Options struct {
	// Force refetches articles already in the store
	Force bool
	// Categories limits the run; empty means every configured category
	Categories []string
	Progress   ProgressFunc
	// OnArticle reports article fetch progress as URLs settle
	OnArticle func(done, total int)
}

// Report summarises a finished (or interrupted) run
type Report struct {
	RunID      string
	Categories []string
	Started    time.Time
	Took       time.Duration

	Discovered        models.Snapshot
	DiscoveryFailures map[string]error
	Diff              models.Diff

	Fetch  fetcher.Stats
	Merge  storage.MergeStats
	Failed []fetcher.Outcome

	Interrupted bool
}

// Scraper runs the two-stage pipeline: discover today's links, then fetch
// the articles behind them.
type Scraper struct {
	cfg   *config.Config
	pages page.Factory
	store *storage.Manager
	lock  Locker
	log   logger.Logger
	now   func() time.Time

	mu sync.Mutex
}

// New creates a Scraper
func New(cfg *config.Config, deps Deps) (*Scraper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Pages == nil {
		return nil, fmt.Errorf("page factory is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("storage manager is required")
	}
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scraper{
		cfg:   cfg,
		pages: deps.Pages,
		store: deps.Store,
		lock:  deps.Lock,
		log:   log.WithField("component", "scraper"),
		now:   now,
	}, nil
}

// RunPipeline runs the pipeline and reports only whether it succeeded.
// Every outcome, good or bad, is also sent to progress.
func (s *Scraper) RunPipeline(ctx context.Context, force bool, categories []string, progress ProgressFunc) bool {
	_, err := s.Run(ctx, Options{Force: force, Categories: categories, Progress: progress})
	return err == nil
}

// Run executes one pipeline run. Per-category discovery failures and
// per-URL fetch failures are absorbed into the report; the returned error
// is set only when the run as a whole failed or was interrupted.
func (s *Scraper) Run(ctx context.Context, opts Options) (*Report, error) {
	cats, err := s.selectCategories(opts.Categories)
	if err != nil {
		s.progress(opts.Progress, fmt.Sprintf("Error: %v", err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := &Report{
		RunID:   uuid.NewString(),
		Started: s.now(),
	}
	for _, c := range cats {
		report.Categories = append(report.Categories, c.Name)
	}
	log := s.log.WithFields(map[string]interface{}{
		"run_id": report.RunID,
		"force":  opts.Force,
	})

	if s.lock != nil {
		if err := s.lock.Acquire(); err != nil {
			log.WithError(err).Error("Run refused")
			s.progress(opts.Progress, fmt.Sprintf("Error: %v", err))
			return report, err
		}
		defer func() {
			if err := s.lock.Release(); err != nil {
				log.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	target := describe(opts.Categories)
	s.step(log, opts.Progress, fmt.Sprintf("Starting scrape for %s...", target))

	s.step(log, opts.Progress, fmt.Sprintf("Step 1/2: Fetching links for %s...", target))
	if err := s.discover(ctx, log, cats, report); err != nil {
		s.fail(log, opts.Progress, "Links fetch failed", err)
		report.Took = s.now().Sub(report.Started)
		return report, err
	}
	s.step(log, opts.Progress, fmt.Sprintf("Found %d articles (%d new)", report.Discovered.Total(), report.Diff.NewCount))

	s.step(log, opts.Progress, fmt.Sprintf("Step 2/2: Scraping article content for %s...", target))
	if err := s.fetch(ctx, log, cats, opts, report); err != nil {
		s.fail(log, opts.Progress, "Article scrape failed", err)
		report.Took = s.now().Sub(report.Started)
		return report, err
	}

	report.Took = s.now().Sub(report.Started)
	logger.LogRunSummary(log, report.RunID, report.Discovered.Total(), report.Fetch.Fetched, report.Fetch.Failed, report.Fetch.Skipped, report.Took)

	if ctx.Err() != nil {
		report.Interrupted = true
		err := errs.New(errs.ErrorTypeShutdown, "", "run interrupted", ctx.Err())
		s.fail(log, opts.Progress, "Scrape interrupted", err)
		return report, err
	}

	s.step(log, opts.Progress, "Article scraping completed!")
	s.step(log, opts.Progress, "Scrape completed successfully!")
	return report, nil
}

func (s *Scraper) discover(ctx context.Context, log logger.Logger, cats []config.CategoryConfig, report *Report) error {
	client, err := s.pages.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer client.Close()

	d := discovery.New(client, discovery.Options{
		PageTimeout:  s.cfg.Discovery.PageTimeout,
		PollInterval: s.cfg.Discovery.PollInterval,
		Logger:       log,
		Now:          s.now,
	})
	snapshot, failures := d.DiscoverAll(ctx, cats, nil)
	report.Discovered = snapshot
	report.DiscoveryFailures = failures

	if len(snapshot) == 0 && len(failures) > 0 {
		return fmt.Errorf("all %d categories failed: %w", len(failures), firstFailure(failures))
	}

	// Categories not walked this run, or whose walk failed, keep their
	// links from the last run so they do not show up as removed.
	toSave := models.Snapshot{}
	for name, urls := range s.store.Links().Today() {
		if _, failed := failures[name]; failed || !contains(report.Categories, name) {
			toSave[name] = urls
		}
	}
	for name, urls := range snapshot {
		toSave[name] = urls
	}

	diff, err := s.store.Links().Save(toSave)
	if err != nil {
		return err
	}
	report.Diff = diff
	return nil
}

func (s *Scraper) fetch(ctx context.Context, log logger.Logger, cats []config.CategoryConfig, opts Options, report *Report) error {
	var pending []fetcher.Pending
	ruleSet := make(map[string]rules.ArticleRule, len(cats))
	for _, c := range cats {
		ruleSet[c.Name] = c.ArticleRule()
		for _, u := range report.Discovered[c.Name] {
			pending = append(pending, fetcher.Pending{Category: c.Name, URL: u})
		}
	}

	f := fetcher.New(s.pages, ruleSet, fetcher.Options{
		Concurrency:     s.cfg.Fetch.Concurrency,
		Timeout:         s.cfg.Fetch.Timeout,
		SelectorTimeout: s.cfg.Fetch.SelectorTimeout,
		Retries:         s.cfg.Fetch.Retries,
		BackoffBase:     s.cfg.Fetch.BackoffBase,
		BackoffMax:      s.cfg.Fetch.BackoffMax,
		Limiter:         ratelimit.PerMinute(s.cfg.Fetch.RatePerMinute),
		Logger:          log,
		OnProgress:      opts.OnArticle,
	})

	articles := s.store.Articles()
	outcomes, stats, err := f.Fetch(ctx, pending, articles.CachedURLs(), opts.Force)
	report.Fetch = stats
	if err != nil {
		return err
	}

	var entries []storage.Entry
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failed = append(report.Failed, o)
			continue
		}
		entries = append(entries, storage.Entry{Category: o.Category, Article: o.Article})
	}

	merged, err := articles.Merge(entries, stats.Considered)
	if err != nil {
		return err
	}
	report.Merge = merged
	return nil
}

func (s *Scraper) selectCategories(names []string) ([]config.CategoryConfig, error) {
	if len(names) == 0 {
		return s.cfg.Categories, nil
	}
	var (
		out     []config.CategoryConfig
		unknown []string
		seen    = make(map[string]bool)
	)
	for _, n := range names {
		c, ok := s.cfg.Category(n)
		if !ok {
			if !contains(unknown, n) {
				unknown = append(unknown, n)
			}
			continue
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	if len(unknown) > 0 {
		return nil, errs.New(errs.ErrorTypeConfig, strings.Join(unknown, ","),
			fmt.Sprintf("unknown categories (available: %s)", strings.Join(s.ListCategories(), ", ")), nil)
	}
	return out, nil
}

// ListCategories returns the configured category names in run order
func (s *Scraper) ListCategories() []string {
	return s.cfg.CategoryNames()
}

// ArticlesFor returns the stored articles of category, or nil
func (s *Scraper) ArticlesFor(category string) []models.Article {
	return s.store.Articles().For(category)
}

// TodayArticles returns the stored articles of category published today
func (s *Scraper) TodayArticles(category string) []models.Article {
	var out []models.Article
	for _, a := range s.ArticlesFor(category) {
		if s.IsPublishedToday(a.Date) {
			out = append(out, a)
		}
	}
	return out
}

// IsPublishedToday reports whether date contains today's YYYY-MM-DD
func (s *Scraper) IsPublishedToday(date string) bool {
	return models.IsPublishedOn(date, s.now().Format("2006-01-02"))
}

func (s *Scraper) step(log logger.Logger, progress ProgressFunc, msg string) {
	log.Info(msg)
	s.progress(progress, msg)
}

func (s *Scraper) fail(log logger.Logger, progress ProgressFunc, what string, err error) {
	msg := fmt.Sprintf("%s: %v", what, err)
	log.WithError(err).Error(what)
	s.progress(progress, msg)
}

func (s *Scraper) progress(progress ProgressFunc, msg string) {
	if progress != nil {
		progress(progressPrefix + msg)
	}
}

func describe(categories []string) string {
	if len(categories) == 0 {
		return "all categories"
	}
	return "categories: " + strings.Join(categories, ", ")
}

func firstFailure(failures map[string]error) error {
	names := make([]string, 0, len(failures))
	for n := range failures {
		names = append(names, n)
	}
	sort.Strings(names)
	return failures[names[0]]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
