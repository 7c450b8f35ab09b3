// Package fetcher downloads article detail pages for newly discovered URLs
// on a bounded pool of browser pages.
package fetcher

import (
	"context"
	"sync"
	"time"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
	"dailynews/pkg/models"
	"dailynews/pkg/page"
	"dailynews/pkg/ratelimit"
	"dailynews/pkg/retry"
	"dailynews/pkg/rules"
)

// Options tunes a Fetcher
type Options struct {
	Concurrency     int
	Timeout         time.Duration
	SelectorTimeout time.Duration
	Retries         int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	Limiter         ratelimit.Limiter
	Logger          logger.Logger

	// OnProgress is called after each URL settles with the number of URLs
	// settled so far and the number planned. Calls are serialised.
	OnProgress func(done, total int)
}

// Pending is a URL discovered under a category
type Pending struct {
	Category string
	URL      string
}

// Outcome is the per-category result for one URL. Err is nil on success.
type Outcome struct {
	Category string
	URL      string
	Article  models.Article
	Err      error
	Attempts int
}

// Stats counts what a Fetch call did
type Stats struct {
	Considered int
	Skipped    int
	Dispatched int
	Fetched    int
	Failed     int
}

// Fetcher fetches articles with a worker pool
type Fetcher struct {
	factory page.Factory
	rules   map[string]rules.ArticleRule
	opts    Options
	log     logger.Logger
}

// New creates a Fetcher. ruleSet maps category name to its article rule;
// categories without an entry use the default rule.
func New(factory page.Factory, ruleSet map[string]rules.ArticleRule, opts Options) *Fetcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.SelectorTimeout <= 0 {
		opts.SelectorTimeout = 5 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		factory: factory,
		rules:   ruleSet,
		opts:    opts,
		log:     log.WithField("component", "fetcher"),
	}
}

// Plan groups pending items by URL in first-seen order and drops URLs
// already in cached unless force is set. It returns the jobs and the number
// of distinct URLs skipped.
func Plan(pending []Pending, cached map[string]struct{}, force bool) ([]Job, int) {
	index := make(map[string]int)
	var jobs []Job
	skipped := make(map[string]bool)

	for _, p := range pending {
		if p.URL == "" {
			continue
		}
		if _, ok := cached[p.URL]; ok && !force {
			skipped[p.URL] = true
			continue
		}
		if i, ok := index[p.URL]; ok {
			if !contains(jobs[i].Categories, p.Category) {
				jobs[i].Categories = append(jobs[i].Categories, p.Category)
			}
			continue
		}
		index[p.URL] = len(jobs)
		jobs = append(jobs, Job{URL: p.URL, Categories: []string{p.Category}})
	}
	return jobs, len(skipped)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Fetch fetches every pending URL not in cached (or every URL when force is
// set) and returns one outcome per (category, URL). Cancelling ctx stops
// dispatch and cuts retry waits short; fetches already running finish.
// URLs never dispatched are reported with a shutdown error. The returned
// error is set only when the pool could not start.
func (f *Fetcher) Fetch(ctx context.Context, pending []Pending, cached map[string]struct{}, force bool) ([]Outcome, Stats, error) {
	jobs, skipped := Plan(pending, cached, force)
	stats := Stats{Considered: len(jobs) + skipped, Skipped: skipped}
	if len(jobs) == 0 {
		return nil, stats, nil
	}

	workers := f.opts.Concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}
	pool := NewWorkerPool(workers, f.factory, func(client page.Client, job Job) Result {
		return f.process(ctx, client, job)
	}, f.log)
	if err := pool.Start(ctx); err != nil {
		return nil, stats, errs.New(errs.ErrorTypeNavigation, "", "cannot start fetch workers", err)
	}

	var (
		mu       sync.Mutex
		outcomes []Outcome
		settled  int
		wg       sync.WaitGroup
	)
	record := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		settled++
		if f.opts.OnProgress != nil {
			defer f.opts.OnProgress(settled, len(jobs))
		}
		if r.Err == nil {
			stats.Fetched++
		} else {
			stats.Failed++
		}
		for _, cat := range r.Job.Categories {
			outcomes = append(outcomes, Outcome{
				Category: cat,
				URL:      r.Job.URL,
				Article:  r.Article,
				Err:      r.Err,
				Attempts: r.Attempts,
			})
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for r := range pool.Results() {
			if r.Err != nil {
				logger.LogFetchFailure(f.log.WithField("categories", r.Job.Categories), r.Job.URL, r.Attempts, r.Err)
			}
			record(r)
		}
	}()

	for i, job := range jobs {
		if err := pool.Submit(ctx, job); err != nil {
			f.log.WarnWithFields("Shutdown requested, not dispatching remaining articles", map[string]interface{}{
				"remaining": len(jobs) - i,
			})
			for _, left := range jobs[i:] {
				record(Result{Job: left, Err: errs.New(errs.ErrorTypeShutdown, left.URL, "not dispatched", err)})
			}
			break
		}
		mu.Lock()
		stats.Dispatched++
		mu.Unlock()
	}

	pool.Stop()
	wg.Wait()
	return outcomes, stats, nil
}

func (f *Fetcher) ruleFor(job Job) rules.ArticleRule {
	for _, cat := range job.Categories {
		if r, ok := f.rules[cat]; ok {
			return r
		}
	}
	return rules.DefaultArticle()
}

// process runs one job with retries. shutdown only gates new attempts and
// backoff waits; each attempt gets its own deadline detached from it.
func (f *Fetcher) process(shutdown context.Context, client page.Client, job Job) Result {
	rule := f.ruleFor(job)
	attempts := 0

	article, err := retry.DoWithResult(func() (models.Article, error) {
		if err := f.opts.Limiter.Wait(shutdown); err != nil {
			return models.Article{}, errs.New(errs.ErrorTypeShutdown, job.URL, "rate limit wait interrupted", err)
		}
		attempts++
		actx, cancel := context.WithTimeout(context.WithoutCancel(shutdown), f.opts.Timeout)
		defer cancel()
		return Extract(actx, client, job.URL, rule, f.opts.SelectorTimeout)
	}, &retry.Config{
		MaxAttempts: f.opts.Retries + 1,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:  f.opts.BackoffBase,
			MaxDelay:   f.opts.BackoffMax,
			Multiplier: 2,
		},
		RetryIf: retry.DefaultRetryIf,
		Context: shutdown,
		Logger:  f.log.WithField("url", job.URL),
	})

	return Result{Job: job, Article: article, Err: err, Attempts: attempts}
}
