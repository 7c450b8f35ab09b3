package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dailynews/pkg/logger"
	"dailynews/pkg/models"
	"dailynews/pkg/page"

	"golang.org/x/sync/errgroup"
)

// Job is one URL to fetch
type Job struct {
	URL string
	// Categories lists every category whose listing named URL, in run order
	Categories []string
}

// Result is the outcome of one Job
type Result struct {
	Job      Job
	Article  models.Article
	Err      error
	Attempts int
	Duration time.Duration
}

// ProcessFunc fetches one job on a worker's own page
type ProcessFunc func(client page.Client, job Job) Result

// WorkerPool runs a fixed number of workers, each owning one page. Submit
// hands a job directly to an idle worker and blocks until one is free.
// Submit and Stop belong to a single producer goroutine.
type WorkerPool struct {
	numWorkers  int
	factory     page.Factory
	process     ProcessFunc
	jobQueue    chan Job
	resultQueue chan Result
	group       *errgroup.Group
	logger      logger.Logger

	stopOnce sync.Once
}

// NewWorkerPool creates a pool of numWorkers workers
func NewWorkerPool(numWorkers int, factory page.Factory, process ProcessFunc, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &WorkerPool{
		numWorkers:  numWorkers,
		factory:     factory,
		process:     process,
		jobQueue:    make(chan Job),
		resultQueue: make(chan Result, numWorkers),
		group:       &errgroup.Group{},
		logger:      log,
	}
}

// Start opens one page per worker and starts the workers. If any page
// cannot be opened, the pages already opened are closed and nothing runs.
func (wp *WorkerPool) Start(ctx context.Context) error {
	pages := make([]page.Client, 0, wp.numWorkers)
	for i := 0; i < wp.numWorkers; i++ {
		client, err := wp.factory.NewPage(ctx)
		if err != nil {
			for _, p := range pages {
				p.Close()
			}
			return fmt.Errorf("failed to open page for worker %d: %w", i, err)
		}
		pages = append(pages, client)
	}

	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i, client := range pages {
		wp.group.Go(func() error {
			wp.worker(i, client)
			return nil
		})
	}
	return nil
}

// Submit blocks until a worker accepts job or ctx ends
func (wp *WorkerPool) Submit(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case wp.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the result channel. It is closed by Stop once every
// worker has exited, and must be drained while jobs are submitted.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// Stop stops accepting jobs, waits for in-flight jobs to finish and closes
// the result channel. It is safe to call more than once.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.group.Wait()
		close(wp.resultQueue)
		wp.logger.Debug("Worker pool stopped")
	})
}

func (wp *WorkerPool) worker(id int, client page.Client) {
	defer func() {
		if err := client.Close(); err != nil {
			wp.logger.WithError(err).DebugWithFields("Worker page close failed", map[string]interface{}{
				"worker_id": id,
			})
		}
	}()

	for job := range wp.jobQueue {
		start := time.Now()
		result := wp.process(client, job)
		result.Job = job
		result.Duration = time.Since(start)
		wp.resultQueue <- result
	}
}
