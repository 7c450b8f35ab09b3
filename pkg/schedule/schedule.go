// Package schedule runs a job on a cron expression until its context ends.
package schedule

import (
	"context"
	"fmt"
	"time"

	"dailynews/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled invocation. ctx is the scheduler's context, so a
// shutdown reaches a job that is mid-run.
type Job func(ctx context.Context)

// Options tunes a Scheduler
type Options struct {
	// RunOnStart runs the job once immediately when Run begins
	RunOnStart bool
	Location   *time.Location
	Logger     logger.Logger
}

// Scheduler wraps a cron runner with a single entry
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	spec     string
	job      Job
	opts     Options
	log      logger.Logger
}

// Parser accepts standard five-field expressions and @daily style descriptors
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New parses spec and prepares a scheduler for job
func New(spec string, job Job, opts Options) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}
	sched, err := Parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "schedule")

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithParser(Parser),
		cron.WithLocation(opts.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, schedule: sched, spec: spec, job: job, opts: opts, log: log}, nil
}

// Next returns the first activation after t
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.opts.Location))
}

// Run blocks until ctx is done. A run that is still going when ctx ends is
// waited for before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.job(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	if s.opts.RunOnStart {
		s.log.Info("Running job on start")
		s.job(ctx)
	}

	s.cron.Start()
	s.log.InfoWithFields("Scheduler started", map[string]interface{}{
		"cron": s.spec,
		"next": s.Next(time.Now()).Format(time.RFC3339),
	})

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info("Scheduler stopped")
	return nil
}

// cronLogger adapts Logger to cron.Logger
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.DebugWithFields(msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).ErrorWithFields(msg, fields(keysAndValues))
}

func fields(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
