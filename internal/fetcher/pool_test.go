package fetcher

import (
	"context"
	"testing"
	"time"

	"dailynews/pkg/logger"
	"dailynews/pkg/page"
	"dailynews/pkg/page/pagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	site := pagetest.NewSite()
	pool := NewWorkerPool(2, site, func(client page.Client, job Job) Result {
		return Result{Attempts: 1}
	}, logger.NewNopLogger())
	require.NoError(t, pool.Start(context.Background()))
	assert.Equal(t, 2, site.OpenPages())

	done := make(chan []Result)
	go func() {
		var got []Result
		for r := range pool.Results() {
			got = append(got, r)
		}
		done <- got
	}()

	for _, u := range []string{"a", "b", "c", "d"} {
		require.NoError(t, pool.Submit(context.Background(), Job{URL: u}))
	}
	pool.Stop()
	pool.Stop()

	got := <-done
	require.Len(t, got, 4)
	for _, r := range got {
		assert.NotEmpty(t, r.Job.URL, "job is echoed back")
		assert.Equal(t, 1, r.Attempts)
	}
	assert.Equal(t, 0, site.OpenPages())
}

func TestWorkerPoolSubmitBlocksUntilWorkerFree(t *testing.T) {
	release := make(chan struct{})
	pool := NewWorkerPool(1, pagetest.NewSite(), func(client page.Client, job Job) Result {
		<-release
		return Result{}
	}, logger.NewNopLogger())
	require.NoError(t, pool.Start(context.Background()))

	go func() {
		for range pool.Results() {
		}
	}()

	require.NoError(t, pool.Submit(context.Background(), Job{URL: "busy"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, Job{URL: "waiting"})
	assert.ErrorIs(t, err, context.DeadlineExceeded, "the only worker is busy")

	close(release)
	require.NoError(t, pool.Submit(context.Background(), Job{URL: "next"}))
	pool.Stop()
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	pool := NewWorkerPool(1, pagetest.NewSite(), func(page.Client, Job) Result { return Result{} }, logger.NewNopLogger())
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pool.Submit(ctx, Job{URL: "x"}), context.Canceled)
}
