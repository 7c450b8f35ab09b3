package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dailynews/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("not a cron", func(context.Context) {}, Options{Logger: logger.NewNopLogger()})
	assert.Error(t, err)

	_, err = New("0 7 * * *", nil, Options{})
	assert.Error(t, err)

	_, err = New("0 0 7 * * *", func(context.Context) {}, Options{}) // seconds field
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	s, err := New("0 7 * * *", func(context.Context) {}, Options{Location: time.UTC, Logger: logger.NewNopLogger()})
	require.NoError(t, err)

	from := time.Date(2024, 5, 1, 6, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC), s.Next(from))

	from = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 2, 7, 0, 0, 0, time.UTC), s.Next(from))

	daily, err := New("@daily", func(context.Context) {}, Options{Location: time.UTC, Logger: logger.NewNopLogger()})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), daily.Next(from))
}

func TestRunOnStartThenStop(t *testing.T) {
	var runs atomic.Int32
	tl := logger.NewTestLogger()
	s, err := New("0 7 * * *", func(ctx context.Context) { runs.Add(1) }, Options{RunOnStart: true, Logger: tl})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.EqualValues(t, 1, runs.Load())
	assert.True(t, tl.HasMessage("Scheduler stopped"))
}

func TestChainRecoversPanics(t *testing.T) {
	tl := logger.NewTestLogger()
	s, err := New("0 7 * * *", func(context.Context) { panic("boom") }, Options{Logger: tl})
	require.NoError(t, err)

	id, err := s.cron.AddFunc(s.spec, func() { s.job(context.Background()) })
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.cron.Entry(id).WrappedJob.Run() })
	assert.True(t, tl.HasError())
}

func TestCronLoggerFields(t *testing.T) {
	tl := logger.NewTestLogger()
	l := cronLogger{log: tl}

	l.Error(errors.New("bad"), "job failed", "entry", 3, "dangling")
	msgs := tl.GetMessagesByLevel("ERROR")
	require.Len(t, msgs, 1)
	assert.Equal(t, "job failed", msgs[0].Message)
	assert.Equal(t, 3, msgs[0].Fields["entry"])
	assert.NotContains(t, msgs[0].Fields, "dangling")
}
