package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "dailynews/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInBand(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}
	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     context.Background(),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	var retries []int
	err := Do(func() error {
		attempts++
		return errs.New(errs.ErrorTypeTimeout, "https://example.com", "page load", nil)
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		OnRetry:     func(attempt int, err error, delay time.Duration) { retries = append(retries, attempt) },
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retries, "no wait after the final attempt")
	assert.ErrorIs(t, err, errs.ErrTimeout)
}

func TestDoNonRetryableError(t *testing.T) {
	attempts := 0
	storageErr := errs.New(errs.ErrorTypeStorage, "/data", "disk full", nil)

	err := Do(func() error {
		attempts++
		return storageErr
	}, &Config{MaxAttempts: 5, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	assert.Equal(t, storageErr, err)
	assert.Equal(t, 1, attempts)
}

func TestDoCancelDuringBackoffLetsAttemptFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	finished := 0

	err := Do(func() error {
		attempts++
		if attempts == 2 {
			cancel()
			// the attempt keeps running after cancellation
			time.Sleep(5 * time.Millisecond)
		}
		finished++
		return errors.New("flaky")
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Context:     ctx,
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, finished)
	assert.ErrorIs(t, err, errs.ErrShutdown)
	assert.Contains(t, err.Error(), "flaky")
}

func TestDoCancelledBeforeLongWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Do(func() error { return errors.New("down") }, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Minute},
		Context:     ctx,
	})

	assert.ErrorIs(t, err, errs.ErrShutdown)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}, &Config{MaxAttempts: 3, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeShutdown, "", "stop", nil)))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeSelector, "", "no title", nil)))
	assert.True(t, DefaultRetryIf(errors.New("net/http: timeout")))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
