package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry wait
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context cancels backoff waits and prevents further attempts. It is
	// never handed to the operation, so an attempt already running is
	// allowed to finish.
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf retries classified transient errors and unknown errors,
// and never retries cancellation.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errs.Retryable(err)
}

// Do executes an operation with retry logic
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}
		if attempt > 1 && ctx.Err() != nil {
			return errs.New(errs.ErrorTypeShutdown, "", "retry abandoned", lastErr)
		}

		err := op()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			continue
		}

		delay := time.Duration(0)
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if cfg.Logger != nil {
			cfg.Logger.DebugWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			})
		}

		if werr := Wait(ctx, delay); werr != nil {
			return errs.New(errs.ErrorTypeShutdown, "", "retry cancelled during backoff", lastErr)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}
