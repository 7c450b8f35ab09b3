// Package retry provides bounded retries with exponential backoff for
// article fetches.
//
// The Context in Config only governs the waits between attempts: when it is
// cancelled, Do stops scheduling new attempts and returns a shutdown error
// wrapping the last failure, but an attempt that is already executing runs
// to completion.
//
//	err := retry.Do(func() error {
//		return fetchOnce(url)
//	}, &retry.Config{
//		MaxAttempts: cfg.Fetch.Retries + 1,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:  cfg.Fetch.BackoffBase,
//			MaxDelay:   cfg.Fetch.BackoffMax,
//			Multiplier: 2,
//		},
//		Context: shutdownCtx,
//	})
package retry
