package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces page loads against the news site
type Limiter interface {
	// Allow reports whether a load may start now, consuming a slot if so
	Allow() bool
	// Wait blocks until a load may start or ctx ends
	Wait(ctx context.Context) error
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// SlidingWindow allows at most maxRequests starts in any windowSize span
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
	now         func() time.Time
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// PerMinute returns a limiter for n loads per minute, or Unlimited when n <= 0
func PerMinute(n int) Limiter {
	if n <= 0 {
		return Unlimited{}
	}
	return NewSlidingWindow(n, time.Minute)
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	_, ok := sw.reserve()
	return ok
}

// reserve takes a slot, or reports how long until the oldest one expires
func (sw *SlidingWindow) reserve() (time.Duration, bool) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return 0, true
	}
	return sw.windowSize - now.Sub(sw.requests[0]), false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		wait, ok := sw.reserve()
		if ok {
			return nil
		}
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}
