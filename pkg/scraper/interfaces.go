package scraper

// Locker is the cross-process run lock
type Locker interface {
	Acquire() error
	Release() error
}

// ProgressFunc receives human-readable progress lines while a run is in
// flight. It is called synchronously from the run goroutine.
type ProgressFunc func(msg string)
