// Package lock provides the file-based run lock that keeps two pipeline
// runs from touching the data directory at the same time.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
)

// A lock file younger than this that cannot be parsed is assumed to be
// mid-write by its owner rather than abandoned.
const writeGrace = 2 * time.Second

// Info is the lock file body.
type Info struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// RunLock is an exclusive lock file owned by this process.
type RunLock struct {
	path string
	pid  int
	log  logger.Logger

	mu   sync.Mutex
	held bool
}

// New returns an unheld lock at path
func New(path string, log logger.Logger) *RunLock {
	if log == nil {
		log = logger.GetLogger()
	}
	return &RunLock{path: path, pid: os.Getpid(), log: log}
}

// Path returns the lock file location
func (l *RunLock) Path() string { return l.path }

// Held reports whether this process currently owns the lock
func (l *RunLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Acquire creates the lock file. If one exists and its owner is alive the
// call fails with a lock error; a stale lock is removed and creation is
// tried once more.
func (l *RunLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := l.create()
		if err == nil {
			l.held = true
			l.log.DebugWithFields("Run lock acquired", map[string]interface{}{
				"path": l.path,
				"pid":  l.pid,
			})
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return errs.New(errs.ErrorTypeLock, l.path, "cannot create lock file", err)
		}

		info, rerr := ReadInfo(l.path)
		switch {
		case rerr == nil && info.PID > 0 && processAlive(info.PID):
			return errs.New(errs.ErrorTypeLock, l.path,
				fmt.Sprintf("another run is in progress (pid %d since %s)", info.PID, info.AcquiredAt.Format(time.RFC3339)), nil)
		case rerr != nil && recentlyWritten(l.path):
			return errs.New(errs.ErrorTypeLock, l.path, "lock file is being written by another run", rerr)
		}

		l.log.WarnWithFields("Removing stale run lock", map[string]interface{}{
			"path":      l.path,
			"owner_pid": info.PID,
		})
		if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errs.New(errs.ErrorTypeLock, l.path, "cannot remove stale lock", err)
		}
	}

	return errs.New(errs.ErrorTypeLock, l.path, "lock was re-created by another run", nil)
}

func (l *RunLock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	werr := json.NewEncoder(f).Encode(Info{PID: l.pid, AcquiredAt: time.Now()})
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(l.path)
		return fmt.Errorf("write lock file: %w", werr)
	}
	return nil
}

// Release removes the lock file if this process owns it. Calling it on an
// unheld lock is a no-op, so it is safe in both defer and signal paths.
func (l *RunLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	l.held = false

	info, err := ReadInfo(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errs.New(errs.ErrorTypeLock, l.path, "cannot read lock on release", err)
	}
	if info.PID != l.pid {
		l.log.WarnWithFields("Run lock now owned by another process, leaving it", map[string]interface{}{
			"path":      l.path,
			"owner_pid": info.PID,
		})
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.New(errs.ErrorTypeLock, l.path, "cannot remove lock", err)
	}
	l.log.Debug("Run lock released")
	return nil
}

// ReadInfo parses the lock file at path
func ReadInfo(path string) (Info, error) {
	var info Info
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parse lock file: %w", err)
	}
	return info, nil
}

func recentlyWritten(path string) bool {
	st, err := os.Stat(path)
	return err == nil && time.Since(st.ModTime()) < writeGrace
}
