package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
	"dailynews/pkg/models"
)

// LinkStore persists discovery snapshots and diffs each save against the
// previous one.
type LinkStore struct {
	dir string
	log logger.Logger
	now func() time.Time
}

// NewLinkStore creates a snapshot store rooted at dir
func NewLinkStore(dir string, log logger.Logger) *LinkStore {
	return &LinkStore{dir: dir, log: log, now: time.Now}
}

// Save diffs today against the previous snapshot, then writes today as both
// the today and previous snapshot plus the metadata record.
func (s *LinkStore) Save(today models.Snapshot) (models.Diff, error) {
	if today == nil {
		today = models.Snapshot{}
	}
	previous := s.Previous()
	diff := models.Compare(previous, today)

	if err := WriteJSONAtomic(filepath.Join(s.dir, TodayLinksFile), today); err != nil {
		return diff, fmt.Errorf("failed to save today's links: %w", err)
	}
	if err := WriteJSONAtomic(filepath.Join(s.dir, PreviousLinksFile), today); err != nil {
		return diff, fmt.Errorf("failed to save previous links: %w", err)
	}

	now := s.now()
	meta := models.LinksMeta{
		SavedAt:    float64(now.UnixNano()) / 1e9,
		SavedAtISO: now.Format(time.RFC3339),
		TotalLinks: diff.Total,
	}
	if err := WriteJSONAtomic(filepath.Join(s.dir, LinksMetaFile), meta); err != nil {
		return diff, fmt.Errorf("failed to save links metadata: %w", err)
	}

	s.log.InfoWithFields("Link snapshot saved", map[string]interface{}{
		"total":   diff.Total,
		"new":     diff.NewCount,
		"removed": diff.RemovedCount,
	})
	return diff, nil
}

// Today returns the last saved snapshot, empty when missing or corrupt
func (s *LinkStore) Today() models.Snapshot {
	return s.read(TodayLinksFile)
}

// Previous returns the snapshot the next Save diffs against
func (s *LinkStore) Previous() models.Snapshot {
	return s.read(PreviousLinksFile)
}

func (s *LinkStore) read(name string) models.Snapshot {
	snap := models.Snapshot{}
	if err := ReadJSON(filepath.Join(s.dir, name), &snap); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case errors.Is(err, errs.ErrParsing):
			s.log.WithError(err).WarnWithFields("Ignoring corrupt snapshot", map[string]interface{}{
				"file": name,
			})
		default:
			s.log.WithError(err).WarnWithFields("Ignoring unreadable snapshot", map[string]interface{}{
				"file": name,
			})
		}
		return models.Snapshot{}
	}
	if snap == nil {
		return models.Snapshot{}
	}
	return snap
}
