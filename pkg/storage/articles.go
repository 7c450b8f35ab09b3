package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
	"dailynews/pkg/models"
)

// Entry is one successful fetch to merge, attributed to a category.
type Entry struct {
	Category string
	Article  models.Article
}

// MergeStats summarises a merge.
type MergeStats struct {
	Considered int
	Updated    int
	Replaced   int
}

// ArticleStore is the cumulative category to article mapping. No category
// ever holds two articles with the same URL.
type ArticleStore struct {
	dir string
	log logger.Logger
	now func() time.Time

	mu   sync.RWMutex
	data map[string][]models.Article
}

// NewArticleStore creates an empty store rooted at dir. Call Load to read
// the persisted state.
func NewArticleStore(dir string, log logger.Logger) *ArticleStore {
	return &ArticleStore{
		dir:  dir,
		log:  log,
		now:  time.Now,
		data: make(map[string][]models.Article),
	}
}

// Load reads articles.json. A missing or corrupt file leaves the store
// empty; it is never an error.
func (s *ArticleStore) Load() {
	data := make(map[string][]models.Article)
	if err := ReadJSON(s.path(), &data); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case errors.Is(err, errs.ErrParsing):
			s.log.WithError(err).Warn("Article store corrupt, starting empty")
		default:
			s.log.WithError(err).Warn("Article store unreadable, starting empty")
		}
		data = make(map[string][]models.Article)
	}
	if data == nil {
		data = make(map[string][]models.Article)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

func (s *ArticleStore) path() string { return filepath.Join(s.dir, ArticlesFile) }

// CachedURLs returns every URL held in any category
func (s *ArticleStore) CachedURLs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, articles := range s.data {
		for _, a := range articles {
			set[a.URL] = struct{}{}
		}
	}
	return set
}

// Has reports whether url is stored under any category
func (s *ArticleStore) Has(url string) bool {
	_, ok := s.CachedURLs()[url]
	return ok
}

// Categories returns the stored category names, sorted
func (s *ArticleStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// For returns a copy of the category's articles, nil when unknown
func (s *ArticleStore) For(category string) []models.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	articles, ok := s.data[category]
	if !ok {
		return nil
	}
	out := make([]models.Article, len(articles))
	copy(out, articles)
	return out
}

// Count returns the number of stored articles across categories
func (s *ArticleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, articles := range s.data {
		n += len(articles)
	}
	return n
}

// Merge applies entries and persists the store atomically. An entry whose
// URL already exists in its category replaces that article; everything
// not named in entries is left alone. considered is recorded in the
// metadata as the number of URLs looked at this run.
func (s *ArticleStore) Merge(entries []Entry, considered int) (MergeStats, error) {
	stats := MergeStats{Considered: considered}

	s.mu.Lock()
	for _, e := range entries {
		if e.Category == "" || e.Article.URL == "" {
			continue
		}
		bucket := s.data[e.Category]
		kept := bucket[:0:0]
		for _, a := range bucket {
			if a.URL == e.Article.URL {
				stats.Replaced++
				continue
			}
			kept = append(kept, a)
		}
		s.data[e.Category] = append(kept, e.Article)
		stats.Updated++
	}
	snapshot := make(map[string][]models.Article, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := WriteJSONAtomic(s.path(), snapshot); err != nil {
		return stats, fmt.Errorf("failed to save articles: %w", err)
	}

	now := s.now()
	meta := models.ArticlesMeta{
		ScrapedAt:    float64(now.UnixNano()) / 1e9,
		ScrapedAtISO: now.Format(time.RFC3339),
		TotalFound:   considered,
		Updated:      stats.Updated,
	}
	if err := WriteJSONAtomic(filepath.Join(s.dir, ArticlesMetaFile), meta); err != nil {
		return stats, fmt.Errorf("failed to save articles metadata: %w", err)
	}

	s.log.InfoWithFields("Articles merged", map[string]interface{}{
		"considered": considered,
		"updated":    stats.Updated,
		"replaced":   stats.Replaced,
	})
	return stats, nil
}
