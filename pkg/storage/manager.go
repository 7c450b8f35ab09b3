package storage

import (
	"os"
	"path/filepath"

	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
)

// File names under the data directory.
const (
	TodayLinksFile    = "today_links.json"
	PreviousLinksFile = "previous_links.json"
	LinksMetaFile     = "links_meta.json"
	ArticlesFile      = "articles.json"
	ArticlesMetaFile  = "articles_meta.json"
	LockFile          = "scrape.lock"
)

// Manager owns the data directory and hands out the stores living in it.
type Manager struct {
	dataDir  string
	links    *LinkStore
	articles *ArticleStore
}

// NewManager creates dataDir if needed and loads the article store.
func NewManager(dataDir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, errs.New(errs.ErrorTypeStorage, dataDir, "cannot create data directory", err)
	}

	m := &Manager{
		dataDir:  dataDir,
		links:    NewLinkStore(dataDir, log),
		articles: NewArticleStore(dataDir, log),
	}
	m.articles.Load()
	return m, nil
}

// Links returns the snapshot store
func (m *Manager) Links() *LinkStore { return m.links }

// Articles returns the article store
func (m *Manager) Articles() *ArticleStore { return m.articles }

// DataDir returns the data directory path
func (m *Manager) DataDir() string { return m.dataDir }

// LockPath is where the run lock lives
func (m *Manager) LockPath() string { return filepath.Join(m.dataDir, LockFile) }
