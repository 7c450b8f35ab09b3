package main

import (
	"context"
	"errors"
	"fmt"

	"dailynews/internal/browser"
	"dailynews/pkg/auth"
	"dailynews/pkg/config"
	"dailynews/pkg/lock"
	"dailynews/pkg/logger"
	"dailynews/pkg/page"
	"dailynews/pkg/scraper"
	"dailynews/pkg/storage"
)

var errReadOnly = errors.New("no browser is opened for read-only commands")

// openPipeline wires the store, run lock and browser backend into a Scraper.
// The returned close func shuts the browser down.
func openPipeline(ctx context.Context, cfg *config.Config) (*scraper.Scraper, func(), error) {
	log := logger.GetLogger()

	store, err := storage.NewManager(cfg.Storage.DataDir, log)
	if err != nil {
		return nil, nil, err
	}

	var token string
	if cfg.Browser.ControlURL != "" {
		token = auth.NewManager().BrowserTokenOrEmpty()
	}

	backend, err := browser.Open(ctx, cfg.Browser, token, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s browser: %w", cfg.Browser.Mode, err)
	}
	closeBackend := func() {
		if err := backend.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
		}
	}

	s, err := scraper.New(cfg, scraper.Deps{
		Pages:  backend,
		Store:  store,
		Lock:   lock.New(store.LockPath(), log),
		Logger: log,
	})
	if err != nil {
		closeBackend()
		return nil, nil, err
	}
	return s, closeBackend, nil
}

// openReader builds a Scraper that can only answer read-side queries
func openReader(cfg *config.Config) (*scraper.Scraper, error) {
	store, err := storage.NewManager(cfg.Storage.DataDir, logger.GetLogger())
	if err != nil {
		return nil, err
	}
	return scraper.New(cfg, scraper.Deps{
		Pages: page.FactoryFunc(func(context.Context) (page.Client, error) {
			return nil, errReadOnly
		}),
		Store:  store,
		Logger: logger.GetLogger(),
	})
}
