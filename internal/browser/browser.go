// Package browser opens the page backend selected by configuration.
package browser

import (
	"context"
	"fmt"

	"dailynews/internal/browser/rodpage"
	"dailynews/internal/browser/static"
	"dailynews/pkg/config"
	"dailynews/pkg/logger"
	"dailynews/pkg/page"
)

// Backend hands out pages and owns whatever process or connection backs them
type Backend interface {
	page.Factory
	Close() error
}

// Open starts the backend named by cfg.Mode. token authenticates against a
// remote control URL and is ignored otherwise.
func Open(ctx context.Context, cfg config.BrowserConfig, token string, log logger.Logger) (Backend, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	switch cfg.Mode {
	case "rod", "":
		return rodpage.Launch(ctx, rodpage.Options{
			Headless:   cfg.Headless,
			BinPath:    cfg.BinPath,
			ControlURL: cfg.ControlURL,
			Token:      token,
			UserAgent:  cfg.UserAgent,
			Timeout:    cfg.Timeout,
			Logger:     log,
		})
	case "static":
		return static.New(static.Options{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown browser mode %q", cfg.Mode)
	}
}
