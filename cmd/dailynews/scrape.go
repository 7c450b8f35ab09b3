package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"dailynews/pkg/config"
	errs "dailynews/pkg/errors"
	"dailynews/pkg/logger"
	"dailynews/pkg/scraper"
	"dailynews/pkg/storage"
	"dailynews/pkg/ui"
	"dailynews/pkg/ui/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Scrape command flags
	force       bool
	categories  []string
	concurrency int
	retries     int
	plain       bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run the pipeline once",
	Long: `Discover today's links and fetch the articles behind them.

Articles already in the store are skipped unless --force is given. Ctrl-C
stops dispatching new fetches, lets running ones finish, saves what was
fetched and releases the run lock.

On a terminal the run is shown as a live view; --plain prints one line per
step instead.`,
	Example: `  # Scrape every configured category
  dailynews scrape

  # Refetch two categories even if their articles are stored
  dailynews scrape --force --category national --category world

  # Use plain HTTP instead of Chromium
  dailynews scrape --browser static`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().BoolVarP(&force, "force", "f", false, "refetch articles that are already stored")
	scrapeCmd.Flags().StringSliceVar(&categories, "category", nil, "limit the run to these categories (repeatable)")
	scrapeCmd.Flags().IntVar(&concurrency, "concurrency", 0, "article fetch workers (default from config)")
	scrapeCmd.Flags().IntVar(&retries, "retries", -1, "extra attempts per article (default from config)")
	scrapeCmd.Flags().BoolVar(&plain, "plain", false, "print progress lines instead of the live view")
}

func runScrape(cmd *cobra.Command, args []string) error {
	extra := map[string]interface{}{}
	if concurrency > 0 {
		extra["concurrency"] = concurrency
	}
	if retries >= 0 {
		extra["retries"] = retries
	}
	cfg, err := loadConfig(cmd, extra)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	live := useLiveView(os.Stdout)
	if live {
		// the live view owns the terminal; log lines go to the log file only
		if err := quietLogger(cfg); err != nil {
			return err
		}
	}

	ui.PrintLogo()
	ui.PrintInfo("Data dir", cfg.Storage.DataDir)
	ui.PrintInfo("Browser", cfg.Browser.Mode)

	s, closeBrowser, err := openPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBrowser()

	opts := scraper.Options{Force: force, Categories: categories}
	var report *scraper.Report
	if live {
		view := tui.New(cancel)
		opts.Progress = view.Step
		opts.OnArticle = view.Articles
		err = view.Run(func() error {
			var runErr error
			report, runErr = s.Run(ctx, opts)
			return runErr
		})
	} else {
		opts.Progress = ui.NewProgress().Print
		report, err = s.Run(ctx, opts)
	}

	if report != nil && report.RunID != "" {
		ui.Print(ui.RenderReport(report))
	}
	if err != nil {
		logger.WithError(err).Error("Scrape failed")
		if hint := failureHint(err, cfg); hint != "" {
			ui.PrintWarning(hint)
		}
		return err
	}
	return nil
}

// failureHint suggests a fix for failures the user can act on
func failureHint(err error, cfg *config.Config) string {
	switch {
	case errors.Is(err, errs.ErrLock):
		return "Another run holds " + filepath.Join(cfg.Storage.DataDir, storage.LockFile) + "; wait for it to finish"
	case errors.Is(err, errs.ErrStorage):
		return "Check that " + cfg.Storage.DataDir + " exists and is writable"
	case errors.Is(err, errs.ErrShutdown):
		return "Interrupted: fetched articles were saved, the rest are picked up by the next run"
	}
	return ""
}

func useLiveView(out *os.File) bool {
	return !plain && !quiet && term.IsTerminal(int(out.Fd()))
}

func quietLogger(cfg *config.Config) error {
	l, err := logger.NewWithWriter(&cfg.Logging, io.Discard)
	if err != nil {
		return err
	}
	logger.SetLogger(l)
	return nil
}
