package main

import (
	"fmt"
	"os"
	"runtime"

	"dailynews/pkg/config"
	"dailynews/pkg/logger"
	"dailynews/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	dataDir     string
	logLevel    string
	browserMode string
	controlURL  string
	quiet       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dailynews",
	Short: "Scrape today's news articles into a local store",
	Long: `dailynews walks the configured news categories, finds the articles
published today, fetches their full text and keeps them in a JSON store
that other tools (chat bots, digests) read from.

A run has two steps:
  1. discover today's links in every category (hero slot + paginated listing)
  2. fetch every article not already stored, with bounded concurrency and retries

Only one run can touch the data directory at a time.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding snapshots, articles and the run lock")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&browserMode, "browser", "", "page backend: rod or static")
	rootCmd.PersistentFlags().StringVar(&controlURL, "control-url", "", "DevTools URL of a remote browser")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`dailynews {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration for cmd and initialises the global logger
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{}
	for k, v := range extra {
		flags[k] = v
	}
	if dataDir != "" {
		flags["data-dir"] = dataDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if browserMode != "" {
		flags["browser"] = browserMode
	}
	if controlURL != "" {
		flags["control-url"] = controlURL
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialise logging: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"version": version,
		"command": cmd.Name(),
	}).Debug("dailynews starting")
	return cfg, nil
}
