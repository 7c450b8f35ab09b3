package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dailynews/pkg/rules"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName   = "dailynews"
	envPrefix = "DAILYNEWS_"
)

// Config holds all configuration options for the news pipeline
type Config struct {
	// Categories to discover, in run order
	Categories []CategoryConfig `yaml:"categories" json:"categories"`

	// Browser backend settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Link discovery settings
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Article fetch settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Persisted state location
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Recurring runs
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CategoryConfig is one listing to scrape. Listing and Article override the
// default tagDiv rules field by field.
type CategoryConfig struct {
	Name               string             `yaml:"name" json:"name"`
	URL                string             `yaml:"url" json:"url"`
	PaginationSelector string             `yaml:"pagination_selector" json:"pagination_selector"`
	Listing            *rules.ListingRule `yaml:"listing,omitempty" json:"listing,omitempty"`
	Article            *rules.ArticleRule `yaml:"article,omitempty" json:"article,omitempty"`
}

// BrowserConfig selects and tunes the page backend
type BrowserConfig struct {
	// Mode is "rod" (headless Chromium) or "static" (plain HTTP + HTML parsing)
	Mode       string        `yaml:"mode" json:"mode"`
	Headless   bool          `yaml:"headless" json:"headless"`
	BinPath    string        `yaml:"bin_path" json:"bin_path"`
	ControlURL string        `yaml:"control_url" json:"control_url"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// DiscoveryConfig holds listing-walk configuration
type DiscoveryConfig struct {
	PageTimeout  time.Duration `yaml:"page_timeout" json:"page_timeout"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// FetchConfig holds article fetch configuration
type FetchConfig struct {
	Concurrency     int           `yaml:"concurrency" json:"concurrency"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	SelectorTimeout time.Duration `yaml:"selector_timeout" json:"selector_timeout"`
	Retries         int           `yaml:"retries" json:"retries"`
	BackoffBase     time.Duration `yaml:"backoff_base" json:"backoff_base"`
	BackoffMax      time.Duration `yaml:"backoff_max" json:"backoff_max"`
	// RatePerMinute caps article page loads per minute across all workers; 0 is unlimited
	RatePerMinute int `yaml:"rate_per_minute" json:"rate_per_minute"`
}

// StorageConfig holds the data directory for snapshots, articles and the run lock
type StorageConfig struct {
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// ScheduleConfig holds the cron expression used by the schedule command
type ScheduleConfig struct {
	Cron       string `yaml:"cron" json:"cron"`
	RunOnStart bool   `yaml:"run_on_start" json:"run_on_start"`
	Force      bool   `yaml:"force" json:"force"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	JSON  bool   `yaml:"json" json:"json"`
}

// DefaultCategories mirrors the Borneo Bulletin sections the bot serves
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Name: "national", URL: "https://borneobulletin.com.bn/category/national/", PaginationSelector: "#tdi_106"},
		{Name: "southeast", URL: "https://borneobulletin.com.bn/category/southeast/", PaginationSelector: "#tdi_107"},
		{Name: "world", URL: "https://borneobulletin.com.bn/category/world/", PaginationSelector: "#tdi_106"},
		{Name: "business", URL: "https://borneobulletin.com.bn/category/business/", PaginationSelector: "#tdi_107"},
	}
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Categories: DefaultCategories(),
		Browser: BrowserConfig{
			Mode:      "rod",
			Headless:  true,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Timeout:   30 * time.Second,
		},
		Discovery: DiscoveryConfig{
			PageTimeout:  10 * time.Second,
			PollInterval: 250 * time.Millisecond,
		},
		Fetch: FetchConfig{
			Concurrency:     5,
			Timeout:         15 * time.Second,
			SelectorTimeout: 5 * time.Second,
			Retries:         2,
			BackoffBase:     1 * time.Second,
			BackoffMax:      30 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: DefaultDataDir(),
		},
		Schedule: ScheduleConfig{
			Cron: "0 7 * * *",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir is $XDG_DATA_HOME/dailynews
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultConfigPath is $XDG_CONFIG_HOME/dailynews/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// ListingRule returns the effective listing rule for the category
func (c CategoryConfig) ListingRule() rules.ListingRule {
	return rules.DefaultListing(c.PaginationSelector).Merge(c.Listing)
}

// ArticleRule returns the effective article rule for the category
func (c CategoryConfig) ArticleRule() rules.ArticleRule {
	return rules.DefaultArticle().Merge(c.Article)
}

// Category looks up a category by name (case-insensitive)
func (c *Config) Category(name string) (CategoryConfig, bool) {
	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return CategoryConfig{}, false
}

// CategoryNames returns the configured category names in run order
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(envPrefix + "DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv(envPrefix + "BROWSER_MODE"); v != "" {
		c.Browser.Mode = strings.ToLower(v)
	}
	if v := os.Getenv(envPrefix + "CONTROL_URL"); v != "" {
		c.Browser.ControlURL = v
	}
	if v := os.Getenv(envPrefix + "BROWSER_BIN"); v != "" {
		c.Browser.BinPath = v
	}
	if v := os.Getenv(envPrefix + "HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) != "false"
	}
	if v := os.Getenv(envPrefix + "CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCONCURRENCY: %w", envPrefix, err))
		} else if n > 0 {
			c.Fetch.Concurrency = n
		}
	}
	if v := os.Getenv(envPrefix + "RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRETRIES: %w", envPrefix, err))
		} else {
			c.Fetch.Retries = n
		}
	}
	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", envPrefix, err))
		} else {
			c.Fetch.Timeout = d
		}
	}
	if v := os.Getenv(envPrefix + "CRON"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"dailynews.yaml",
		".dailynews.yaml",
		".dailynews.yml",
		DefaultConfigPath(),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Categories) == 0 {
		errs = append(errs, errors.New("at least one category is required"))
	}
	seen := make(map[string]bool)
	for i, cat := range c.Categories {
		name := strings.ToLower(cat.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("category %d: name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("category %q: duplicate name", cat.Name))
		}
		seen[name] = true

		u, err := url.Parse(cat.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("category %q: invalid url %q", cat.Name, cat.URL))
		}
		if err := cat.ListingRule().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("category %q listing rule: %w", cat.Name, err))
		}
		if err := cat.ArticleRule().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("category %q article rule: %w", cat.Name, err))
		}
	}

	switch c.Browser.Mode {
	case "rod", "static":
	default:
		errs = append(errs, fmt.Errorf("invalid browser mode %q (want rod or static)", c.Browser.Mode))
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser timeout must be positive"))
	}

	if c.Discovery.PageTimeout <= 0 {
		errs = append(errs, errors.New("discovery page timeout must be positive"))
	}
	if c.Discovery.PollInterval <= 0 {
		errs = append(errs, errors.New("discovery poll interval must be positive"))
	}

	if c.Fetch.Concurrency <= 0 {
		errs = append(errs, errors.New("fetch concurrency must be positive"))
	}
	if c.Fetch.Concurrency > 32 {
		errs = append(errs, errors.New("fetch concurrency should not exceed 32"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.Fetch.SelectorTimeout <= 0 {
		errs = append(errs, errors.New("selector timeout must be positive"))
	}
	if c.Fetch.Retries < 0 {
		errs = append(errs, errors.New("retries cannot be negative"))
	}
	if c.Fetch.RatePerMinute < 0 {
		errs = append(errs, errors.New("rate per minute cannot be negative"))
	}
	if c.Fetch.BackoffBase < 0 {
		errs = append(errs, errors.New("backoff base cannot be negative"))
	}

	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			errs = append(errs, fmt.Errorf("invalid cron expression %q: %w", c.Schedule.Cron, err))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys that are present override the loaded values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["data-dir"].(string); ok && v != "" {
		c.Storage.DataDir = v
	}
	if v, ok := flags["browser"].(string); ok && v != "" {
		c.Browser.Mode = strings.ToLower(v)
	}
	if v, ok := flags["control-url"].(string); ok && v != "" {
		c.Browser.ControlURL = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Fetch.Concurrency = v
	}
	if v, ok := flags["retries"].(int); ok && v >= 0 {
		c.Fetch.Retries = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Fetch.Timeout = v
	}
	if v, ok := flags["cron"].(string); ok && v != "" {
		c.Schedule.Cron = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(xdg.ConfigHome, appName, ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
