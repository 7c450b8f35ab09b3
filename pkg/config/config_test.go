package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, []string{"national", "southeast", "world", "business"}, cfg.CategoryNames())
	assert.Equal(t, 5, cfg.Fetch.Concurrency)
	assert.Equal(t, 2, cfg.Fetch.Retries)
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "rod", cfg.Browser.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Storage.DataDir)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DAILYNEWS_DATA_DIR", "/tmp/dailynews-test")
	t.Setenv("DAILYNEWS_BROWSER_MODE", "STATIC")
	t.Setenv("DAILYNEWS_CONCURRENCY", "8")
	t.Setenv("DAILYNEWS_RETRIES", "0")
	t.Setenv("DAILYNEWS_TIMEOUT", "20s")
	t.Setenv("DAILYNEWS_HEADLESS", "false")
	t.Setenv("DAILYNEWS_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "/tmp/dailynews-test", cfg.Storage.DataDir)
	assert.Equal(t, "static", cfg.Browser.Mode)
	assert.Equal(t, 8, cfg.Fetch.Concurrency)
	assert.Equal(t, 0, cfg.Fetch.Retries)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("DAILYNEWS_CONCURRENCY", "lots")
	t.Setenv("DAILYNEWS_TIMEOUT", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAILYNEWS_CONCURRENCY")
	assert.Contains(t, err.Error(), "DAILYNEWS_TIMEOUT")
	assert.Equal(t, 5, cfg.Fetch.Concurrency)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
categories:
  - name: headline
    url: https://borneobulletin.com.bn/category/headline/
    pagination_selector: "#tdi_90"
    listing:
      item: ".td-module-container"
      relative_keywords: ["jam lalu"]
    article:
      title: h1
fetch:
  concurrency: 3
  timeout: 45s
  retries: 4
browser:
  mode: static
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	require.Len(t, cfg.Categories, 1, "file categories replace the defaults")
	cat := cfg.Categories[0]
	assert.Equal(t, "headline", cat.Name)

	listing := cat.ListingRule()
	assert.Equal(t, ".td-module-container", listing.Item)
	assert.Equal(t, []string{"jam lalu"}, listing.RelativeKeywords)
	assert.Equal(t, "#next-page-tdi_90", listing.NextControl)
	assert.Equal(t, "h1", cat.ArticleRule().Title)

	assert.Equal(t, 3, cfg.Fetch.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 4, cfg.Fetch.Retries)
	assert.Equal(t, 5*time.Second, cfg.Fetch.SelectorTimeout, "unset keys keep defaults")
	assert.Equal(t, "static", cfg.Browser.Mode)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("fetch: [unclosed"), 0644))
	assert.Error(t, cfg.LoadFromFile(bad))
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"valid defaults": {
			mutate: func(c *Config) {},
		},
		"no categories": {
			mutate:  func(c *Config) { c.Categories = nil },
			wantErr: "at least one category",
		},
		"duplicate category": {
			mutate: func(c *Config) {
				c.Categories = append(c.Categories, CategoryConfig{
					Name: "National", URL: "https://example.com/n/", PaginationSelector: "#p",
				})
			},
			wantErr: "duplicate name",
		},
		"bad url": {
			mutate:  func(c *Config) { c.Categories[0].URL = "ftp://nope" },
			wantErr: "invalid url",
		},
		"missing listing container": {
			mutate:  func(c *Config) { c.Categories[0].PaginationSelector = "" },
			wantErr: "listing container",
		},
		"bad browser mode": {
			mutate:  func(c *Config) { c.Browser.Mode = "selenium" },
			wantErr: "invalid browser mode",
		},
		"zero concurrency": {
			mutate:  func(c *Config) { c.Fetch.Concurrency = 0 },
			wantErr: "concurrency must be positive",
		},
		"negative retries": {
			mutate:  func(c *Config) { c.Fetch.Retries = -1 },
			wantErr: "retries cannot be negative",
		},
		"bad cron": {
			mutate:  func(c *Config) { c.Schedule.Cron = "every morning" },
			wantErr: "invalid cron expression",
		},
		"bad log level": {
			mutate:  func(c *Config) { c.Logging.Level = "chatty" },
			wantErr: "invalid log level",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCategoryLookup(t *testing.T) {
	cfg := DefaultConfig()

	cat, ok := cfg.Category("WORLD")
	require.True(t, ok)
	assert.Equal(t, "world", cat.Name)

	_, ok = cfg.Category("sport")
	assert.False(t, ok)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"data-dir":    "/srv/news",
		"browser":     "Static",
		"concurrency": 2,
		"retries":     0,
		"timeout":     5 * time.Second,
		"headless":    false,
		"log-level":   "warn",
	})

	assert.Equal(t, "/srv/news", cfg.Storage.DataDir)
	assert.Equal(t, "static", cfg.Browser.Mode)
	assert.Equal(t, 2, cfg.Fetch.Concurrency)
	assert.Equal(t, 0, cfg.Fetch.Retries)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// missing keys leave values alone
	before := *cfg
	cfg.MergeCommandLineFlags(map[string]interface{}{})
	assert.Equal(t, before.Fetch, cfg.Fetch)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Fetch.Concurrency = 7
	cfg.Discovery.PageTimeout = 12 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded := &Config{}
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 7, loaded.Fetch.Concurrency)
	assert.Equal(t, 12*time.Second, loaded.Discovery.PageTimeout)
	assert.Equal(t, cfg.CategoryNames(), loaded.CategoryNames())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  concurrency: 4\n"), 0644))
	t.Setenv("DAILYNEWS_CONCURRENCY", "6")

	cfg, err := Load(path, map[string]interface{}{"data-dir": dir})
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Fetch.Concurrency, "env beats file")
	assert.Equal(t, dir, cfg.Storage.DataDir, "flags beat everything")

	_, err = Load(path, map[string]interface{}{"browser": "netscape"})
	assert.Error(t, err)
}
