package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "WIKIMOVER_CONFIG"
	databaseDSNEnv = "DATABASE_DSN"
	logLevelEnv    = "WIKIMOVER_LOG_LEVEL"
	snapshotEnv    = "WIKIMOVER_SNAPSHOT"
	downloadDirEnv = "WIKIMOVER_DOWNLOAD_DIR"
	concurrencyEnv = "WIKIMOVER_CONCURRENCY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Tool        ToolConfig        `yaml:"tool"`
	Transfer    TransferConfig    `yaml:"transfer"`
	Templates   TemplatesConfig   `yaml:"templates"`
	Lists       ListsConfig       `yaml:"lists"`
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig describes the wiki files are moved away from.
type SourceConfig struct {
	Project   string `yaml:"project"`
	Interwiki string `yaml:"interwiki"`
	Lang      string `yaml:"lang"`
	// HistoryBaseURL switches revision loading to scraping rendered file pages.
	HistoryBaseURL string `yaml:"historyBaseUrl"`
}

// DestinationConfig describes the wiki files are moved to.
type DestinationConfig struct {
	Name string `yaml:"name"`
}

// ToolConfig names the tool in summaries and categories.
type ToolConfig struct {
	Name    string `yaml:"name"`
	Page    string `yaml:"page"`
	Version string `yaml:"version"`
}

// TransferConfig holds run policy.
type TransferConfig struct {
	DryRun          bool     `yaml:"dryRun"`
	Force           bool     `yaml:"force"`
	Delete          bool     `yaml:"delete"`
	KeepDownloads   bool     `yaml:"keepDownloads"`
	Tracking        bool     `yaml:"tracking"`
	CheckNeeded     bool     `yaml:"checkNeeded"`
	Concurrency     int      `yaml:"concurrency"`
	DownloadDir     string   `yaml:"downloadDir"`
	MaxNameAttempts int      `yaml:"maxNameAttempts"`
	Categories      []string `yaml:"categories"`
}

// TemplatesConfig lists the templates with special meaning.
type TemplatesConfig struct {
	Trigger           string   `yaml:"trigger"`
	RedirectsPage     string   `yaml:"redirectsPage"`
	OwnWork           []string `yaml:"ownWork"`
	OwnWorkCategories []string `yaml:"ownWorkCategories"`
	Stripped          []string `yaml:"stripped"`
}

// ListsConfig points at the category white- and blacklists. Inline entries
// are merged with the links found on the pages.
type ListsConfig struct {
	WhitelistPage string   `yaml:"whitelistPage"`
	BlacklistPage string   `yaml:"blacklistPage"`
	Whitelist     []string `yaml:"whitelist"`
	Blacklist     []string `yaml:"blacklist"`
}

// HTTPConfig tunes asset downloads.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
}

// DatabaseConfig describes the optional Postgres transfer log.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// MetricsConfig sets where run metrics are written.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// SnapshotConfig points at an offline wiki snapshot.
type SnapshotConfig struct {
	Path      string `yaml:"path"`
	WriteBack bool   `yaml:"writeBack"`
}

// TrackingCategory is added to every page when Transfer.Tracking is set.
func (c Config) TrackingCategory() string {
	return fmt.Sprintf("Category:Uploaded with %s", c.Tool.Name)
}

// CheckNeededCategory flags pages for review by the operator.
func (c Config) CheckNeededCategory(operator string) string {
	return fmt.Sprintf("Category:Files uploaded by %s with %s (check needed)", operator, c.Tool.Name)
}

// Load reads the file named by WIKIMOVER_CONFIG (if any) and applies
// environment overrides.
func Load() Config {
	return LoadPath(os.Getenv(configPathEnv))
}

// LoadPath reads YAML configuration from path (if present) and applies environment overrides.
func LoadPath(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Transfer.Concurrency < 1 {
		cfg.Transfer.Concurrency = 1
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(snapshotEnv); v != "" {
		c.Snapshot.Path = v
	}

	if v := os.Getenv(downloadDirEnv); v != "" {
		c.Transfer.DownloadDir = v
	}

	if v := os.Getenv(concurrencyEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Transfer.Concurrency = n
		} else {
			log.Printf("config: invalid %s=%q, keeping %d", concurrencyEnv, v, c.Transfer.Concurrency)
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Source.Project != "" {
		base.Source.Project = override.Source.Project
	}
	if override.Source.Interwiki != "" {
		base.Source.Interwiki = override.Source.Interwiki
	}
	if override.Source.Lang != "" {
		base.Source.Lang = override.Source.Lang
	}
	if override.Source.HistoryBaseURL != "" {
		base.Source.HistoryBaseURL = override.Source.HistoryBaseURL
	}

	if override.Destination.Name != "" {
		base.Destination.Name = override.Destination.Name
	}

	if override.Tool.Name != "" {
		base.Tool.Name = override.Tool.Name
	}
	if override.Tool.Page != "" {
		base.Tool.Page = override.Tool.Page
	}
	if override.Tool.Version != "" {
		base.Tool.Version = override.Tool.Version
	}

	base.Transfer.DryRun = base.Transfer.DryRun || override.Transfer.DryRun
	base.Transfer.Force = base.Transfer.Force || override.Transfer.Force
	base.Transfer.Delete = base.Transfer.Delete || override.Transfer.Delete
	base.Transfer.KeepDownloads = base.Transfer.KeepDownloads || override.Transfer.KeepDownloads
	base.Transfer.Tracking = base.Transfer.Tracking || override.Transfer.Tracking
	base.Transfer.CheckNeeded = base.Transfer.CheckNeeded || override.Transfer.CheckNeeded
	if override.Transfer.Concurrency > 0 {
		base.Transfer.Concurrency = override.Transfer.Concurrency
	}
	if override.Transfer.DownloadDir != "" {
		base.Transfer.DownloadDir = override.Transfer.DownloadDir
	}
	if override.Transfer.MaxNameAttempts > 0 {
		base.Transfer.MaxNameAttempts = override.Transfer.MaxNameAttempts
	}
	if len(override.Transfer.Categories) > 0 {
		base.Transfer.Categories = override.Transfer.Categories
	}

	if override.Templates.Trigger != "" {
		base.Templates.Trigger = override.Templates.Trigger
	}
	if override.Templates.RedirectsPage != "" {
		base.Templates.RedirectsPage = override.Templates.RedirectsPage
	}
	if len(override.Templates.OwnWork) > 0 {
		base.Templates.OwnWork = override.Templates.OwnWork
	}
	if len(override.Templates.OwnWorkCategories) > 0 {
		base.Templates.OwnWorkCategories = override.Templates.OwnWorkCategories
	}
	if len(override.Templates.Stripped) > 0 {
		base.Templates.Stripped = override.Templates.Stripped
	}

	if override.Lists.WhitelistPage != "" {
		base.Lists.WhitelistPage = override.Lists.WhitelistPage
	}
	if override.Lists.BlacklistPage != "" {
		base.Lists.BlacklistPage = override.Lists.BlacklistPage
	}
	if len(override.Lists.Whitelist) > 0 {
		base.Lists.Whitelist = override.Lists.Whitelist
	}
	if len(override.Lists.Blacklist) > 0 {
		base.Lists.Blacklist = override.Lists.Blacklist
	}

	if override.HTTP.Timeout > 0 {
		base.HTTP.Timeout = override.HTTP.Timeout
	}
	if override.HTTP.UserAgent != "" {
		base.HTTP.UserAgent = override.HTTP.UserAgent
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Metrics.Textfile != "" {
		base.Metrics = override.Metrics
	}

	if override.Snapshot.Path != "" {
		base.Snapshot = override.Snapshot
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Source: SourceConfig{
			Project:   "en.wikipedia",
			Interwiki: "w",
			Lang:      "en",
		},
		Destination: DestinationConfig{Name: "Commons"},
		Tool: ToolConfig{
			Name:    "MTC!",
			Page:    "Wikipedia:MTC!",
			Version: "1.1.1",
		},
		Transfer: TransferConfig{
			Concurrency:     1,
			DownloadDir:     filepath.Join(os.TempDir(), "wikimover"),
			MaxNameAttempts: 25,
		},
		Templates: TemplatesConfig{
			Trigger:           "Copy to Wikimedia Commons",
			RedirectsPage:     "Wikipedia:MTC!/Redirects",
			OwnWork:           []string{"Self", "PD-self", "GFDL-self", "GFDL-self-with-disclaimers"},
			OwnWorkCategories: []string{"Category:Self-published work"},
			Stripped:          []string{"Bots", "Nobots"},
		},
		Lists: ListsConfig{
			WhitelistPage: "Wikipedia:MTC!/Whitelist",
			BlacklistPage: "Wikipedia:MTC!/Blacklist",
		},
		HTTP: HTTPConfig{
			Timeout:   2 * time.Minute,
			UserAgent: "WikiMover/1.1",
		},
	}
}
