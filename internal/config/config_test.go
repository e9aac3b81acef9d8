package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadPathDefaults(t *testing.T) {
	cfg := LoadPath("")

	if cfg.Tool.Name != "MTC!" || cfg.Tool.Version != "1.1.1" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tool)
	}
	if cfg.Transfer.Concurrency != 1 {
		t.Fatalf("expected concurrency 1, got %d", cfg.Transfer.Concurrency)
	}
	if cfg.HTTP.Timeout != 2*time.Minute {
		t.Fatalf("unexpected timeout: %s", cfg.HTTP.Timeout)
	}
	if got := cfg.TrackingCategory(); got != "Category:Uploaded with MTC!" {
		t.Fatalf("unexpected tracking category: %s", got)
	}
	if got := cfg.CheckNeededCategory("Mover"); got != "Category:Files uploaded by Mover with MTC! (check needed)" {
		t.Fatalf("unexpected check-needed category: %s", got)
	}
}

func TestLoadPathMergesFile(t *testing.T) {
	path := writeConfig(t, `
source:
  historyBaseUrl: https://en.example.org
transfer:
  delete: true
  concurrency: 4
  categories: ["Category:Moved"]
http:
  timeout: 30s
lists:
  whitelist: ["Category:CC-BY-3.0"]
`)
	cfg := LoadPath(path)

	if cfg.Source.HistoryBaseURL != "https://en.example.org" {
		t.Fatalf("unexpected history url: %s", cfg.Source.HistoryBaseURL)
	}
	if cfg.Source.Project != "en.wikipedia" {
		t.Fatalf("default project lost: %s", cfg.Source.Project)
	}
	if !cfg.Transfer.Delete || cfg.Transfer.Concurrency != 4 {
		t.Fatalf("unexpected transfer: %+v", cfg.Transfer)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.HTTP.Timeout)
	}
	if len(cfg.Lists.Whitelist) != 1 || cfg.Lists.WhitelistPage == "" {
		t.Fatalf("unexpected lists: %+v", cfg.Lists)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, writeConfig(t, "logging:\n  level: warn\n"))
	t.Setenv(databaseDSNEnv, "postgres://env")
	t.Setenv(snapshotEnv, "/tmp/snap.yaml")
	t.Setenv(downloadDirEnv, "/tmp/dl")
	t.Setenv(concurrencyEnv, "0")

	cfg := Load()

	if cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected level: %s", cfg.Logging.Level)
	}
	if cfg.Database.DSN != "postgres://env" || cfg.Snapshot.Path != "/tmp/snap.yaml" || cfg.Transfer.DownloadDir != "/tmp/dl" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Transfer.Concurrency != 1 {
		t.Fatalf("expected concurrency clamp to 1, got %d", cfg.Transfer.Concurrency)
	}
}

func TestLoadPathBadFileFallsBack(t *testing.T) {
	cfg := LoadPath(writeConfig(t, "transfer: [not a map"))
	if cfg.Tool.Name != "MTC!" {
		t.Fatalf("expected defaults, got %+v", cfg.Tool)
	}
}
