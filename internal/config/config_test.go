package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MC_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Roster) != 5 {
		t.Fatalf("want 5 default roster entries, got %d", len(cfg.Roster))
	}
	if cfg.Roster[0].Name != "Jarvis" || cfg.Roster[0].SessionKey != "agent:squad-lead:main" {
		t.Errorf("unexpected first roster entry: %+v", cfg.Roster[0])
	}
	if cfg.DueScan.Schedule != "* * * * *" {
		t.Errorf("due scan schedule = %q", cfg.DueScan.Schedule)
	}
	if cfg.DueScan.WindowMinutes != 120 {
		t.Errorf("due scan window = %d", cfg.DueScan.WindowMinutes)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.WatcherDebounceMS != 200 {
		t.Errorf("watcher debounce = %d", cfg.WatcherDebounceMS)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MC_HOME", home)

	data := []byte(`
log_level: debug
roster:
  - name: Okoye
    role: Security Lead
due_scan:
  schedule: "*/5 * * * *"
  window_minutes: 30
`)
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if len(cfg.Roster) != 1 || cfg.Roster[0].Name != "Okoye" {
		t.Fatalf("roster = %+v", cfg.Roster)
	}
	if cfg.Roster[0].SessionKey != "agent:security-lead:main" {
		t.Errorf("session key = %q", cfg.Roster[0].SessionKey)
	}
	if cfg.DueScan.Schedule != "*/5 * * * *" || cfg.DueScan.WindowMinutes != 30 {
		t.Errorf("due scan = %+v", cfg.DueScan)
	}
}

func TestPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MC_HOME", home)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath() != filepath.Join(home, "mission-control.db") {
		t.Errorf("db path = %q", cfg.DBPath())
	}
	if cfg.InboxPath("Shuri") != filepath.Join(home, "agents", "shuri", "inbox.jsonl") {
		t.Errorf("inbox path = %q", cfg.InboxPath("Shuri"))
	}
}
