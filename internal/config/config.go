// Package config loads mission-control configuration from
// $MC_HOME/config.yaml, applying defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	mcotel "github.com/basket/mission-control/internal/otel"
)

// AgentSeed is one roster entry. The roster is seeded into the store at
// startup; mission-control does not create agents at runtime.
type AgentSeed struct {
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	SessionKey string `yaml:"session_key"`
}

// DueScanConfig controls the daemon's due-soon scan.
type DueScanConfig struct {
	// Schedule is a standard 5-field cron expression. Default: every minute.
	Schedule string `yaml:"schedule"`
	// WindowMinutes is how far ahead of a due date the scan notifies.
	WindowMinutes int `yaml:"window_minutes"`
}

type Config struct {
	HomeDir  string      `yaml:"-"`
	LogLevel string      `yaml:"log_level"`
	Roster   []AgentSeed `yaml:"roster"`
	// WatcherDebounceMS is how long a drop file must sit unchanged before
	// the watcher consumes it.
	WatcherDebounceMS int           `yaml:"watcher_debounce_ms"`
	DueScan           DueScanConfig `yaml:"due_scan"`
	Telemetry         mcotel.Config `yaml:"telemetry"`
}

// HomeDir resolves the data directory: $MC_HOME or ~/.mission-control.
func HomeDir() string {
	if override := os.Getenv("MC_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".mission-control")
}

func defaultConfig() Config {
	return Config{
		LogLevel: "info",
		Roster: []AgentSeed{
			{Name: "Jarvis", Role: "Squad Lead"},
			{Name: "Shuri", Role: "Product Analyst"},
			{Name: "Fury", Role: "Customer Researcher"},
			{Name: "Vision", Role: "SEO Analyst"},
			{Name: "Loki", Role: "Content Writer"},
		},
		WatcherDebounceMS: 200,
		DueScan: DueScanConfig{
			Schedule:      "* * * * *",
			WindowMinutes: 120,
		},
	}
}

// Load reads config.yaml from the home dir, creating the directory tree on
// first use. A missing file yields the defaults.
func Load() (Config, error) {
	cfg := defaultConfig()
	cfg.HomeDir = HomeDir()

	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create mission-control home: %w", err)
	}

	path := filepath.Join(cfg.HomeDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config.yaml: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.Roster) == 0 {
		cfg.Roster = defaultConfig().Roster
	}
	if cfg.WatcherDebounceMS <= 0 {
		cfg.WatcherDebounceMS = 200
	}
	if cfg.DueScan.Schedule == "" {
		cfg.DueScan.Schedule = "* * * * *"
	}
	if cfg.DueScan.WindowMinutes <= 0 {
		cfg.DueScan.WindowMinutes = 120
	}
	for i := range cfg.Roster {
		seed := &cfg.Roster[i]
		seed.Name = strings.TrimSpace(seed.Name)
		if seed.SessionKey == "" {
			seed.SessionKey = fmt.Sprintf("agent:%s:main", slug(seed.Role))
		}
	}
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "main"
	}
	return strings.ReplaceAll(s, " ", "-")
}

// DBPath is the SQLite database file.
func (c Config) DBPath() string {
	return filepath.Join(c.HomeDir, "mission-control.db")
}

// MessagesDir is the watched message-drop directory.
func (c Config) MessagesDir() string {
	return filepath.Join(c.HomeDir, "messages")
}

// AgentsDir holds the per-agent inbox directories.
func (c Config) AgentsDir() string {
	return filepath.Join(c.HomeDir, "agents")
}

// InboxPath is the per-agent inbox log appended by the mention router.
func (c Config) InboxPath(agentName string) string {
	return filepath.Join(c.HomeDir, "agents", strings.ToLower(agentName), "inbox.jsonl")
}

// StandupsDir holds saved standup reports.
func (c Config) StandupsDir() string {
	return filepath.Join(c.HomeDir, "standups")
}
