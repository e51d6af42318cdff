// Package doctor runs environment diagnostics for the mc CLI: config,
// database health, directory permissions, and roster seeding.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/basket/mission-control/internal/config"
	"github.com/basket/mission-control/internal/persistence"
)

type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "PASS", "FAIL", "WARN", "SKIP"
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type Diagnosis struct {
	Timestamp time.Time     `json:"timestamp"`
	System    SystemInfo    `json:"system"`
	Results   []CheckResult `json:"results"`
}

type SystemInfo struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
	Go   string `json:"go_version"`
}

// Run executes all diagnostic checks.
func Run(ctx context.Context, cfg *config.Config) Diagnosis {
	d := Diagnosis{
		Timestamp: time.Now().UTC(),
		System: SystemInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
			Go:   runtime.Version(),
		},
	}

	checks := []func(context.Context, *config.Config) CheckResult{
		checkConfig,
		checkPermissions,
		checkDatabase,
		checkMessagesDir,
		checkRoster,
	}

	for _, check := range checks {
		d.Results = append(d.Results, check(ctx, cfg))
	}

	return d
}

// Healthy reports whether no check failed. Warnings do not count as
// failures.
func (d Diagnosis) Healthy() bool {
	for _, r := range d.Results {
		if r.Status == "FAIL" {
			return false
		}
	}
	return true
}

func checkConfig(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Config", Status: "FAIL", Message: "Configuration not loaded"}
	}
	if len(cfg.Roster) == 0 {
		return CheckResult{Name: "Config", Status: "WARN", Message: "Empty roster, no agents will be seeded"}
	}
	return CheckResult{Name: "Config", Status: "PASS", Message: fmt.Sprintf("Loaded from %s", cfg.HomeDir)}
}

func checkPermissions(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Permissions", Status: "SKIP", Message: "Config missing"}
	}

	testFile := filepath.Join(cfg.HomeDir, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return CheckResult{Name: "Permissions", Status: "FAIL", Message: fmt.Sprintf("Home dir unwritable: %v", err)}
	}
	os.Remove(testFile)

	return CheckResult{Name: "Permissions", Status: "PASS", Message: "Home directory writable"}
}

func checkDatabase(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Database", Status: "SKIP", Message: "Config missing"}
	}

	store, err := persistence.Open(cfg.DBPath())
	if err != nil {
		return CheckResult{Name: "Database", Status: "FAIL", Message: fmt.Sprintf("Open failed: %v", err)}
	}
	defer store.Close()

	counts, err := store.StatusCounts(ctx)
	if err != nil {
		return CheckResult{Name: "Database", Status: "FAIL", Message: fmt.Sprintf("Query failed: %v", err)}
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	return CheckResult{
		Name:    "Database",
		Status:  "PASS",
		Message: "Connection and schema valid",
		Detail:  fmt.Sprintf("%d tasks", total),
	}
}

func checkMessagesDir(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Messages Dir", Status: "SKIP", Message: "Config missing"}
	}

	dir := cfg.MessagesDir()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    "Messages Dir",
			Status:  "WARN",
			Message: fmt.Sprintf("%s does not exist yet (created on first daemon run)", dir),
		}
	}
	if err != nil {
		return CheckResult{Name: "Messages Dir", Status: "FAIL", Message: fmt.Sprintf("Unreadable: %v", err)}
	}

	pending, rejected := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".json"):
			pending++
		case strings.HasSuffix(entry.Name(), ".rejected"):
			rejected++
		}
	}
	status := "PASS"
	if rejected > 0 {
		status = "WARN"
	}
	return CheckResult{
		Name:    "Messages Dir",
		Status:  status,
		Message: fmt.Sprintf("%d pending drops, %d rejected", pending, rejected),
		Detail:  dir,
	}
}

func checkRoster(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Name: "Roster", Status: "SKIP", Message: "Config missing"}
	}

	store, err := persistence.Open(cfg.DBPath())
	if err != nil {
		return CheckResult{Name: "Roster", Status: "SKIP", Message: "Database unavailable"}
	}
	defer store.Close()

	agents, err := store.ListAgents(ctx)
	if err != nil {
		return CheckResult{Name: "Roster", Status: "FAIL", Message: fmt.Sprintf("Query failed: %v", err)}
	}

	var missing []string
	for _, seed := range cfg.Roster {
		found := false
		for _, agent := range agents {
			if strings.EqualFold(agent.Name, seed.Name) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, seed.Name)
		}
	}
	if len(missing) > 0 {
		return CheckResult{
			Name:    "Roster",
			Status:  "WARN",
			Message: fmt.Sprintf("%d configured agents not yet seeded", len(missing)),
			Detail:  strings.Join(missing, ", "),
		}
	}
	return CheckResult{Name: "Roster", Status: "PASS", Message: fmt.Sprintf("%d agents seeded", len(agents))}
}
