package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/basket/mission-control/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("MC_HOME", t.TempDir())
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &cfg
}

func TestRun_FreshHome(t *testing.T) {
	cfg := testConfig(t)

	d := Run(context.Background(), cfg)
	if len(d.Results) != 5 {
		t.Fatalf("expected 5 checks, got %d", len(d.Results))
	}
	if !d.Healthy() {
		t.Fatalf("fresh home should be healthy, got %+v", d.Results)
	}

	byName := make(map[string]CheckResult, len(d.Results))
	for _, r := range d.Results {
		byName[r.Name] = r
	}
	if byName["Config"].Status != "PASS" {
		t.Errorf("config check: %+v", byName["Config"])
	}
	if byName["Database"].Status != "PASS" {
		t.Errorf("database check: %+v", byName["Database"])
	}
	// messages/ is only created by the daemon.
	if byName["Messages Dir"].Status != "WARN" {
		t.Errorf("messages dir check: %+v", byName["Messages Dir"])
	}
	// Nothing seeded the roster yet.
	if byName["Roster"].Status != "WARN" {
		t.Errorf("roster check: %+v", byName["Roster"])
	}
}

func TestNilConfigSkips(t *testing.T) {
	for _, check := range []func(context.Context, *config.Config) CheckResult{
		checkPermissions, checkDatabase, checkMessagesDir, checkRoster,
	} {
		result := check(context.Background(), nil)
		if result.Status != "SKIP" {
			t.Errorf("%s: expected SKIP for nil config, got %s", result.Name, result.Status)
		}
	}
	if result := checkConfig(context.Background(), nil); result.Status != "FAIL" {
		t.Errorf("config check should FAIL for nil config, got %s", result.Status)
	}
}

func TestCheckMessagesDir_CountsDrops(t *testing.T) {
	cfg := testConfig(t)
	dir := cfg.MessagesDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.json", "b.json", "bad.json.rejected"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	result := checkMessagesDir(context.Background(), cfg)
	if result.Status != "WARN" {
		t.Fatalf("rejected files should warn, got %+v", result)
	}
	if result.Message != "2 pending drops, 1 rejected" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestHealthy(t *testing.T) {
	d := Diagnosis{Results: []CheckResult{{Status: "PASS"}, {Status: "WARN"}}}
	if !d.Healthy() {
		t.Fatal("warnings should not make a diagnosis unhealthy")
	}
	d.Results = append(d.Results, CheckResult{Status: "FAIL"})
	if d.Healthy() {
		t.Fatal("a failed check should make the diagnosis unhealthy")
	}
}
