package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/basket/mission-control/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedTestRoster(t *testing.T, store *Store) {
	t.Helper()
	roster := []domain.Agent{
		{Name: "Jarvis", Role: "Squad Lead", SessionKey: "agent:squad-lead:main"},
		{Name: "Shuri", Role: "Product Analyst", SessionKey: "agent:product-analyst:main"},
		{Name: "Fury", Role: "Customer Researcher", SessionKey: "agent:customer-researcher:main"},
	}
	if err := store.SeedAgents(context.Background(), roster); err != nil {
		t.Fatalf("SeedAgents: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	seedTestRoster(t, first)
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()

	agents, err := second.ListAgents(context.Background())
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents after reopen, got %d", len(agents))
	}
}

func TestSeedAgentsPreservesExistingRows(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)

	if err := store.SetAgentStatus(context.Background(), "shuri", domain.AgentStatusAway); err != nil {
		t.Fatalf("SetAgentStatus: %v", err)
	}
	seedTestRoster(t, store)

	a, err := store.GetAgent(context.Background(), "shuri")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if a == nil {
		t.Fatal("expected agent shuri")
	}
	if a.Status != domain.AgentStatusAway {
		t.Fatalf("reseed overwrote status: got %q", a.Status)
	}
}

func TestAgentByNameIsCaseInsensitive(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)

	a, err := store.AgentByName(context.Background(), "FURY")
	if err != nil {
		t.Fatalf("AgentByName: %v", err)
	}
	if a == nil || a.ID != "fury" {
		t.Fatalf("expected fury, got %+v", a)
	}

	missing, err := store.AgentByName(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("AgentByName missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown name, got %+v", missing)
	}
}
