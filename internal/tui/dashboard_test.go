package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestView_ShowsCountsAgentsAndActivity(t *testing.T) {
	when := time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)
	m := model{
		snap: Snapshot{
			GeneratedAt: when,
			StatusCounts: map[string]int{
				"inbox":       2,
				"in_progress": 1,
				"blocked":     1,
				"done":        4,
			},
			Active:  4,
			Blocked: 1,
			Agents: []AgentRow{
				{Name: "Jarvis", Role: "Squad Lead", Status: "active", Active: 2, Unread: 3},
				{Name: "Shuri", Role: "Product Analyst", Status: "away", Active: 1},
			},
			Recent: []ActivityRow{
				{When: when, AgentName: "Jarvis", Action: "task_created", TaskID: "TASK-1b2c3d4e"},
				{When: when, Action: "comment_added"},
			},
		},
	}
	view := m.View()

	for _, want := range []string{
		"inbox:2",
		"in_progress:1",
		"done:4",
		"4 tasks active",
		"1 blocked",
		"Jarvis",
		"3 unread",
		"Shuri",
		"task_created",
		"TASK-1b2c3d4e",
		"system comment_added",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q, got:\n%s", want, view)
		}
	}
}

func TestView_EmptySnapshot(t *testing.T) {
	m := model{snap: Snapshot{GeneratedAt: time.Now()}}
	view := m.View()

	for _, want := range []string{"(none)", "(no agents)", "(quiet)", "0 tasks active"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q, got:\n%s", want, view)
		}
	}
	if strings.Contains(view, "blocked") {
		t.Errorf("expected no blocked line for empty snapshot, got:\n%s", view)
	}
}

func TestDashboard_HeadlessNonTTY(t *testing.T) {
	provider := func() Snapshot {
		return Snapshot{
			GeneratedAt: time.Now(),
			Active:      1,
			Agents:      []AgentRow{{Name: "Fury", Role: "Customer Researcher", Status: "active"}},
		}
	}

	m := model{provider: provider, snap: provider()}

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("expected Init to return a cmd")
	}

	updated, quitCmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if updated == nil {
		t.Fatal("expected non-nil model after Update")
	}
	if quitCmd == nil {
		t.Fatal("expected quit command on 'q' key")
	}

	m2 := model{provider: provider, snap: Snapshot{}}
	updated2, tick := m2.Update(tickMsg(time.Now()))
	if tick == nil {
		t.Fatal("expected tick cmd after tick message")
	}
	if updated2.(model).snap.Active != 1 {
		t.Fatal("expected snapshot to be refreshed from provider")
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(cancelCtx, provider)
	if err != nil && err != context.Canceled {
		t.Fatalf("expected clean exit or context.Canceled, got: %v", err)
	}
}
