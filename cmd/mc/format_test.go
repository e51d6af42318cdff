package main

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/basket/mission-control/internal/domain"
)

func TestParseDue(t *testing.T) {
	got, err := parseDue("2026-09-04")
	if err != nil {
		t.Fatalf("parseDue: %v", err)
	}
	if got == nil {
		t.Fatal("expected a date")
	}
	if got.Year() != 2026 || got.Month() != time.September || got.Day() != 4 {
		t.Fatalf("wrong date: %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}

	if got, err := parseDue("  "); err != nil || got != nil {
		t.Fatalf("blank input should yield nil date, got %v, %v", got, err)
	}
	if _, err := parseDue("tomorrow"); err == nil {
		t.Fatal("expected error for non-date input")
	}
	if _, err := parseDue("04/09/2026"); err == nil {
		t.Fatal("expected error for wrong format")
	}
}

func TestSplitTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		if got := splitTags(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitTags(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatDue(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)

	if got := formatDue(nil, now); got != "" {
		t.Errorf("nil due should render empty, got %q", got)
	}

	future := time.Date(2026, 9, 4, 0, 0, 0, 0, time.Local)
	if got := formatDue(&future, now); got != "due 2026-09-04" {
		t.Errorf("future due = %q", got)
	}

	today := time.Date(2026, 9, 1, 17, 0, 0, 0, time.Local)
	if got := formatDue(&today, now); got != "due today" {
		t.Errorf("today due = %q", got)
	}

	past := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)
	if got := formatDue(&past, now); got != "OVERDUE 2026-08-28" {
		t.Errorf("past due = %q", got)
	}
}

func TestFormatTaskLine(t *testing.T) {
	prev := colorEnabled
	colorEnabled = false
	defer func() { colorEnabled = prev }()

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)
	due := time.Date(2026, 9, 2, 0, 0, 0, 0, time.Local)
	task := &domain.Task{
		ID:         "TASK-X-00000001",
		Title:      "Write launch checklist",
		AssigneeID: "jarvis",
		Status:     domain.TaskStatusInProgress,
		Priority:   domain.PriorityHigh,
		DueDate:    &due,
	}
	names := map[string]string{"jarvis": "Jarvis"}

	line := formatTaskLine(task, names, now)
	for _, want := range []string{"TASK-X-00000001", "high", "in_progress", "Jarvis", "Write launch checklist", "due 2026-09-02"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected line to contain %q, got %q", want, line)
		}
	}

	// Done tasks do not show a due tag even when one is set.
	task.Status = domain.TaskStatusDone
	if line := formatTaskLine(task, names, now); strings.Contains(line, "due") {
		t.Errorf("done task should not show due tag, got %q", line)
	}

	// Unassigned renders a dash.
	task.Status = domain.TaskStatusInbox
	task.AssigneeID = ""
	if line := formatTaskLine(task, names, now); !strings.Contains(line, " - ") {
		t.Errorf("expected dash for unassigned, got %q", line)
	}
}

func TestFormatTaskDetail(t *testing.T) {
	prev := colorEnabled
	colorEnabled = false
	defer func() { colorEnabled = prev }()

	now := time.Now()
	created := now.Add(-2 * time.Hour)
	task := &domain.Task{
		ID:          "TASK-X-00000002",
		Title:       "Refresh keyword report",
		Description: "Use last month's data.",
		AssigneeID:  "vision",
		CreatorID:   "jarvis",
		Status:      domain.TaskStatusAssigned,
		Priority:    domain.PriorityNormal,
		Tags:        []string{"seo", "report"},
		CreatedAt:   created,
	}
	names := map[string]string{"vision": "Vision", "jarvis": "Jarvis"}

	detail := formatTaskDetail(task, names, now)
	for _, want := range []string{
		"Refresh keyword report",
		"assignee: Vision",
		"creator:  Jarvis",
		"Use last month's data.",
		"seo, report",
		"2h ago",
	} {
		if !strings.Contains(detail, want) {
			t.Errorf("expected detail to contain %q, got:\n%s", want, detail)
		}
	}
}
