package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/shared"
)

// colorEnabled gates lipgloss styling; piped output stays plain.
var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

var priorityStyles = map[domain.Priority]lipgloss.Style{
	domain.PriorityUrgent: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	domain.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	domain.PriorityNormal: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	domain.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

var statusStyles = map[domain.TaskStatus]lipgloss.Style{
	domain.TaskStatusInbox:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	domain.TaskStatusAssigned:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	domain.TaskStatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	domain.TaskStatusBlocked:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	domain.TaskStatusReview:     lipgloss.NewStyle().Foreground(lipgloss.Color("135")),
	domain.TaskStatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
	domain.TaskStatusCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

func stylePriority(p domain.Priority) string {
	if !colorEnabled {
		return string(p)
	}
	if style, ok := priorityStyles[p]; ok {
		return style.Render(string(p))
	}
	return string(p)
}

func styleStatus(s domain.TaskStatus) string {
	if !colorEnabled {
		return string(s)
	}
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

// formatDue renders a due date relative to now: "due 2026-09-04",
// "due today", or "OVERDUE 2026-08-30" for past dates on open tasks.
func formatDue(due *time.Time, now time.Time) string {
	if due == nil {
		return ""
	}
	day := shared.DateOnly(due.Local())
	switch {
	case day == shared.DateOnly(now):
		return "due today"
	case due.Before(now):
		return "OVERDUE " + day
	default:
		return "due " + day
	}
}

func formatTaskLine(t *domain.Task, agentNames map[string]string, now time.Time) string {
	assignee := agentNames[t.AssigneeID]
	if assignee == "" {
		assignee = "-"
	}
	line := fmt.Sprintf("%-22s %-11s %-11s %-10s %s",
		t.ID, stylePriority(t.Priority), styleStatus(t.Status), assignee,
		shared.Truncate(t.Title, 60))
	if due := formatDue(t.DueDate, now); due != "" && t.Status != domain.TaskStatusDone &&
		t.Status != domain.TaskStatusCancelled {
		line += "  " + due
	}
	return line
}

func formatTaskDetail(t *domain.Task, agentNames map[string]string, now time.Time) string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s  %s\n", t.ID, t.Title)
	fmt.Fprintf(&out, "  status:   %s\n", styleStatus(t.Status))
	fmt.Fprintf(&out, "  priority: %s\n", stylePriority(t.Priority))
	if name := agentNames[t.AssigneeID]; name != "" {
		fmt.Fprintf(&out, "  assignee: %s\n", name)
	}
	if name := agentNames[t.CreatorID]; name != "" {
		fmt.Fprintf(&out, "  creator:  %s\n", name)
	}
	if t.Description != "" {
		fmt.Fprintf(&out, "  description: %s\n", t.Description)
	}
	if due := formatDue(t.DueDate, now); due != "" {
		fmt.Fprintf(&out, "  %s\n", due)
	}
	if t.ParentID != "" {
		fmt.Fprintf(&out, "  parent:   %s\n", t.ParentID)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&out, "  tags:     %s\n", strings.Join(t.Tags, ", "))
	}
	fmt.Fprintf(&out, "  created:  %s\n", shared.TimeAgo(t.CreatedAt, now))
	if t.CompletedAt != nil {
		fmt.Fprintf(&out, "  completed: %s\n", shared.TimeAgo(*t.CompletedAt, now))
	}
	return out.String()
}

// parseDue accepts YYYY-MM-DD and returns local midnight of that day.
func parseDue(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q, want YYYY-MM-DD", value)
	}
	return &t, nil
}

// splitTags turns "a, b,c" into ["a","b","c"], dropping empties.
func splitTags(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// agentNameMap maps agent ID to display name for output rendering.
func agentNameMap(agents []*domain.Agent) map[string]string {
	names := make(map[string]string, len(agents))
	for _, a := range agents {
		names[a.ID] = a.Name
	}
	return names
}
