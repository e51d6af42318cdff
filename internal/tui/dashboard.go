// Package tui renders the live mission-control dashboard: task status
// counts, per-agent workload, unread notifications, and recent activity.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AgentRow is one roster line in the dashboard.
type AgentRow struct {
	Name   string
	Role   string
	Status string
	Active int
	Unread int
}

// ActivityRow is one recent-activity line.
type ActivityRow struct {
	When      time.Time
	AgentName string
	Action    string
	TaskID    string
}

// Snapshot is everything the dashboard shows for one refresh.
type Snapshot struct {
	GeneratedAt  time.Time
	StatusCounts map[string]int
	Active       int
	Blocked      int
	Agents       []AgentRow
	Recent       []ActivityRow
	LastError    string
}

// SnapshotProvider refreshes the dashboard data. It runs on every tick.
type SnapshotProvider func() Snapshot

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	unreadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// statusOrder fixes the column order for the status summary line.
var statusOrder = []string{"inbox", "assigned", "in_progress", "review", "blocked", "done", "cancelled"}

type model struct {
	provider SnapshotProvider
	snap     Snapshot
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.snap = m.provider()
		return m, tickCmd()
	}
	return m, nil
}

func (m model) View() string {
	var out strings.Builder

	out.WriteString(titleStyle.Render("Mission Control") + "  " +
		dimStyle.Render(m.snap.GeneratedAt.Format("15:04:05")) + "\n\n")

	out.WriteString(headStyle.Render("Tasks") + "  ")
	parts := make([]string, 0, len(statusOrder))
	for _, status := range statusOrder {
		if n := m.snap.StatusCounts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", status, n))
		}
	}
	if len(parts) == 0 {
		out.WriteString(dimStyle.Render("(none)"))
	} else {
		out.WriteString(strings.Join(parts, "  "))
	}
	out.WriteString(fmt.Sprintf("\n%s active", pluralize(m.snap.Active, "task")))
	if m.snap.Blocked > 0 {
		out.WriteString("  " + warnStyle.Render(fmt.Sprintf("%d blocked", m.snap.Blocked)))
	}
	out.WriteString("\n\n")

	out.WriteString(headStyle.Render("Agents") + "\n")
	if len(m.snap.Agents) == 0 {
		out.WriteString(dimStyle.Render("  (no agents)") + "\n")
	}
	for _, row := range m.snap.Agents {
		line := fmt.Sprintf("  %-10s %-20s %-8s %d active", row.Name, row.Role, row.Status, row.Active)
		if row.Unread > 0 {
			line += unreadStyle.Render(fmt.Sprintf("  %d unread", row.Unread))
		}
		out.WriteString(line + "\n")
	}
	out.WriteString("\n")

	out.WriteString(headStyle.Render("Recent activity") + "\n")
	if len(m.snap.Recent) == 0 {
		out.WriteString(dimStyle.Render("  (quiet)") + "\n")
	}
	for _, act := range m.snap.Recent {
		who := act.AgentName
		if who == "" {
			who = "system"
		}
		stamp := dimStyle.Render(act.When.Local().Format("15:04"))
		line := fmt.Sprintf("  %s %s %s", stamp, who, act.Action)
		if act.TaskID != "" {
			line += dimStyle.Render(" " + act.TaskID)
		}
		out.WriteString(line + "\n")
	}

	if m.snap.LastError != "" {
		out.WriteString("\n" + warnStyle.Render("error: "+m.snap.LastError) + "\n")
	}
	out.WriteString("\n" + dimStyle.Render("Press q to quit.") + "\n")
	return out.String()
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Run drives the dashboard until the context is cancelled or the user quits.
func Run(ctx context.Context, provider SnapshotProvider) error {
	defer bestEffortResetTTY()

	m := model{provider: provider, snap: provider()}
	p := tea.NewProgram(m)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	select {
	case <-ctx.Done():
		p.Quit()
		return ctx.Err()
	case err := <-done:
		return err
	}
}
