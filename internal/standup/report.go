// Package standup builds the daily per-agent report from the task store.
// Pure projection; nothing here mutates state.
package standup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/persistence"
	"github.com/basket/mission-control/internal/shared"
)

const recentActivityLimit = 5

// Reporter aggregates the standup view. Day boundaries are computed in the
// process-local timezone of the given reference time.
type Reporter struct {
	store       *persistence.Store
	standupsDir string
	log         *slog.Logger
}

func NewReporter(store *persistence.Store, standupsDir string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{store: store, standupsDir: standupsDir, log: logger.With("component", "standup")}
}

// Generate renders the standup for the day containing now: per agent, tasks
// completed yesterday, the active set ordered by priority, the blocked
// subset, and today's five most recent activity entries, followed by a
// global summary.
func (r *Reporter) Generate(ctx context.Context, now time.Time) (string, error) {
	todayStart := startOfDay(now)
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	tomorrowStart := todayStart.AddDate(0, 0, 1)

	agents, err := r.store.ListAgents(ctx)
	if err != nil {
		return "", fmt.Errorf("standup roster: %w", err)
	}
	todayEntries, err := r.store.ActivitiesBetween(ctx, todayStart, tomorrowStart)
	if err != nil {
		return "", fmt.Errorf("standup activities: %w", err)
	}
	byAgent := make(map[string][]persistence.ActivityEntry)
	for _, e := range todayEntries {
		byAgent[e.AgentID] = append(byAgent[e.AgentID], e)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Standup: %s\n\n", shared.DateOnly(now))

	for _, agent := range agents {
		completed, err := r.store.CompletedBetween(ctx, agent.ID, yesterdayStart, todayStart)
		if err != nil {
			return "", fmt.Errorf("standup completed for %s: %w", agent.Name, err)
		}
		active, err := r.store.ActiveForAgent(ctx, agent.ID)
		if err != nil {
			return "", fmt.Errorf("standup active for %s: %w", agent.Name, err)
		}
		var blocked []*domain.Task
		for _, t := range active {
			if t.Status == domain.TaskStatusBlocked {
				blocked = append(blocked, t)
			}
		}

		fmt.Fprintf(&b, "## %s (%s)\n\n", agent.Name, agent.Role)

		b.WriteString("**Completed yesterday:**\n")
		if len(completed) == 0 {
			b.WriteString("- nothing\n")
		}
		for _, t := range completed {
			fmt.Fprintf(&b, "- %s\n", t.Title)
		}
		b.WriteString("\n")

		b.WriteString("**Working on:**\n")
		if len(active) == 0 {
			b.WriteString("- nothing assigned\n")
		}
		for _, t := range active {
			fmt.Fprintf(&b, "- [%s] %s (%s)\n", t.Priority, t.Title, t.Status)
		}
		b.WriteString("\n")

		if len(blocked) > 0 {
			b.WriteString("**Blocked:**\n")
			for _, t := range blocked {
				fmt.Fprintf(&b, "- %s\n", t.Title)
			}
			b.WriteString("\n")
		}

		if entries := byAgent[agent.ID]; len(entries) > 0 {
			b.WriteString("**Today's activity:**\n")
			if len(entries) > recentActivityLimit {
				entries = entries[len(entries)-recentActivityLimit:]
			}
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				line := e.Action
				if e.Details != "" {
					line += ": " + e.Details
				}
				fmt.Fprintf(&b, "- %s\n", line)
			}
			b.WriteString("\n")
		}
	}

	activeCount, err := r.store.CountActive(ctx)
	if err != nil {
		return "", fmt.Errorf("standup active count: %w", err)
	}
	blockedCount, err := r.store.CountBlocked(ctx)
	if err != nil {
		return "", fmt.Errorf("standup blocked count: %w", err)
	}
	completedToday, err := r.store.CountCompletedBetween(ctx, todayStart, tomorrowStart)
	if err != nil {
		return "", fmt.Errorf("standup completed count: %w", err)
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Active tasks: %d\n", activeCount)
	fmt.Fprintf(&b, "- Blocked tasks: %d\n", blockedCount)
	fmt.Fprintf(&b, "- Completed today: %d\n", completedToday)

	return b.String(), nil
}

// Save writes the report to <standupsDir>/<date>-standup.md and returns the
// path.
func (r *Reporter) Save(report string, now time.Time) (string, error) {
	if err := os.MkdirAll(r.standupsDir, 0o755); err != nil {
		return "", fmt.Errorf("create standups dir: %w", err)
	}
	path := filepath.Join(r.standupsDir, shared.DateOnly(now)+"-standup.md")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("write standup: %w", err)
	}
	r.log.Info("standup saved", "path", path)
	return path, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
