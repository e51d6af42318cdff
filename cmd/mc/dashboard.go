package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/basket/mission-control/internal/shared"
	"github.com/basket/mission-control/internal/tui"
)

func runDashboardCommand(ctx context.Context) int {
	rt, err := openRuntime(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer rt.Close()

	provider := func() tui.Snapshot {
		return buildSnapshot(ctx, rt)
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		if err := tui.Run(ctx, provider); err != nil && err != context.Canceled {
			return fail(err)
		}
		return 0
	}

	// Headless: print one snapshot and exit.
	printSnapshot(provider())
	return 0
}

// buildSnapshot aggregates the dashboard view from the store. Query errors
// surface in the snapshot rather than aborting the refresh loop.
func buildSnapshot(ctx context.Context, rt *runtime) tui.Snapshot {
	snap := tui.Snapshot{GeneratedAt: time.Now()}

	counts, err := rt.store.StatusCounts(ctx)
	if err != nil {
		snap.LastError = err.Error()
		return snap
	}
	snap.StatusCounts = make(map[string]int, len(counts))
	for status, n := range counts {
		snap.StatusCounts[string(status)] = n
	}

	if snap.Active, err = rt.store.CountActive(ctx); err != nil {
		snap.LastError = err.Error()
		return snap
	}
	if snap.Blocked, err = rt.store.CountBlocked(ctx); err != nil {
		snap.LastError = err.Error()
		return snap
	}

	agents, err := rt.store.ListAgents(ctx)
	if err != nil {
		snap.LastError = err.Error()
		return snap
	}
	unread, err := rt.store.UnreadByAgent(ctx)
	if err != nil {
		snap.LastError = err.Error()
		return snap
	}
	for _, agent := range agents {
		active, err := rt.store.ActiveForAgent(ctx, agent.ID)
		if err != nil {
			snap.LastError = err.Error()
			return snap
		}
		snap.Agents = append(snap.Agents, tui.AgentRow{
			Name:   agent.Name,
			Role:   agent.Role,
			Status: string(agent.Status),
			Active: len(active),
			Unread: unread[agent.ID],
		})
	}

	recent, err := rt.store.RecentActivities(ctx, 10)
	if err != nil {
		snap.LastError = err.Error()
		return snap
	}
	for _, act := range recent {
		snap.Recent = append(snap.Recent, tui.ActivityRow{
			When:      act.CreatedAt,
			AgentName: act.AgentName,
			Action:    act.Action,
			TaskID:    act.TaskID,
		})
	}
	return snap
}

func printSnapshot(snap tui.Snapshot) {
	fmt.Fprintf(os.Stdout, "mission control @ %s\n\n", snap.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintln(os.Stdout, "tasks:")
	for status, n := range snap.StatusCounts {
		fmt.Fprintf(os.Stdout, "  %-12s %d\n", status, n)
	}
	fmt.Fprintf(os.Stdout, "  active %d, blocked %d\n\n", snap.Active, snap.Blocked)

	fmt.Fprintln(os.Stdout, "agents:")
	for _, row := range snap.Agents {
		fmt.Fprintf(os.Stdout, "  %-10s %-20s %-8s %d active, %d unread\n",
			row.Name, row.Role, row.Status, row.Active, row.Unread)
	}

	if len(snap.Recent) > 0 {
		fmt.Fprintln(os.Stdout, "\nrecent activity:")
		now := time.Now()
		for _, act := range snap.Recent {
			who := act.AgentName
			if who == "" {
				who = "system"
			}
			fmt.Fprintf(os.Stdout, "  [%s] %s %s %s\n",
				shared.TimeAgo(act.When, now), who, act.Action, act.TaskID)
		}
	}
	if snap.LastError != "" {
		fmt.Fprintf(os.Stderr, "error: %s\n", snap.LastError)
	}
}
