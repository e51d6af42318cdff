package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/basket/mission-control/internal/shared"
)

func runAgentsCommand(ctx context.Context) int {
	rt, err := openRuntime(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer rt.Close()

	agents, err := rt.store.ListAgents(ctx)
	if err != nil {
		return fail(err)
	}
	unread, err := rt.store.UnreadByAgent(ctx)
	if err != nil {
		return fail(err)
	}

	now := time.Now()
	for _, agent := range agents {
		seen := "never"
		if agent.LastSeen != nil {
			seen = shared.TimeAgo(*agent.LastSeen, now)
		}
		active, err := rt.store.ActiveForAgent(ctx, agent.ID)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "%-10s %-20s %-8s seen %-12s %d active, %d unread\n",
			agent.Name, agent.Role, agent.Status, seen, len(active), unread[agent.ID])
	}
	return 0
}
