package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/basket/mission-control/internal/notify"
	"github.com/basket/mission-control/internal/shared"
)

func runNotifyCommand(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: mc notify <list|read|read-all|clear|count> ...")
		return 2
	}

	rt, err := openRuntime(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer rt.Close()

	svc := notify.NewService(rt.store, nil, rt.logger)
	now := time.Now()

	sub := strings.ToLower(strings.TrimSpace(args[0]))
	switch sub {
	case "list":
		fs := flag.NewFlagSet("mc notify list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		agent := fs.String("agent", "", "filter by agent name")
		unread := fs.Bool("unread", false, "unread only")
		limit := fs.Int("limit", 0, "max rows")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		list, err := svc.List(ctx, notify.ListParams{
			Agent:      *agent,
			UnreadOnly: *unread,
			Limit:      *limit,
		})
		if err != nil {
			return fail(err)
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stdout, "no notifications")
			return 0
		}
		names, err := loadAgentNames(ctx, rt)
		if err != nil {
			return fail(err)
		}
		for _, n := range list {
			marker := " "
			if !n.Read {
				marker = "*"
			}
			to := names[n.AgentID]
			if to == "" {
				to = n.AgentID
			}
			line := fmt.Sprintf("%s %-22s %-13s %-10s [%s] %s",
				marker, n.ID, n.Type, to, shared.TimeAgo(n.CreatedAt, now), n.Content)
			if n.TaskID != "" {
				line += "  " + n.TaskID
			}
			fmt.Fprintln(os.Stdout, line)
		}
		return 0

	case "read":
		rest := args[1:]
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: mc notify read <id>")
			return 2
		}
		marked, err := svc.MarkRead(ctx, rest[0])
		if err != nil {
			return fail(err)
		}
		if !marked {
			fmt.Fprintf(os.Stderr, "notification %s not found\n", rest[0])
			return 1
		}
		fmt.Fprintln(os.Stdout, "read")
		return 0

	case "read-all":
		agent, code := requireAgentFlag("mc notify read-all", args[1:])
		if code != 0 {
			return code
		}
		count, err := svc.MarkAllRead(ctx, agent)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "marked %d read\n", count)
		return 0

	case "clear":
		agent, code := requireAgentFlag("mc notify clear", args[1:])
		if code != 0 {
			return code
		}
		count, err := svc.Clear(ctx, agent)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "cleared %d\n", count)
		return 0

	case "count":
		agent, code := requireAgentFlag("mc notify count", args[1:])
		if code != 0 {
			return code
		}
		count, err := svc.UnreadCount(ctx, agent)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintln(os.Stdout, count)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown notify subcommand %q\n", sub)
		return 2
	}
}

// requireAgentFlag parses a lone required -agent flag. A non-zero second
// return is the exit code to use.
func requireAgentFlag(name string, args []string) (string, int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	agent := fs.String("agent", "", "agent name (required)")
	if err := fs.Parse(args); err != nil {
		return "", 2
	}
	if *agent == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -agent <name>\n", name)
		return "", 2
	}
	return *agent, 0
}
