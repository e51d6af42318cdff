package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/shared"
	"github.com/basket/mission-control/internal/tasks"
)

func runTaskCommand(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: mc task <create|list|get|update|complete|delete|comment|subscribe|unsubscribe> ...")
		return 2
	}

	rt, err := openRuntime(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer rt.Close()

	svc := tasks.NewService(rt.store, nil, rt.logger)
	now := time.Now()

	sub := strings.ToLower(strings.TrimSpace(args[0]))
	switch sub {
	case "create":
		fs := flag.NewFlagSet("mc task create", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		title := fs.String("title", "", "task title (required)")
		description := fs.String("description", "", "task description")
		assignee := fs.String("assignee", "", "assignee agent name")
		creator := fs.String("creator", "", "creating agent name")
		priority := fs.String("priority", "", "urgent|high|normal|low")
		due := fs.String("due", "", "due date YYYY-MM-DD")
		tags := fs.String("tags", "", "comma-separated tags")
		parent := fs.String("parent", "", "parent task id")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		dueDate, err := parseDue(*due)
		if err != nil {
			return fail(err)
		}
		task, err := svc.Create(ctx, tasks.CreateParams{
			Title:       *title,
			Description: *description,
			Assignee:    *assignee,
			Creator:     *creator,
			Priority:    domain.Priority(*priority),
			DueDate:     dueDate,
			ParentID:    *parent,
			Tags:        splitTags(*tags),
		})
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "created %s\n", task.ID)
		return 0

	case "list":
		fs := flag.NewFlagSet("mc task list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		status := fs.String("status", "", "filter by status")
		assignee := fs.String("assignee", "", "filter by assignee name")
		priority := fs.String("priority", "", "filter by priority")
		tag := fs.String("tag", "", "filter by tag")
		limit := fs.Int("limit", 0, "max rows")
		offset := fs.Int("offset", 0, "rows to skip")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		list, err := svc.List(ctx, tasks.ListParams{
			Status:   domain.TaskStatus(*status),
			Assignee: *assignee,
			Priority: domain.Priority(*priority),
			Tag:      *tag,
			Limit:    *limit,
			Offset:   *offset,
		})
		if err != nil {
			return fail(err)
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stdout, "no tasks")
			return 0
		}
		names, err := loadAgentNames(ctx, rt)
		if err != nil {
			return fail(err)
		}
		for _, t := range list {
			fmt.Fprintln(os.Stdout, formatTaskLine(t, names, now))
		}
		return 0

	case "get":
		rest := args[1:]
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: mc task get <id>")
			return 2
		}
		task, err := svc.Get(ctx, rest[0])
		if err != nil {
			return fail(err)
		}
		if task == nil {
			fmt.Fprintf(os.Stderr, "task %s not found\n", rest[0])
			return 1
		}
		names, err := loadAgentNames(ctx, rt)
		if err != nil {
			return fail(err)
		}
		fmt.Fprint(os.Stdout, formatTaskDetail(task, names, now))
		comments, err := svc.Comments(ctx, task.ID)
		if err != nil {
			return fail(err)
		}
		if len(comments) > 0 {
			fmt.Fprintln(os.Stdout, "\ncomments:")
			for _, c := range comments {
				author := c.AuthorName
				if author == "" {
					author = "system"
				}
				fmt.Fprintf(os.Stdout, "  [%s] %s: %s\n",
					shared.TimeAgo(c.CreatedAt, now), author, c.Content)
			}
		}
		return 0

	case "update":
		fs := flag.NewFlagSet("mc task update", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		title := fs.String("title", "", "new title")
		description := fs.String("description", "", "new description")
		assignee := fs.String("assignee", "", "new assignee name (empty clears)")
		status := fs.String("status", "", "new status")
		priority := fs.String("priority", "", "new priority")
		due := fs.String("due", "", "new due date YYYY-MM-DD")
		tags := fs.String("tags", "", "replacement tags, comma-separated")
		parent := fs.String("parent", "", "new parent id (empty detaches)")
		id, flagArgs, ok := splitIDArgs(args[1:], "usage: mc task update <id> [flags]")
		if !ok {
			return 2
		}
		if err := fs.Parse(flagArgs); err != nil {
			return 2
		}
		if fs.NArg() != 0 {
			fmt.Fprintln(os.Stderr, "usage: mc task update <id> [flags]")
			return 2
		}

		var patch tasks.Patch
		var parseErr error
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "title":
				patch.Title = title
			case "description":
				patch.Description = description
			case "assignee":
				patch.Assignee = assignee
			case "status":
				s := domain.TaskStatus(*status)
				patch.Status = &s
			case "priority":
				p := domain.Priority(*priority)
				patch.Priority = &p
			case "due":
				patch.DueDate, parseErr = parseDue(*due)
			case "tags":
				patch.Tags = splitTags(*tags)
				if patch.Tags == nil {
					patch.Tags = []string{}
				}
			case "parent":
				patch.Parent = parent
			}
		})
		if parseErr != nil {
			return fail(parseErr)
		}

		task, err := svc.Update(ctx, id, patch)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "updated %s\n", task.ID)
		return 0

	case "complete":
		rest := args[1:]
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: mc task complete <id>")
			return 2
		}
		task, err := svc.Complete(ctx, rest[0])
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "completed %s\n", task.ID)
		return 0

	case "delete":
		rest := args[1:]
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: mc task delete <id>")
			return 2
		}
		removed, err := svc.Delete(ctx, rest[0])
		if err != nil {
			return fail(err)
		}
		if !removed {
			fmt.Fprintf(os.Stdout, "task %s was already gone\n", rest[0])
			return 0
		}
		fmt.Fprintf(os.Stdout, "deleted %s\n", rest[0])
		return 0

	case "comment":
		fs := flag.NewFlagSet("mc task comment", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		from := fs.String("from", "", "authoring agent name (required)")
		message := fs.String("message", "", "comment text (required)")
		id, flagArgs, ok := splitIDArgs(args[1:], "usage: mc task comment <id> -from <agent> -message <text>")
		if !ok {
			return 2
		}
		if err := fs.Parse(flagArgs); err != nil {
			return 2
		}
		if fs.NArg() != 0 {
			fmt.Fprintln(os.Stderr, "usage: mc task comment <id> -from <agent> -message <text>")
			return 2
		}
		msg, err := svc.AddComment(ctx, id, *from, *message)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "comment %s added\n", msg.ID)
		return 0

	case "subscribe", "unsubscribe":
		fs := flag.NewFlagSet("mc task "+sub, flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		agent := fs.String("agent", "", "agent name (required)")
		usage := fmt.Sprintf("usage: mc task %s <id> -agent <name>", sub)
		id, flagArgs, ok := splitIDArgs(args[1:], usage)
		if !ok {
			return 2
		}
		if err := fs.Parse(flagArgs); err != nil {
			return 2
		}
		if fs.NArg() != 0 || *agent == "" {
			fmt.Fprintln(os.Stderr, usage)
			return 2
		}
		if sub == "subscribe" {
			added, err := svc.Subscribe(ctx, *agent, id)
			if err != nil {
				return fail(err)
			}
			if added {
				fmt.Fprintf(os.Stdout, "%s now watching %s\n", *agent, id)
			} else {
				fmt.Fprintf(os.Stdout, "%s already watching %s\n", *agent, id)
			}
			return 0
		}
		removed, err := svc.Unsubscribe(ctx, *agent, id)
		if err != nil {
			return fail(err)
		}
		if removed {
			fmt.Fprintf(os.Stdout, "%s stopped watching %s\n", *agent, id)
		} else {
			fmt.Fprintf(os.Stdout, "%s was not watching %s\n", *agent, id)
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown task subcommand %q\n", sub)
		return 2
	}
}

// splitIDArgs peels the positional task ID off the front of args so the
// remaining flags can be parsed; the stdlib flag package stops at the
// first non-flag argument, so the ID cannot go through fs.Parse. Prints
// usage and reports false when the ID is missing.
func splitIDArgs(args []string, usage string) (string, []string, bool) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(os.Stderr, usage)
		return "", nil, false
	}
	return args[0], args[1:], true
}

func loadAgentNames(ctx context.Context, rt *runtime) (map[string]string, error) {
	agents, err := rt.store.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agentNameMap(agents), nil
}
