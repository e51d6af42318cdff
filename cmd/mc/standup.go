package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/basket/mission-control/internal/standup"
)

func runStandupCommand(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("mc standup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	save := fs.Bool("save", false, "also write standups/<date>-standup.md")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rt, err := openRuntime(ctx, true)
	if err != nil {
		return fail(err)
	}
	defer rt.Close()

	reporter := standup.NewReporter(rt.store, rt.cfg.StandupsDir(), rt.logger)
	now := time.Now()

	report, err := reporter.Generate(ctx, now)
	if err != nil {
		return fail(err)
	}
	fmt.Fprint(os.Stdout, report)

	if *save {
		path, err := reporter.Save(report, now)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stderr, "saved %s\n", path)
	}
	return 0
}
