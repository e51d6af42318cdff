package main

import (
	"context"
	"fmt"
	"os"

	"github.com/basket/mission-control/internal/config"
	"github.com/basket/mission-control/internal/doctor"
)

func runDoctorCommand(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		// Still run the checks so they report the failure context.
		diagnose(ctx, nil)
		return 1
	}

	if healthy := diagnose(ctx, &cfg); !healthy {
		return 1
	}
	return 0
}

func diagnose(ctx context.Context, cfg *config.Config) bool {
	d := doctor.Run(ctx, cfg)

	fmt.Fprintf(os.Stdout, "mc doctor (%s/%s, %s)\n\n", d.System.OS, d.System.Arch, d.System.Go)
	for _, r := range d.Results {
		fmt.Fprintf(os.Stdout, "  [%s] %-12s %s\n", r.Status, r.Name, r.Message)
		if r.Detail != "" {
			fmt.Fprintf(os.Stdout, "         %s\n", r.Detail)
		}
	}
	fmt.Fprintln(os.Stdout)
	if d.Healthy() {
		fmt.Fprintln(os.Stdout, "all checks passed")
	} else {
		fmt.Fprintln(os.Stdout, "some checks failed")
	}
	return d.Healthy()
}
