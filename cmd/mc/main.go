// Command mc is the mission-control binary: task and notification
// subcommands, a live dashboard, and a -daemon mode that runs the
// message-drop watcher and the due-date scanner.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/basket/mission-control/internal/bus"
	"github.com/basket/mission-control/internal/config"
	"github.com/basket/mission-control/internal/cron"
	"github.com/basket/mission-control/internal/domain"
	mcotel "github.com/basket/mission-control/internal/otel"
	"github.com/basket/mission-control/internal/persistence"
	"github.com/basket/mission-control/internal/shared"
	"github.com/basket/mission-control/internal/telemetry"
	"github.com/basket/mission-control/internal/watcher"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, `mc - mission control for agent squads

Usage:
  mc -daemon                 run the message watcher and due-date scanner
  mc task <subcommand> ...   create, list, get, update, complete, delete,
                             comment, subscribe, unsubscribe
  mc notify <subcommand> ... list, read, read-all, clear, count
  mc standup [-save]         generate the daily standup report
  mc dashboard               live status view (plain print when not a TTY)
  mc agents                  roster with status and unread counts
  mc doctor                  run environment diagnostics
  mc help                    show this help

Data lives under ~/.mission-control (override with MC_HOME).`)
}

func main() {
	daemonMode := flag.Bool("daemon", false, "run the watcher daemon")
	flag.Usage = printUsage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *daemonMode {
		os.Exit(runDaemon(ctx))
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	switch strings.ToLower(args[0]) {
	case "task":
		os.Exit(runTaskCommand(ctx, args[1:]))
	case "notify":
		os.Exit(runNotifyCommand(ctx, args[1:]))
	case "standup":
		os.Exit(runStandupCommand(ctx, args[1:]))
	case "dashboard":
		os.Exit(runDashboardCommand(ctx))
	case "agents":
		os.Exit(runAgentsCommand(ctx))
	case "doctor":
		os.Exit(runDoctorCommand(ctx))
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

// runtime bundles what every command needs: config, logger, open store
// with the roster seeded.
type runtime struct {
	cfg     config.Config
	store   *persistence.Store
	logger  *slog.Logger
	logFile io.Closer
}

// openRuntime loads config, sets up logging, and opens the store. CLI
// commands pass quiet=true so log lines stay out of command output.
func openRuntime(ctx context.Context, quiet bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, logFile, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, quiet)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	slog.SetDefault(logger)

	store, err := persistence.Open(cfg.DBPath())
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.SeedAgents(ctx, rosterAgents(cfg.Roster)); err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("seed roster: %w", err)
	}

	return &runtime{cfg: cfg, store: store, logger: logger, logFile: logFile}, nil
}

func (r *runtime) Close() {
	if r.store != nil {
		r.store.Close()
	}
	if r.logFile != nil {
		r.logFile.Close()
	}
}

func rosterAgents(seeds []config.AgentSeed) []domain.Agent {
	agents := make([]domain.Agent, 0, len(seeds))
	for _, seed := range seeds {
		if seed.Name == "" {
			continue
		}
		agents = append(agents, domain.Agent{
			Name:       seed.Name,
			Role:       seed.Role,
			SessionKey: seed.SessionKey,
			Status:     domain.AgentStatusActive,
		})
	}
	return agents
}

func runDaemon(ctx context.Context) int {
	rt, err := openRuntime(ctx, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		return 1
	}
	defer rt.Close()

	provider, err := mcotel.Init(ctx, rt.cfg.Telemetry)
	if err != nil {
		rt.logger.Error("telemetry init failed, continuing without tracing", "error", err)
		provider = nil
	}
	if provider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				rt.logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	runID := shared.NewRunID()
	ctx = shared.WithRunID(ctx, runID)
	log := rt.logger.With("component", "daemon", "run_id", runID)

	eventBus := bus.New()
	stopObserver := bus.Observe(ctx, eventBus, rt.logger)

	w, err := watcher.New(watcher.Config{
		Store:       rt.store,
		Bus:         eventBus,
		Logger:      rt.logger,
		Telemetry:   provider,
		MessagesDir: rt.cfg.MessagesDir(),
		AgentsDir:   rt.cfg.AgentsDir(),
		Debounce:    time.Duration(rt.cfg.WatcherDebounceMS) * time.Millisecond,
	})
	if err != nil {
		log.Error("watcher setup failed", "error", err)
		return 1
	}

	scheduler, err := cron.NewScheduler(cron.Config{
		Store:     rt.store,
		Bus:       eventBus,
		Logger:    rt.logger,
		Telemetry: provider,
		Schedule:  rt.cfg.DueScan.Schedule,
		Window:    time.Duration(rt.cfg.DueScan.WindowMinutes) * time.Minute,
	})
	if err != nil {
		log.Error("due scan setup failed", "error", err)
		return 1
	}

	if err := w.Start(ctx); err != nil {
		log.Error("watcher start failed", "error", err)
		return 1
	}
	scheduler.Start(ctx)

	log.Info("daemon started",
		"messages_dir", rt.cfg.MessagesDir(),
		"due_scan_schedule", rt.cfg.DueScan.Schedule,
		"due_scan_window_minutes", rt.cfg.DueScan.WindowMinutes)

	<-ctx.Done()

	log.Info("shutting down")
	scheduler.Stop()
	w.Stop()
	stopObserver()
	return 0
}

// fail prints err to stderr and returns the command exit code.
func fail(err error) int {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}
