// Package cron runs the periodic due-date scan that turns soon-due tasks
// into task_due notifications.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/basket/mission-control/internal/bus"
	"github.com/basket/mission-control/internal/domain"
	mcotel "github.com/basket/mission-control/internal/otel"
	"github.com/basket/mission-control/internal/persistence"
	"github.com/basket/mission-control/internal/shared"
)

// cronParser parses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// Config holds the dependencies for the due-scan scheduler.
type Config struct {
	Store     *persistence.Store
	Bus       *bus.Bus
	Logger    *slog.Logger
	Telemetry *mcotel.Provider
	Schedule  string        // cron expression; defaults to every minute
	Window    time.Duration // look-ahead for "due soon"; defaults to 2h
}

// Scheduler fires on the configured cron schedule and inserts one task_due
// notification per assigned task due within the window. The notification
// dedup key makes repeated scans over the same task idempotent.
type Scheduler struct {
	store    *persistence.Store
	bus      *bus.Bus
	logger   *slog.Logger
	otel     *mcotel.Provider
	schedule cronlib.Schedule
	window   time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler, validating the cron expression.
func NewScheduler(cfg Config) (*Scheduler, error) {
	expr := cfg.Schedule
	if expr == "" {
		expr = "* * * * *"
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse due-scan schedule %q: %w", expr, err)
	}
	window := cfg.Window
	if window <= 0 {
		window = 2 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    cfg.Store,
		bus:      cfg.Bus,
		logger:   logger.With("component", "duescan"),
		otel:     cfg.Telemetry,
		schedule: schedule,
		window:   window,
	}, nil
}

// Start begins the scan loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("due scanner started", "window", s.window)
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("due scanner stopped")
}

// loop scans immediately on startup, then at each scheduled fire time.
func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.Scan(ctx, time.Now())

	for {
		now := time.Now()
		timer := time.NewTimer(s.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fired := <-timer.C:
			s.Scan(ctx, fired)
		}
	}
}

// Scan notifies assignees of open tasks due within the window after now.
// Safe to call repeatedly; already-notified (task, due date) pairs are
// skipped through the dedup key.
func (s *Scheduler) Scan(ctx context.Context, now time.Time) {
	ctx, end := s.span(ctx)
	defer end()

	due, err := s.store.DueWithin(ctx, now, now.Add(s.window))
	if err != nil {
		s.logger.Error("due scan query failed", "error", err)
		return
	}

	for _, task := range due {
		if task.AssigneeID == "" || task.DueDate == nil {
			continue
		}
		key := fmt.Sprintf("due:%s:%s", task.ID, task.DueDate.UTC().Format(time.RFC3339))
		inserted, err := s.store.CreateNotification(ctx, &domain.Notification{
			ID:       shared.NewID("NOTIF"),
			AgentID:  task.AssigneeID,
			TaskID:   task.ID,
			Content:  fmt.Sprintf("Due soon: %s (due %s)", task.Title, task.DueDate.Local().Format("2006-01-02 15:04")),
			Type:     domain.NotificationTaskDue,
			DedupKey: key,
		})
		if err != nil {
			s.logger.Error("due notification failed", "task", task.ID, "error", err)
			continue
		}
		if !inserted {
			continue
		}
		s.bus.Publish(bus.TopicTaskDueSoon, bus.TaskDueSoonEvent{
			TaskID:   task.ID,
			AgentID:  task.AssigneeID,
			DedupKey: key,
		})
		s.logger.Info("due-soon notification", "task", task.ID, "agent", task.AssigneeID, "due", task.DueDate)
	}
}

func (s *Scheduler) span(ctx context.Context) (context.Context, func()) {
	if s.otel == nil || s.otel.Tracer == nil {
		return ctx, func() {}
	}
	ctx, span := mcotel.StartSpan(ctx, s.otel.Tracer, "duescan.scan",
		mcotel.AttrRunID.String(shared.RunID(ctx)),
	)
	return ctx, func() { span.End() }
}
