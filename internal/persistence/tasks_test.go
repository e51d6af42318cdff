package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/shared"
)

func newTestTask(t *testing.T, store *Store, mutate func(*domain.Task)) *domain.Task {
	t.Helper()
	task := &domain.Task{
		ID:       shared.NewID("TASK"),
		Title:    "write onboarding doc",
		Status:   domain.TaskStatusInbox,
		Priority: domain.PriorityNormal,
	}
	if mutate != nil {
		mutate(task)
	}
	if err := store.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func TestTaskRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)

	due := time.Date(2026, 9, 3, 17, 0, 0, 0, time.UTC)
	created := newTestTask(t, store, func(task *domain.Task) {
		task.Description = "cover the CLI and the daemon"
		task.AssigneeID = "shuri"
		task.CreatorID = "jarvis"
		task.Priority = domain.PriorityHigh
		task.DueDate = &due
		task.Tags = []string{"docs", "q3"}
	})

	got, err := store.GetTask(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got == nil {
		t.Fatal("expected task")
	}
	if got.Title != created.Title || got.AssigneeID != "shuri" || got.CreatorID != "jarvis" {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.Priority != domain.PriorityHigh {
		t.Fatalf("priority = %q", got.Priority)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date = %v", got.DueDate)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "docs" || got.Tags[1] != "q3" {
		t.Fatalf("tags = %v", got.Tags)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps from the database")
	}
}

func TestGetTaskMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetTask(context.Background(), "TASK-MISSING")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestListTasksFilters(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)

	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "triage inbox"
		task.AssigneeID = "shuri"
		task.Status = domain.TaskStatusInProgress
		task.Tags = []string{"ops"}
	})
	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "draft report"
		task.AssigneeID = "fury"
		task.Status = domain.TaskStatusInProgress
	})
	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "old idea"
		task.Status = domain.TaskStatusCancelled
	})

	ctx := context.Background()

	byStatus, err := store.ListTasks(ctx, TaskFilter{Status: domain.TaskStatusInProgress})
	if err != nil {
		t.Fatalf("ListTasks status: %v", err)
	}
	if len(byStatus) != 2 {
		t.Fatalf("status filter: got %d tasks", len(byStatus))
	}

	byAssignee, err := store.ListTasks(ctx, TaskFilter{AssigneeID: "shuri"})
	if err != nil {
		t.Fatalf("ListTasks assignee: %v", err)
	}
	if len(byAssignee) != 1 || byAssignee[0].Title != "triage inbox" {
		t.Fatalf("assignee filter: %+v", byAssignee)
	}

	byTag, err := store.ListTasks(ctx, TaskFilter{Tag: "ops"})
	if err != nil {
		t.Fatalf("ListTasks tag: %v", err)
	}
	if len(byTag) != 1 || byTag[0].Title != "triage inbox" {
		t.Fatalf("tag filter: %+v", byTag)
	}

	all, err := store.ListTasks(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(all))
	}
}

func TestUpdateTaskMissing(t *testing.T) {
	store := openTestStore(t)

	err := store.UpdateTask(context.Background(), &domain.Task{
		ID:       "TASK-MISSING",
		Title:    "ghost",
		Status:   domain.TaskStatusInbox,
		Priority: domain.PriorityNormal,
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)
	ctx := context.Background()

	task := newTestTask(t, store, nil)
	child := newTestTask(t, store, func(c *domain.Task) {
		c.Title = "subtask"
		c.ParentID = task.ID
	})

	msg := &domain.Message{
		ID:          shared.NewID("MSG"),
		TaskID:      task.ID,
		FromAgentID: "jarvis",
		Content:     "looks good",
		Type:        domain.MessageTypeComment,
	}
	if err := store.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := store.Subscribe(ctx, "shuri", task.ID); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := store.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	comments, err := store.TaskComments(ctx, task.ID)
	if err != nil {
		t.Fatalf("TaskComments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected cascaded comments, got %d", len(comments))
	}
	subs, err := store.Subscribers(ctx, task.ID)
	if err != nil {
		t.Fatalf("Subscribers: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("expected cascaded subscriptions, got %v", subs)
	}

	orphan, err := store.GetTask(ctx, child.ID)
	if err != nil {
		t.Fatalf("GetTask child: %v", err)
	}
	if orphan == nil {
		t.Fatal("child task should survive parent deletion")
	}
	if orphan.ParentID != "" {
		t.Fatalf("child parent_id should be cleared, got %q", orphan.ParentID)
	}
}

func TestActiveForAgentOrdersByPriority(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)
	ctx := context.Background()

	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "low"
		task.AssigneeID = "shuri"
		task.Priority = domain.PriorityLow
		task.Status = domain.TaskStatusAssigned
	})
	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "urgent"
		task.AssigneeID = "shuri"
		task.Priority = domain.PriorityUrgent
		task.Status = domain.TaskStatusInProgress
	})
	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "done"
		task.AssigneeID = "shuri"
		task.Status = domain.TaskStatusDone
	})

	active, err := store.ActiveForAgent(ctx, "shuri")
	if err != nil {
		t.Fatalf("ActiveForAgent: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active tasks, got %d", len(active))
	}
	if active[0].Title != "urgent" || active[1].Title != "low" {
		t.Fatalf("unexpected order: %s, %s", active[0].Title, active[1].Title)
	}
}

func TestDueWithinWindow(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	soon := now.Add(90 * time.Minute)
	far := now.Add(6 * time.Hour)
	past := now.Add(-time.Hour)

	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "due soon"
		task.DueDate = &soon
	})
	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "due later"
		task.DueDate = &far
	})
	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "overdue"
		task.DueDate = &past
	})
	newTestTask(t, store, func(task *domain.Task) {
		task.Title = "due soon but done"
		task.DueDate = &soon
		task.Status = domain.TaskStatusDone
	})

	due, err := store.DueWithin(ctx, now, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DueWithin: %v", err)
	}
	if len(due) != 1 || due[0].Title != "due soon" {
		t.Fatalf("unexpected due set: %+v", due)
	}
}

func TestStatusCountsAndAggregates(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)
	ctx := context.Background()

	newTestTask(t, store, func(task *domain.Task) { task.Status = domain.TaskStatusInProgress })
	newTestTask(t, store, func(task *domain.Task) { task.Status = domain.TaskStatusInProgress })
	newTestTask(t, store, func(task *domain.Task) { task.Status = domain.TaskStatusBlocked })

	counts, err := store.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts[domain.TaskStatusInProgress] != 2 || counts[domain.TaskStatusBlocked] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	active, err := store.CountActive(ctx)
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if active != 3 {
		t.Fatalf("CountActive = %d", active)
	}
	blocked, err := store.CountBlocked(ctx)
	if err != nil {
		t.Fatalf("CountBlocked: %v", err)
	}
	if blocked != 1 {
		t.Fatalf("CountBlocked = %d", blocked)
	}
}

func TestCompletedBetween(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)
	ctx := context.Background()

	now := time.Now().UTC()
	yesterday := now.Add(-20 * time.Hour)
	lastWeek := now.Add(-6 * 24 * time.Hour)

	recent := newTestTask(t, store, func(task *domain.Task) {
		task.AssigneeID = "fury"
	})
	recent.Status = domain.TaskStatusDone
	recent.CompletedAt = &yesterday
	if err := store.UpdateTask(ctx, recent); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	old := newTestTask(t, store, func(task *domain.Task) {
		task.AssigneeID = "fury"
	})
	old.Status = domain.TaskStatusDone
	old.CompletedAt = &lastWeek
	if err := store.UpdateTask(ctx, old); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	got, err := store.CompletedBetween(ctx, "fury", now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("CompletedBetween: %v", err)
	}
	if len(got) != 1 || got[0].ID != recent.ID {
		t.Fatalf("unexpected completed set: %+v", got)
	}

	total, err := store.CountCompletedBetween(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("CountCompletedBetween: %v", err)
	}
	if total != 1 {
		t.Fatalf("CountCompletedBetween = %d", total)
	}
}
