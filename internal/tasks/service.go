// Package tasks implements task CRUD, state transitions, and the
// notification fan-out they trigger.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/basket/mission-control/internal/bus"
	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/notify"
	"github.com/basket/mission-control/internal/persistence"
	"github.com/basket/mission-control/internal/shared"
)

const maxParentDepth = 100

// Service owns task mutations. Agent parameters are display names, resolved
// case-insensitively against the roster.
type Service struct {
	store   *persistence.Store
	applier *Applier
	log     *slog.Logger
	now     func() time.Time
}

func NewService(store *persistence.Store, b *bus.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		applier: NewApplier(store, b, logger),
		log:     logger.With("component", "tasks"),
		now:     time.Now,
	}
}

// CreateParams describes a new task. Assignee and Creator are display
// names; empty means unset.
type CreateParams struct {
	Title       string
	Description string
	Assignee    string
	Creator     string
	Priority    domain.Priority
	DueDate     *time.Time
	ParentID    string
	Tags        []string
}

// Create validates and persists a new task, records a task_created
// activity, and notifies the assignee when one resolves.
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.Task, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, domain.Validationf("task title is required")
	}
	if p.Priority == "" {
		p.Priority = domain.PriorityNormal
	}
	if !p.Priority.Valid() {
		return nil, domain.Validationf("invalid priority %q", p.Priority)
	}

	task := &domain.Task{
		ID:          shared.NewID("TASK"),
		Title:       p.Title,
		Description: p.Description,
		Status:      domain.TaskStatusInbox,
		Priority:    p.Priority,
		DueDate:     p.DueDate,
		Tags:        p.Tags,
	}

	var effects []Effect
	if p.Assignee != "" {
		assignee, err := s.resolveAgent(ctx, p.Assignee)
		if err != nil {
			return nil, err
		}
		task.AssigneeID = assignee.ID
		task.Status = domain.TaskStatusAssigned
		effects = append(effects, Effect{
			AgentID: assignee.ID,
			TaskID:  task.ID,
			Content: fmt.Sprintf("You were assigned: %s", task.Title),
			Type:    domain.NotificationTaskAssigned,
		})
	}
	if p.Creator != "" {
		creator, err := s.resolveAgent(ctx, p.Creator)
		if err != nil {
			return nil, err
		}
		task.CreatorID = creator.ID
	}
	if p.ParentID != "" {
		parent, err := s.store.GetTask(ctx, p.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, domain.NotFoundf("task %s not found", p.ParentID)
		}
		task.ParentID = p.ParentID
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.recordActivity(ctx, task.ID, task.CreatorID, "task_created", task.Title)
	if err := s.applier.Apply(ctx, effects); err != nil {
		s.log.Warn("fan-out incomplete after create", "task", task.ID, "error", err)
	}

	created, err := s.store.GetTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns the task or (nil, nil) when the ID is unknown.
func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.store.GetTask(ctx, id)
}

// ListParams filters List; all fields are optional and conjunctive.
type ListParams struct {
	Status   domain.TaskStatus
	Assignee string
	Priority domain.Priority
	Tag      string
	Limit    int
	Offset   int
}

// List returns tasks ordered urgent-first, most recent first within a
// priority band.
func (s *Service) List(ctx context.Context, p ListParams) ([]*domain.Task, error) {
	if p.Status != "" && !p.Status.Valid() {
		return nil, domain.Validationf("invalid status %q", p.Status)
	}
	if p.Priority != "" && !p.Priority.Valid() {
		return nil, domain.Validationf("invalid priority %q", p.Priority)
	}
	filter := persistence.TaskFilter{
		Status:   p.Status,
		Priority: p.Priority,
		Tag:      p.Tag,
		Limit:    p.Limit,
		Offset:   p.Offset,
	}
	if p.Assignee != "" {
		assignee, err := s.resolveAgent(ctx, p.Assignee)
		if err != nil {
			return nil, err
		}
		filter.AssigneeID = assignee.ID
	}
	return s.store.ListTasks(ctx, filter)
}

// Patch carries per-field task updates. Nil pointers leave the column
// untouched; an empty Assignee or Parent string clears the link.
type Patch struct {
	Title       *string
	Description *string
	Assignee    *string
	Status      *domain.TaskStatus
	Priority    *domain.Priority
	DueDate     *time.Time
	Parent      *string
	Tags        []string
}

// Update applies the patch, appends an activity summarizing the changed
// fields, and re-notifies the assignee whenever one resolves.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.NotFoundf("task %s not found", id)
	}

	var (
		changed []string
		effects []Effect
	)
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, domain.Validationf("task title is required")
		}
		task.Title = *p.Title
		changed = append(changed, "title")
	}
	if p.Description != nil {
		task.Description = *p.Description
		changed = append(changed, "description")
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, domain.Validationf("invalid priority %q", *p.Priority)
		}
		task.Priority = *p.Priority
		changed = append(changed, "priority")
	}
	if p.DueDate != nil {
		task.DueDate = p.DueDate
		changed = append(changed, "due_date")
	}
	if p.Tags != nil {
		task.Tags = p.Tags
		changed = append(changed, "tags")
	}
	if p.Parent != nil {
		if *p.Parent == "" {
			task.ParentID = ""
		} else {
			if err := s.validateParent(ctx, task.ID, *p.Parent); err != nil {
				return nil, err
			}
			task.ParentID = *p.Parent
		}
		changed = append(changed, "parent")
	}
	if p.Assignee != nil {
		if *p.Assignee == "" {
			task.AssigneeID = ""
		} else {
			assignee, err := s.resolveAgent(ctx, *p.Assignee)
			if err != nil {
				return nil, err
			}
			task.AssigneeID = assignee.ID
			if task.Status == domain.TaskStatusInbox {
				task.Status = domain.TaskStatusAssigned
			}
			effects = append(effects, Effect{
				AgentID: assignee.ID,
				TaskID:  task.ID,
				Content: fmt.Sprintf("You were assigned: %s", task.Title),
				Type:    domain.NotificationTaskAssigned,
			})
		}
		changed = append(changed, "assignee")
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, domain.Validationf("invalid status %q", *p.Status)
		}
		task.Status = *p.Status
		if *p.Status == domain.TaskStatusDone {
			now := s.now().UTC()
			task.CompletedAt = &now
		}
		changed = append(changed, "status")
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		s.recordActivity(ctx, task.ID, "", "task_updated", "changed: "+strings.Join(changed, ", "))
	}
	if err := s.applier.Apply(ctx, effects); err != nil {
		s.log.Warn("fan-out incomplete after update", "task", task.ID, "error", err)
	}
	return s.store.GetTask(ctx, task.ID)
}

// Complete marks the task done.
func (s *Service) Complete(ctx context.Context, id string) (*domain.Task, error) {
	done := domain.TaskStatusDone
	return s.Update(ctx, id, Patch{Status: &done})
}

// Delete removes the task and reports whether a row was removed. Dependent
// rows cascade; subtasks are detached.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	err := s.store.DeleteTask(ctx, id)
	if domain.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddComment records a comment, notifies @mentioned agents, then notifies
// every subscriber except the author.
func (s *Service) AddComment(ctx context.Context, taskID, fromName, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.Validationf("comment content is required")
	}
	author, err := s.resolveAgent(ctx, fromName)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.NotFoundf("task %s not found", taskID)
	}

	msg := &domain.Message{
		ID:          shared.NewID("MSG"),
		TaskID:      task.ID,
		FromAgentID: author.ID,
		Content:     content,
		Type:        domain.MessageTypeComment,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.recordActivity(ctx, task.ID, author.ID, "comment_added", shared.Truncate(content, 50))

	var effects []Effect
	for _, name := range notify.Mentions(content) {
		agent, err := s.store.AgentByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve mention @%s: %w", name, err)
		}
		if agent == nil {
			continue
		}
		effects = append(effects, Effect{
			AgentID:   agent.ID,
			TaskID:    task.ID,
			MessageID: msg.ID,
			Content:   fmt.Sprintf("%s mentioned you: %s", author.Name, shared.Truncate(content, 80)),
			Type:      domain.NotificationMention,
		})
	}

	subscribers, err := s.store.Subscribers(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	for _, agentID := range subscribers {
		if agentID == author.ID {
			continue
		}
		effects = append(effects, Effect{
			AgentID:   agentID,
			TaskID:    task.ID,
			MessageID: msg.ID,
			Content:   fmt.Sprintf("%s commented on: %s", author.Name, task.Title),
			Type:      domain.NotificationSystem,
		})
	}

	if err := s.applier.Apply(ctx, effects); err != nil {
		s.log.Warn("fan-out incomplete after comment", "task", task.ID, "error", err)
	}
	return s.store.GetMessage(ctx, msg.ID)
}

// CommentView is a comment with the author's display name joined in.
type CommentView struct {
	domain.Message
	AuthorName string
}

// Comments returns the task's comments oldest first.
func (s *Service) Comments(ctx context.Context, taskID string) ([]CommentView, error) {
	msgs, err := s.store.TaskComments(ctx, taskID)
	if err != nil {
		return nil, err
	}
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(agents))
	for _, a := range agents {
		names[a.ID] = a.Name
	}

	views := make([]CommentView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, CommentView{Message: *m, AuthorName: names[m.FromAgentID]})
	}
	return views, nil
}

// Subscribe registers the agent as a watcher of the task. Idempotent;
// reports whether a new subscription was added.
func (s *Service) Subscribe(ctx context.Context, agentName, taskID string) (bool, error) {
	agent, err := s.resolveAgent(ctx, agentName)
	if err != nil {
		return false, err
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, domain.NotFoundf("task %s not found", taskID)
	}
	return s.store.Subscribe(ctx, agent.ID, task.ID)
}

// Unsubscribe removes the watch. Idempotent; reports whether a row existed.
func (s *Service) Unsubscribe(ctx context.Context, agentName, taskID string) (bool, error) {
	agent, err := s.resolveAgent(ctx, agentName)
	if err != nil {
		return false, err
	}
	return s.store.Unsubscribe(ctx, agent.ID, taskID)
}

func (s *Service) resolveAgent(ctx context.Context, name string) (*domain.Agent, error) {
	agent, err := s.store.AgentByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve agent: %w", err)
	}
	if agent == nil {
		return nil, domain.NotFoundf("Agent %q not found", name)
	}
	return agent, nil
}

// validateParent rejects a parent link that would close a cycle through the
// ancestor chain.
func (s *Service) validateParent(ctx context.Context, taskID, parentID string) error {
	cur := parentID
	for depth := 0; cur != "" && depth < maxParentDepth; depth++ {
		if cur == taskID {
			return domain.Validationf("task %s cannot be its own ancestor", taskID)
		}
		parent, err := s.store.GetTask(ctx, cur)
		if err != nil {
			return err
		}
		if parent == nil {
			if cur == parentID {
				return domain.NotFoundf("task %s not found", parentID)
			}
			return nil
		}
		cur = parent.ParentID
	}
	return nil
}

// recordActivity appends an audit row; failures are logged, never fatal.
func (s *Service) recordActivity(ctx context.Context, taskID, agentID, action, details string) {
	err := s.store.CreateActivity(ctx, &domain.Activity{
		ID:      shared.NewID("ACT"),
		TaskID:  taskID,
		AgentID: agentID,
		Action:  action,
		Details: details,
	})
	if err != nil {
		s.log.Error("activity append failed", "task", taskID, "action", action, "error", err)
	}
}
