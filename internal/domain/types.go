// Package domain holds the mission-control entity types and the error
// kinds shared by the services, the store, and the CLI.
package domain

import "time"

type TaskStatus string

const (
	TaskStatusInbox      TaskStatus = "inbox"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskStatuses lists every valid task status.
var TaskStatuses = []TaskStatus{
	TaskStatusInbox, TaskStatusAssigned, TaskStatusInProgress,
	TaskStatusBlocked, TaskStatusReview, TaskStatusDone, TaskStatusCancelled,
}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

// Rank orders priorities for listing: urgent sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 3
	default:
		return 4
	}
}

type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "active"
	AgentStatusAway    AgentStatus = "away"
	AgentStatusOffline AgentStatus = "offline"
)

type MessageType string

const (
	MessageTypeComment MessageType = "comment"
	MessageTypeSystem  MessageType = "system"
	MessageTypeMention MessageType = "mention"
)

type NotificationType string

const (
	NotificationMention      NotificationType = "mention"
	NotificationTaskAssigned NotificationType = "task_assigned"
	NotificationTaskDue      NotificationType = "task_due"
	NotificationSystem       NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationMention, NotificationTaskAssigned, NotificationTaskDue, NotificationSystem:
		return true
	}
	return false
}

// Agent is a roster member. Agents are seeded from config at startup; the
// services never create them.
type Agent struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	SessionKey string      `json:"session_key"`
	Role       string      `json:"role"`
	Status     AgentStatus `json:"status"`
	LastSeen   *time.Time  `json:"last_seen,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Task is the unit of work. Empty AssigneeID/CreatorID/ParentID mean unset.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	CreatorID   string     `json:"creator_id,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ParentID    string     `json:"parent_id,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Message struct {
	ID          string      `json:"id"`
	TaskID      string      `json:"task_id,omitempty"`
	FromAgentID string      `json:"from_agent_id"`
	ToAgentID   string      `json:"to_agent_id,omitempty"`
	Content     string      `json:"content"`
	Type        MessageType `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Activity is one row of the append-only audit trail.
type Activity struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Notification struct {
	ID        string           `json:"id"`
	AgentID   string           `json:"agent_id"`
	MessageID string           `json:"message_id,omitempty"`
	TaskID    string           `json:"task_id,omitempty"`
	Content   string           `json:"content"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	DedupKey  string           `json:"dedup_key,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

type Subscription struct {
	AgentID   string    `json:"agent_id"`
	TaskID    string    `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}
