// Package notify manages per-agent notifications and the @mention fan-out.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/basket/mission-control/internal/bus"
	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/persistence"
	"github.com/basket/mission-control/internal/shared"
)

// Service is the notification CRUD surface. Agent parameters are display
// names, resolved case-insensitively.
type Service struct {
	store *persistence.Store
	bus   *bus.Bus
	log   *slog.Logger
}

func NewService(store *persistence.Store, b *bus.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, bus: b, log: logger.With("component", "notify")}
}

// CreateInput describes a notification to insert. AgentID is required.
type CreateInput struct {
	AgentID   string
	MessageID string
	TaskID    string
	Content   string
	Type      domain.NotificationType
	DedupKey  string
}

// Create inserts a notification and publishes it on the bus. With a dedup
// key set, a repeat insert for the same key returns (nil, nil).
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Notification, error) {
	if in.AgentID == "" {
		return nil, domain.Validationf("notification agent is required")
	}
	if in.Type == "" {
		in.Type = domain.NotificationMention
	}
	if !in.Type.Valid() {
		return nil, domain.Validationf("invalid notification type %q", in.Type)
	}

	n := &domain.Notification{
		ID:        shared.NewID("NOTIF"),
		AgentID:   in.AgentID,
		MessageID: in.MessageID,
		TaskID:    in.TaskID,
		Content:   in.Content,
		Type:      in.Type,
		DedupKey:  in.DedupKey,
	}
	inserted, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, nil
	}
	s.bus.Publish(bus.TopicNotificationCreated, bus.NotificationEvent{
		NotificationID: n.ID,
		AgentID:        n.AgentID,
		TaskID:         n.TaskID,
		Type:           string(n.Type),
	})
	return n, nil
}

// ListParams filters List. Agent is a display name; empty means all agents.
type ListParams struct {
	Agent      string
	UnreadOnly bool
	Limit      int
}

// List returns notifications newest first.
func (s *Service) List(ctx context.Context, p ListParams) ([]*domain.Notification, error) {
	filter := persistence.NotificationFilter{UnreadOnly: p.UnreadOnly, Limit: p.Limit}
	if p.Agent != "" {
		agent, err := s.resolveAgent(ctx, p.Agent)
		if err != nil {
			return nil, err
		}
		filter.AgentID = agent.ID
	}
	return s.store.ListNotifications(ctx, filter)
}

// MarkRead flags one notification read. Reports whether a row changed;
// unknown IDs are not an error.
func (s *Service) MarkRead(ctx context.Context, id string) (bool, error) {
	return s.store.MarkNotificationRead(ctx, id)
}

// MarkAllRead flips every unread notification for the agent and returns the
// count changed.
func (s *Service) MarkAllRead(ctx context.Context, agentName string) (int, error) {
	agent, err := s.resolveAgent(ctx, agentName)
	if err != nil {
		return 0, err
	}
	return s.store.MarkAllNotificationsRead(ctx, agent.ID)
}

// Clear deletes every notification for the agent and returns the count
// removed.
func (s *Service) Clear(ctx context.Context, agentName string) (int, error) {
	agent, err := s.resolveAgent(ctx, agentName)
	if err != nil {
		return 0, err
	}
	return s.store.ClearNotifications(ctx, agent.ID)
}

// UnreadCount returns the agent's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, agentName string) (int, error) {
	agent, err := s.resolveAgent(ctx, agentName)
	if err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, agent.ID)
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
